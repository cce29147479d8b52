// Package persistence records bot sessions in SQLite: when a session ran,
// which tasks it went through, the experience gained and the outcome of every
// entity interaction.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Session summarises one bot run.
type Session struct {
	ID         string
	BotType    string
	StartedAt  time.Time
	EndedAt    time.Time // zero while the session is running
	StopReason string

	TaskRuns     int
	XPGained     int
	Interactions int
	Failures     int // failed interactions
}

// Running reports whether the session has not ended.
func (s Session) Running() bool {
	return s.EndedAt.IsZero()
}

// Duration returns how long the session ran, measured up to now while it is
// still running.
func (s Session) Duration() time.Duration {
	if s.Running() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// TaskRun is one activation of a task on the stack.
type TaskRun struct {
	Task      string
	Depth     int
	StartedAt time.Time
	StoppedAt time.Time // zero while the task is active
	Finished  bool      // false when torn down by a clear
}

// SkillGain totals the experience gained in one skill.
type SkillGain struct {
	Skill  string
	Gained int
}

// Interaction is the recorded outcome of one entity interaction.
type Interaction struct {
	Action     string
	Target     string
	Success    bool
	Reason     string
	RecordedAt time.Time
}

// Store defines the persistence interface for bot sessions.
type Store interface {
	// Session operations
	StartSession(ctx context.Context, id, botType string, at time.Time) error
	EndSession(ctx context.Context, id, reason string, at time.Time) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)

	// Activity within a session
	RecordTaskStart(ctx context.Context, sessionID, task string, depth int, at time.Time) error
	RecordTaskStop(ctx context.Context, sessionID, task string, finished bool, at time.Time) error
	RecordXP(ctx context.Context, sessionID, skill string, xp, gained int, at time.Time) error
	RecordInteraction(ctx context.Context, sessionID string, in Interaction) error
	TaskRuns(ctx context.Context, sessionID string) ([]TaskRun, error)
	SkillGains(ctx context.Context, sessionID string) ([]SkillGain, error)

	// Lifecycle
	Close() error
}

// foreignKeys is applied by modernc.org/sqlite to every pooled connection.
const foreignKeys = "_pragma=foreign_keys(1)"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&%s", dbPath, foreignKeys)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Each store gets its own named database shared by its connections.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", uuid.NewString(), foreignKeys)
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer goroutine records events; a second connection serves reads.
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// exec runs one write statement in its own transaction with a 5-second timeout.
func (s *SQLiteStore) exec(ctx context.Context, what, query string, args ...any) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Begin transaction with serializable isolation (BEGIN IMMEDIATE)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}
