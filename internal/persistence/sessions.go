package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// StartSession records the start of a bot run.
func (s *SQLiteStore) StartSession(ctx context.Context, id, botType string, at time.Time) error {
	_, err := s.exec(ctx, "start session", `
		INSERT INTO sessions (id, bot_type, started_at)
		VALUES (?, ?, ?)
	`, id, botType, at.UTC())
	return err
}

// EndSession marks a running session as ended. Ending an ended session keeps
// the first end time and reason.
func (s *SQLiteStore) EndSession(ctx context.Context, id, reason string, at time.Time) error {
	res, err := s.exec(ctx, "end session", `
		UPDATE sessions
		SET ended_at = ?, stop_reason = ?
		WHERE id = ? AND ended_at IS NULL
	`, at.UTC(), reason, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

const sessionColumns = `
	s.id, s.bot_type, s.started_at, s.ended_at, s.stop_reason,
	(SELECT COUNT(*) FROM task_runs t WHERE t.session_id = s.id),
	(SELECT COALESCE(SUM(x.gained), 0) FROM xp_gains x WHERE x.session_id = s.id),
	(SELECT COUNT(*) FROM interactions i WHERE i.session_id = s.id),
	(SELECT COUNT(*) FROM interactions i WHERE i.session_id = s.id AND i.success = 0)
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess  Session
		ended sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.BotType, &sess.StartedAt, &ended, &sess.StopReason,
		&sess.TaskRuns, &sess.XPGained, &sess.Interactions, &sess.Failures)
	if err != nil {
		return Session{}, err
	}
	if ended.Valid {
		sess.EndedAt = ended.Time
	}
	return sess, nil
}

// GetSession retrieves one session with its activity totals.
// Returns an error wrapping ErrSessionNotFound for an unknown id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns the most recent sessions first. A limit of zero or less
// returns every session.
// Returns empty slice (not nil) if there are no sessions.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s
		ORDER BY s.started_at DESC, s.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
