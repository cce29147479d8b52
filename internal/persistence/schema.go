package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		bot_type TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		stop_reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);

	CREATE TABLE IF NOT EXISTS task_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		task TEXT NOT NULL,
		depth INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		stopped_at DATETIME,
		finished INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_runs_session ON task_runs(session_id, task);

	CREATE TABLE IF NOT EXISTS xp_gains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		skill TEXT NOT NULL,
		xp INTEGER NOT NULL,
		gained INTEGER NOT NULL,
		recorded_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_xp_gains_session ON xp_gains(session_id, skill);

	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target TEXT NOT NULL,
		success INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		recorded_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
