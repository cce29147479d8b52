package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordTaskStart appends a task run to the session.
func (s *SQLiteStore) RecordTaskStart(ctx context.Context, sessionID, task string, depth int, at time.Time) error {
	_, err := s.exec(ctx, "record task start", `
		INSERT INTO task_runs (session_id, task, depth, started_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, task, depth, at.UTC())
	return err
}

// RecordTaskStop closes the most recent open run of task. A stop with no open
// run is ignored.
func (s *SQLiteStore) RecordTaskStop(ctx context.Context, sessionID, task string, finished bool, at time.Time) error {
	_, err := s.exec(ctx, "record task stop", `
		UPDATE task_runs
		SET stopped_at = ?, finished = ?
		WHERE id = (
			SELECT id FROM task_runs
			WHERE session_id = ? AND task = ? AND stopped_at IS NULL
			ORDER BY id DESC
			LIMIT 1
		)
	`, at.UTC(), finished, sessionID, task)
	return err
}

// TaskRuns returns the task runs of a session in start order.
// Returns empty slice (not nil) if the session ran no tasks.
func (s *SQLiteStore) TaskRuns(ctx context.Context, sessionID string) ([]TaskRun, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT task, depth, started_at, stopped_at, finished
		FROM task_runs
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task runs: %w", err)
	}
	defer rows.Close()

	runs := []TaskRun{}
	for rows.Next() {
		var (
			run     TaskRun
			stopped sql.NullTime
		)
		if err := rows.Scan(&run.Task, &run.Depth, &run.StartedAt, &stopped, &run.Finished); err != nil {
			return nil, fmt.Errorf("failed to scan task run: %w", err)
		}
		if stopped.Valid {
			run.StoppedAt = stopped.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task runs: %w", err)
	}

	return runs, nil
}
