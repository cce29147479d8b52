package persistence

import (
	"context"
	"fmt"
	"time"
)

// RecordXP stores an experience change of one skill.
func (s *SQLiteStore) RecordXP(ctx context.Context, sessionID, skill string, xp, gained int, at time.Time) error {
	_, err := s.exec(ctx, "record xp", `
		INSERT INTO xp_gains (session_id, skill, xp, gained, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, skill, xp, gained, at.UTC())
	return err
}

// RecordInteraction stores the outcome of an entity interaction.
func (s *SQLiteStore) RecordInteraction(ctx context.Context, sessionID string, in Interaction) error {
	at := in.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.exec(ctx, "record interaction", `
		INSERT INTO interactions (session_id, action, target, success, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, in.Action, in.Target, in.Success, in.Reason, at.UTC())
	return err
}

// SkillGains totals the experience gained per skill, largest first.
// Returns empty slice (not nil) if nothing was gained.
func (s *SQLiteStore) SkillGains(ctx context.Context, sessionID string) ([]SkillGain, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT skill, SUM(gained) AS total
		FROM xp_gains
		WHERE session_id = ?
		GROUP BY skill
		HAVING total > 0
		ORDER BY total DESC, skill ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query xp gains: %w", err)
	}
	defer rows.Close()

	gains := []SkillGain{}
	for rows.Next() {
		var g SkillGain
		if err := rows.Scan(&g.Skill, &g.Gained); err != nil {
			return nil, fmt.Errorf("failed to scan xp gain: %w", err)
		}
		gains = append(gains, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating xp gains: %w", err)
	}

	return gains, nil
}
