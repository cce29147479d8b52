package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/aristath/runebot/internal/engine"
	"github.com/aristath/runebot/internal/persistence"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	runningStyle = cellStyle.Foreground(lipgloss.Color("10"))
	failedStyle  = cellStyle.Foreground(lipgloss.Color("9"))
)

// statusColumn is the index of the STATUS column in the sessions table.
const statusColumn = 7

func newSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List recorded bot sessions",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of sessions to show (0 shows all)",
				Value: 20,
			},
		},
		Action: runSessions,
	}
}

func runSessions(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	storePath, err := cfg.StorePath()
	if err != nil {
		return err
	}
	store, err := persistence.NewSQLiteStore(ctx, storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.Root().Writer
	report, err := renderSessions(ctx, store, cmd.Int("limit"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, report)
	return err
}

// renderSessions formats the most recent sessions as a table.
func renderSessions(ctx context.Context, store persistence.Store, limit int) (string, error) {
	sessions, err := store.ListSessions(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return "No sessions recorded.", nil
	}

	rows := make([][]string, 0, len(sessions))
	running := make(map[int]bool)
	for i, s := range sessions {
		gains, err := store.SkillGains(ctx, s.ID)
		if err != nil {
			return "", fmt.Errorf("skill gains for %s: %w", s.ID, err)
		}
		status := s.StopReason
		if s.Running() {
			status = "running"
			running[i] = true
		}
		rows = append(rows, []string{
			shortID(s.ID),
			s.BotType,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Duration().Round(time.Second).String(),
			fmt.Sprint(s.TaskRuns),
			formatGains(gains),
			fmt.Sprintf("%d/%d", s.Interactions-s.Failures, s.Interactions),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "BOT", "STARTED", "DURATION", "TASKS", "XP", "INTERACTIONS", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col != statusColumn:
				return cellStyle
			case running[row]:
				return runningStyle
			case isFailure(rows[row][col]):
				return failedStyle
			default:
				return cellStyle
			}
		})
	return t.String(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatGains(gains []persistence.SkillGain) string {
	if len(gains) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(gains))
	for _, g := range gains {
		parts = append(parts, fmt.Sprintf("%s +%d", g.Skill, g.Gained))
	}
	return strings.Join(parts, ", ")
}

// isFailure reports whether a stop reason is anything but a clean finish or
// shutdown.
func isFailure(reason string) bool {
	switch reason {
	case "", engine.ReasonFinished, engine.ReasonShutdown:
		return false
	}
	return true
}
