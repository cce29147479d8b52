// Package injector runs the external input-injection helper process that
// the IPC client talks to.
package injector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"
)

// Helper describes the injector helper command.
type Helper struct {
	Command string
	Args    []string
	Env     []string // appended to the current environment
	// StartupDelay gives the helper time to create its pipe before connecting.
	StartupDelay time.Duration
}

// Enabled reports whether a helper command is configured.
func (h Helper) Enabled() bool {
	return h.Command != ""
}

// Manager starts helpers, streams their output into the log and kills them
// on shutdown.
type Manager struct {
	groups *groups
	logger *slog.Logger
}

// NewManager creates a manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		groups: newGroups(),
		logger: logger.With("component", "injector"),
	}
}

// Process is a running helper.
type Process struct {
	done chan struct{}
	err  error
}

// Done is closed when the helper exits.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	<-p.done
	return p.err
}

// Start launches h. The process is killed when ctx is cancelled or KillAll runs.
// Start returns after StartupDelay so the caller can connect right away.
func (m *Manager) Start(ctx context.Context, h Helper) (*Process, error) {
	if !h.Enabled() {
		return nil, errors.New("no injector helper command configured")
	}

	cmd := newCommand(ctx, h.Command, h.Args...)
	if len(h.Env) > 0 {
		cmd.Env = append(os.Environ(), h.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start injector helper: %w", err)
	}
	pgid := m.groups.add(cmd)
	logger := m.logger.With("pid", cmd.Process.Pid)
	logger.Info("injector helper started", "command", h.Command)

	// Drain both pipes before Wait so a chatty helper cannot block on a full pipe
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		streamLines(stdout, logger, slog.LevelInfo)
	}()
	go func() {
		defer wg.Done()
		streamLines(stderr, logger, slog.LevelWarn)
	}()

	p := &Process{done: make(chan struct{})}
	go func() {
		wg.Wait()
		p.err = cmd.Wait()
		m.groups.remove(pgid)
		if p.err != nil && ctx.Err() == nil {
			logger.Error("injector helper exited", "error", p.err)
		} else {
			logger.Info("injector helper stopped")
		}
		close(p.done)
	}()

	if h.StartupDelay > 0 {
		select {
		case <-time.After(h.StartupDelay):
		case <-p.done:
			if p.err == nil {
				return p, errors.New("injector helper exited during startup")
			}
			return p, fmt.Errorf("injector helper exited during startup: %w", p.err)
		case <-ctx.Done():
			return p, ctx.Err()
		}
	}
	return p, nil
}

// KillAll terminates every helper started by m.
func (m *Manager) KillAll() error {
	return m.groups.signal(syscall.SIGKILL)
}

// Running returns the number of live helpers.
func (m *Manager) Running() int {
	return m.groups.len()
}

func streamLines(r io.Reader, logger *slog.Logger, level slog.Level) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		logger.Log(context.Background(), level, "helper output", "line", sc.Text())
	}
}
