package injector

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// waitDelay bounds how long Wait keeps draining output after a kill.
const waitDelay = 2 * time.Second

// newCommand builds the helper command as the leader of a new process group.
// Cancelling ctx kills the group, not just the leader.
func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return signalGroup(cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

// signalGroup delivers sig to every process in the group led by pgid. A group
// that has already exited is not an error.
func signalGroup(pgid int, sig syscall.Signal) error {
	err := syscall.Kill(-pgid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return fmt.Errorf("signal %v to group %d: %w", sig, pgid, err)
}

// groups is the set of live helper process groups, keyed by leader pid.
type groups struct {
	mu    sync.Mutex
	names map[int]string
}

func newGroups() *groups {
	return &groups{names: make(map[int]string)}
}

// add records a started command and returns its group id.
func (g *groups) add(cmd *exec.Cmd) int {
	pgid := cmd.Process.Pid
	g.mu.Lock()
	g.names[pgid] = cmd.Path
	g.mu.Unlock()
	return pgid
}

func (g *groups) remove(pgid int) {
	g.mu.Lock()
	delete(g.names, pgid)
	g.mu.Unlock()
}

// signal sends sig to every live group. Groups stay registered until their
// leader is reaped.
func (g *groups) signal(sig syscall.Signal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for pgid, name := range g.names {
		if err := signalGroup(pgid, sig); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (g *groups) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.names)
}
