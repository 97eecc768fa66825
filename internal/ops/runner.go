// Package ops implements the operations console: a small set of allow-listed
// system commands for running the FiberDesk deployment.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fiberdesk/fiberdesk/internal/config"
)

// Result captures one finished command invocation.
type Result struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
}

// Runner executes the allow-listed operations commands. Arbitrary command
// execution is deliberately not exposed: every invocation is assembled here
// from configuration, never from request input.
//
// Concurrency is capped with a weighted semaphore so a slow systemctl or git
// pull cannot pile up unbounded processes.
type Runner struct {
	cfg config.Ops
	sem *semaphore.Weighted

	// overridable for tests
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewRunner creates a Runner from the ops configuration.
func NewRunner(cfg config.Ops) *Runner {
	limit := cfg.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	return &Runner{
		cfg:         cfg,
		sem:         semaphore.NewWeighted(int64(limit)),
		execCommand: exec.CommandContext,
	}
}

// RestartService restarts the configured systemd unit.
func (r *Runner) RestartService(ctx context.Context) (*Result, error) {
	return r.run(ctx, "systemctl", "restart", r.cfg.ServiceUnit)
}

// Deploy fast-forwards the deployment checkout. A diverged checkout fails
// rather than merging.
func (r *Runner) Deploy(ctx context.Context) (*Result, error) {
	return r.run(ctx, "git", "-C", r.cfg.DeployDir, "pull", "--ff-only")
}

// Journal returns the last n lines of the service journal.
func (r *Runner) Journal(ctx context.Context, n int) (*Result, error) {
	if n < 1 {
		n = 100
	}
	return r.run(ctx, "journalctl", "-u", r.cfg.ServiceUnit, "-n", strconv.Itoa(n), "--no-pager")
}

// run executes one command under the semaphore and the configured timeout.
// Output is combined stdout and stderr. A non-zero exit is returned in the
// Result, not as an error; errors mean the command could not run at all.
func (r *Runner) run(ctx context.Context, name string, args ...string) (*Result, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CommandTimeout)
	defer cancel()

	start := time.Now()
	cmd := r.execCommand(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The command never ran (not found, context expired, ...).
			return nil, err
		}
	}

	res := &Result{
		Command:    name,
		ExitCode:   cmd.ProcessState.ExitCode(),
		Output:     string(out),
		DurationMS: time.Since(start).Milliseconds(),
	}

	slog.Info("ops command finished",
		"command", name, "exit_code", res.ExitCode, "duration_ms", res.DurationMS)
	return res, nil
}
