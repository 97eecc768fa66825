package ops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/fiberdesk/fiberdesk/internal/config"
)

func testConfig() config.Ops {
	return config.Ops{
		ServiceUnit:    "fiberdesk",
		DeployDir:      "/opt/fiberdesk",
		MaxConcurrent:  2,
		CommandTimeout: 5 * time.Second,
	}
}

// scriptExec replaces the real command with a shell script, recording the
// requested command line.
func scriptExec(t *testing.T, output string, exitCode int) (func(ctx context.Context, name string, args ...string) *exec.Cmd, *[]string) {
	t.Helper()
	var calls []string
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		calls = append(calls, name+" "+strings.Join(args, " "))
		script := fmt.Sprintf("printf %%s %q; exit %d", output, exitCode)
		return exec.CommandContext(ctx, "sh", "-c", script)
	}, &calls
}

func TestRunner_RestartService(t *testing.T) {
	r := NewRunner(testConfig())
	execFn, calls := scriptExec(t, "restarted", 0)
	r.execCommand = execFn

	res, err := r.RestartService(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 || res.Output != "restarted" {
		t.Fatalf("result = %+v", res)
	}
	if (*calls)[0] != "systemctl restart fiberdesk" {
		t.Fatalf("command line = %q", (*calls)[0])
	}
}

func TestRunner_DeployFastForwardOnly(t *testing.T) {
	r := NewRunner(testConfig())
	execFn, calls := scriptExec(t, "", 0)
	r.execCommand = execFn

	if _, err := r.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := (*calls)[0]; got != "git -C /opt/fiberdesk pull --ff-only" {
		t.Fatalf("command line = %q", got)
	}
}

func TestRunner_JournalLineCount(t *testing.T) {
	r := NewRunner(testConfig())
	execFn, calls := scriptExec(t, "log line", 0)
	r.execCommand = execFn

	if _, err := r.Journal(context.Background(), 42); err != nil {
		t.Fatal(err)
	}
	if got := (*calls)[0]; got != "journalctl -u fiberdesk -n 42 --no-pager" {
		t.Fatalf("command line = %q", got)
	}

	// Non-positive counts fall back to the default.
	if _, err := r.Journal(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if got := (*calls)[1]; !strings.Contains(got, "-n 100") {
		t.Fatalf("command line = %q", got)
	}
}

func TestRunner_NonZeroExitIsResultNotError(t *testing.T) {
	r := NewRunner(testConfig())
	execFn, _ := scriptExec(t, "unit not found", 5)
	r.execCommand = execFn

	res, err := r.RestartService(context.Background())
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if res.ExitCode != 5 || res.Output != "unit not found" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunner_MissingCommandIsError(t *testing.T) {
	r := NewRunner(testConfig())
	r.execCommand = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/nonexistent/fiberdesk-test-binary")
	}

	if _, err := r.RestartService(context.Background()); err == nil {
		t.Fatal("expected error when the command cannot start")
	}
}

func TestRunner_ConcurrencyCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	r := NewRunner(cfg)
	r.execCommand = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "sleep 2")
	}

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = r.RestartService(context.Background())
	}()
	<-started
	time.Sleep(50 * time.Millisecond) // let the first command acquire the slot

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := r.RestartService(ctx); err == nil {
		t.Fatal("expected the second command to time out waiting for a slot")
	}
}
