package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestExecutor_CapturesStdoutAndExitCode(t *testing.T) {
	executor := NewExecutor(5*time.Second, zap.NewNop())

	result := executor.Run(context.Background(), "sh", []string{"-c", "echo hello"})

	if result.ExitCode != 0 {
		t.Fatalf("exit code: got %d, want 0 (stderr: %q)", result.ExitCode, result.Stderr)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout: got %q, want %q", result.Stdout, "hello")
	}
	if !strings.HasPrefix(result.Command, "sh -c") {
		t.Errorf("command echo: got %q, want it to start with %q", result.Command, "sh -c")
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	executor := NewExecutor(5*time.Second, zap.NewNop())

	result := executor.Run(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 3"})

	if result.ExitCode != 3 {
		t.Errorf("exit code: got %d, want 3", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "oops") {
		t.Errorf("stderr: got %q, want it to contain %q", result.Stderr, "oops")
	}
}

func TestExecutor_Timeout(t *testing.T) {
	executor := NewExecutor(200*time.Millisecond, zap.NewNop())

	result := executor.Run(context.Background(), "sh", []string{"-c", "sleep 5"})

	if result.ExitCode != -1 {
		t.Errorf("exit code: got %d, want -1", result.ExitCode)
	}
	if !result.TimedOut {
		t.Errorf("expected TimedOut to be true")
	}
	if !strings.Contains(result.Stderr, "timeout") {
		t.Errorf("stderr: got %q, want timeout message", result.Stderr)
	}
	if result.Stderr != "timeout expired after 0s" {
		t.Errorf("stderr: got %q, want %q", result.Stderr, "timeout expired after 0s")
	}
}

func TestExecutor_SpawnFailure(t *testing.T) {
	executor := NewExecutor(5*time.Second, zap.NewNop())

	result := executor.Run(context.Background(), "definitely-not-a-real-binary-xyz", nil)

	if result.ExitCode != -2 {
		t.Errorf("exit code: got %d, want -2", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "executable file not found") {
		t.Errorf("stderr: got %q, want spawn error message", result.Stderr)
	}
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	executor := NewExecutor(0, zap.NewNop())
	if executor.Timeout() != DefaultTimeout {
		t.Errorf("timeout: got %v, want %v", executor.Timeout(), DefaultTimeout)
	}
}
