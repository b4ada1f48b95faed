package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 300 * time.Second

// Result is the outcome of a command execution. Failures to start or
// finish the command are encoded in the exit code rather than returned
// as errors: -1 means the command timed out, -2 means it never ran.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Executor runs external commands with a bounded execution time.
type Executor struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates an executor with the given timeout.
// A zero timeout falls back to DefaultTimeout.
func NewExecutor(timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		timeout: timeout,
		logger:  logger,
	}
}

// Timeout returns the configured execution timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Run executes the command and captures its output.
// The scan pipeline inspects the exit code, so all failure modes land in
// the Result instead of an error return.
func (e *Executor) Run(ctx context.Context, name string, args []string) *Result {
	startTime := time.Now()
	cmdLine := strings.Join(append([]string{name}, args...), " ")

	cmdPath, err := exec.LookPath(name)
	if err != nil {
		e.logger.Error("Command not found",
			zap.String("command", name),
			zap.Error(err),
		)
		return &Result{
			Command:  cmdLine,
			ExitCode: -2,
			Stderr:   err.Error(),
			Duration: time.Since(startTime),
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, cmdPath, args...)

	// New process group so a killed scan takes its children with it.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Info("Executing command",
		zap.String("command", name),
		zap.Strings("args", args),
		zap.Duration("timeout", e.timeout),
	)

	err = cmd.Run()

	result := &Result{
		Command:  cmdLine,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		result.Stderr = fmt.Sprintf("timeout expired after %ds", int(e.timeout.Seconds()))
		e.logger.Warn("Command killed due to timeout",
			zap.String("command", name),
			zap.Duration("timeout", e.timeout),
		)
		return result
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -2
			result.Stderr = err.Error()
			e.logger.Error("Command failed to run",
				zap.String("command", name),
				zap.Error(err),
			)
			return result
		}
	}

	e.logger.Info("Command completed",
		zap.String("command", name),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration),
	)

	return result
}
