// Package executor runs external tools as child processes.
//
// Every child is started in its own process group so that a timeout or an
// interrupt can terminate the whole tree (compilers spawned by cmake,
// package-manager helpers, ...). The runner always waits for the child to
// exit before returning.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chaosctl/chaos/internal/log"
)

// DefaultTailSize is how much trailing output a Result keeps.
const DefaultTailSize = 64 * 1024

// waitDelay bounds how long Wait blocks on I/O after the process is gone.
const waitDelay = 2 * time.Second

// Command describes one child process.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
	// Timeout of zero means no limit beyond the caller's context.
	Timeout time.Duration
	// Interactive commands keep the terminal: stdin is attached and the
	// child stays in chaos's process group so sudo can prompt.
	Interactive bool
}

// String renders the command line for display.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of a finished child.
type Result struct {
	ExitCode int // -1 when the process was killed or never started
	Output   string
	Duration time.Duration
}

// Runner runs commands. Implementations must not return before the child
// has terminated.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout receives combined output live. Nil means capture only.
	Stdout io.Writer
	// TailSize bounds Result.Output; zero means DefaultTailSize.
	TailSize int
	Logger   log.Logger
}

// Run starts cmd and waits for it. Errors are *ExitError for a non-zero
// exit, *TimeoutError when cmd.Timeout elapsed and *InterruptedError when
// ctx was cancelled.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	logger := log.OrDefault(r.Logger)

	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, &InterruptedError{Command: cmd.String(), Cause: err}
	}

	tailSize := r.TailSize
	if tailSize <= 0 {
		tailSize = DefaultTailSize
	}
	tail := &tailBuffer{limit: tailSize}

	var out io.Writer = tail
	if r.Stdout != nil {
		out = io.MultiWriter(tail, r.Stdout)
	}

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = out
	c.Stderr = out
	c.WaitDelay = waitDelay
	if cmd.Interactive {
		c.Stdin = os.Stdin
	} else {
		setProcessGroup(c)
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	logger.Debug("running command", "command", cmd.String(), "dir", cmd.Dir, "timeout", cmd.Timeout)

	start := time.Now()
	if err := c.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	var waitErr error
	killed := false
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		if cmd.Interactive {
			_ = c.Process.Kill()
		} else if err := killProcessGroup(c); err != nil {
			logger.Warn("failed to kill process group", "command", cmd.Name, "error", err)
			_ = c.Process.Kill()
		}
		waitErr = <-done
		killed = true
	}

	res := Result{
		ExitCode: c.ProcessState.ExitCode(),
		Output:   tail.String(),
		Duration: time.Since(start),
	}
	logger.Debug("command finished", "command", cmd.Name, "exit_code", res.ExitCode, "duration", res.Duration)

	if killed {
		res.ExitCode = -1
		if ctx.Err() != nil {
			return res, &InterruptedError{Command: cmd.String(), Cause: ctx.Err()}
		}
		return res, &TimeoutError{Command: cmd.String(), Timeout: cmd.Timeout}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return res, &ExitError{Command: cmd.String(), Code: exitErr.ExitCode()}
		}
		return res, fmt.Errorf("%s failed: %w", cmd.Name, waitErr)
	}
	return res, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if len(p) >= t.limit {
		t.buf.Reset()
		p = p[len(p)-t.limit:]
	} else if over := t.buf.Len() + len(p) - t.limit; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
