package main

import (
	"context"
	"errors"
	"os"

	"github.com/chaosctl/chaos/internal/build"
	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/install"
	"github.com/chaosctl/chaos/internal/menu"
	"github.com/chaosctl/chaos/internal/session"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// Exit codes for different error types.
// These enable scripts to distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error
	ExitUsage = 2

	// ExitNotFound indicates a toolchain index or ID that is not registered
	ExitNotFound = 3

	// ExitInstallFailed indicates a package manager invocation failed
	ExitInstallFailed = 4

	// ExitStepFailed indicates a build sub-step failed
	ExitStepFailed = 5

	// ExitTimeout indicates a child process was killed after its timeout
	ExitTimeout = 6

	// ExitConcurrent indicates a build action was already running
	ExitConcurrent = 7

	// ExitInterrupted indicates SIGINT or SIGTERM
	ExitInterrupted = 130
)

// usageError marks bad command-line input.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// exitCodeFor maps an error onto an exit code. Cancellation and timeouts
// are checked first because sub-step and install failures wrap them.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		interrupted *executor.InterruptedError
		timeout     *executor.TimeoutError
		concurrent  *build.ConcurrentExecutionError
		failure     *build.SubStepFailure
		installErr  *install.InstallError
		notFound    *toolchain.NotFoundError
		usage       *usageError
		option      *menu.InvalidOptionError
	)
	switch {
	case errors.As(err, &interrupted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &timeout):
		return ExitTimeout
	case errors.As(err, &concurrent):
		return ExitConcurrent
	case errors.As(err, &failure):
		return ExitStepFailed
	case errors.As(err, &installErr):
		return ExitInstallFailed
	case errors.As(err, &notFound), errors.Is(err, session.ErrNoSelection):
		return ExitNotFound
	case errors.As(err, &usage), errors.As(err, &option), errors.Is(err, menu.ErrNoInput):
		return ExitUsage
	}
	return ExitGeneral
}

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}
