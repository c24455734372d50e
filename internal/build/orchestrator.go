package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/log"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// State is the state of one Execute call.
type State int

const (
	Idle State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// StepResult records one attempted sub-step.
type StepResult struct {
	Step     StepKind
	Command  string
	ExitCode int
	Output   string
	Duration time.Duration
	Err      error
}

// Result is the outcome of Execute. Steps holds only attempted sub-steps:
// steps after a failure are never run and never listed.
type Result struct {
	Action  Action
	Profile toolchain.Profile
	State   State
	Steps   []StepResult
	// ConanProfile is the profile file generated during this execution.
	ConanProfile string
}

// Observer is notified as sub-steps start and finish.
type Observer interface {
	StepStarted(index, total int, step StepKind, description string)
	StepFinished(index, total int, result StepResult)
}

// Orchestrator executes build actions through a Runner. One Orchestrator
// runs at most one action at a time.
type Orchestrator struct {
	runner      executor.Runner
	layout      Layout
	stepTimeout time.Duration
	observer    Observer
	logger      log.Logger

	running atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStepTimeout bounds every external sub-step.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator returns an Orchestrator for the given project layout.
func NewOrchestrator(runner executor.Runner, layout Layout, opts ...Option) *Orchestrator {
	o := &Orchestrator{runner: runner, layout: layout}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = log.OrDefault(o.logger)
	return o
}

// Layout returns the project layout the orchestrator builds.
func (o *Orchestrator) Layout() Layout {
	return o.layout
}

// execution is the state carried between the sub-steps of one Execute call.
type execution struct {
	profile      toolchain.Profile
	conanProfile string
}

// Execute runs action for profile. It returns a *ConcurrentExecutionError
// without touching anything if another Execute is in progress, and a
// *SubStepFailure wrapping the cause when a sub-step fails. The returned
// Result is non-nil whenever execution started.
func (o *Orchestrator) Execute(ctx context.Context, action Action, profile toolchain.Profile) (*Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, &ConcurrentExecutionError{Action: action}
	}
	defer o.running.Store(false)

	steps := Expand(action)
	if len(steps) == 0 {
		return nil, fmt.Errorf("unknown build action: %q", action)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid toolchain profile: %w", err)
	}

	result := &Result{Action: action, Profile: profile, State: Running}
	exec := &execution{profile: profile}
	total := len(steps)

	o.logger.Info("executing build action", "action", action, "profile", profile.String(), "steps", total)

	for i, step := range steps {
		index := i + 1

		if err := ctx.Err(); err != nil {
			result.State = Failed
			return result, &SubStepFailure{
				Step:     step,
				Index:    index,
				Total:    total,
				ExitCode: -1,
				Err:      &executor.InterruptedError{Command: string(step), Cause: err},
			}
		}

		sr := o.runStep(ctx, exec, step, index, total)
		result.Steps = append(result.Steps, sr)
		result.ConanProfile = exec.conanProfile

		if sr.Err != nil {
			result.State = Failed
			o.logger.Warn("build step failed", "step", step, "index", index, "exit_code", sr.ExitCode, "error", sr.Err)
			return result, &SubStepFailure{
				Step:     step,
				Index:    index,
				Total:    total,
				ExitCode: sr.ExitCode,
				Output:   sr.Output,
				Err:      sr.Err,
			}
		}
	}

	result.State = Succeeded
	return result, nil
}

// Running reports whether an Execute call is in progress.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

func (o *Orchestrator) runStep(ctx context.Context, exec *execution, step StepKind, index, total int) StepResult {
	start := time.Now()
	sr := StepResult{Step: step}

	switch step {
	case GenerateConanProfile:
		path := o.layout.ConanProfilePath(exec.profile)
		sr.Command = "write " + path
		o.started(index, total, step, sr.Command)
		sr.Err = o.generateConanProfile(exec, path)

	case RemoveBuildDir:
		sr.Command = "remove " + o.layout.BuildDir
		o.started(index, total, step, sr.Command)
		if err := os.RemoveAll(o.layout.BuildDir); err != nil {
			sr.Err = fmt.Errorf("failed to remove build directory: %w", err)
		}

	default:
		cmd, err := o.layout.command(step, exec.profile, exec.conanProfile)
		if err != nil {
			o.started(index, total, step, string(step))
			sr.Err = err
			sr.ExitCode = -1
			break
		}
		cmd.Timeout = o.stepTimeout
		sr.Command = cmd.String()
		o.started(index, total, step, sr.Command)

		res, err := o.runner.Run(ctx, cmd)
		sr.ExitCode = res.ExitCode
		sr.Output = res.Output
		sr.Err = err
		if err == nil && res.ExitCode != 0 {
			// Runners report non-zero exits as errors; guard against ones that don't.
			sr.Err = &executor.ExitError{Command: cmd.String(), Code: res.ExitCode}
		}
	}

	if sr.Err != nil && sr.ExitCode == 0 {
		var exitErr *executor.ExitError
		if !errors.As(sr.Err, &exitErr) {
			sr.ExitCode = -1
		}
	}
	sr.Duration = time.Since(start)

	if o.observer != nil {
		o.observer.StepFinished(index, total, sr)
	}
	return sr
}

func (o *Orchestrator) started(index, total int, step StepKind, desc string) {
	o.logger.Info(fmt.Sprintf("Step %d/%d: %s", index, total, step), "command", desc)
	if o.observer != nil {
		o.observer.StepStarted(index, total, step, desc)
	}
}

// generateConanProfile writes the profile and records it for ConanInstall.
func (o *Orchestrator) generateConanProfile(exec *execution, path string) error {
	toolchainFile := exec.profile.ToolchainFile(o.layout.ToolchainsDir)
	if _, err := os.Stat(toolchainFile); err != nil {
		return fmt.Errorf("compiler toolchain file not found: %s", toolchainFile)
	}

	if err := os.MkdirAll(o.layout.BuildDir, 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	content := RenderConanProfile(exec.profile, toolchainFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write conan profile: %w", err)
	}

	exec.conanProfile = path
	o.logger.Debug("generated conan profile", "path", path)
	return nil
}
