package functional

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
)

// aCleanChaosEnvironment is a no-op because the Before hook already sets up
// the environment. This step exists so feature files read naturally.
func aCleanChaosEnvironment(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func aCMakeProject(ctx context.Context) (context.Context, error) {
	state := getState(ctx)
	content := "cmake_minimum_required(VERSION 3.20)\nproject(demo CXX)\n"
	return ctx, os.WriteFile(filepath.Join(state.projectDir, "CMakeLists.txt"), []byte(content), 0o644)
}

func aProjectFileContaining(ctx context.Context, name string, body *godog.DocString) (context.Context, error) {
	state := getState(ctx)
	path := filepath.Join(state.projectDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ctx, err
	}
	return ctx, os.WriteFile(path, []byte(body.Content+"\n"), 0o644)
}

// iRun executes a command string, replacing "chaos" with the test binary
// path. The command runs inside the scenario's project directory.
func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "chaos" {
		args[0] = state.binPath
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = state.projectDir

	env := append(os.Environ(),
		"CHAOS_HOME="+state.homeDir,
		"NO_COLOR=1",
	)
	if len(state.hiddenBinaries) > 0 {
		env = append(env, "PATH="+filteredPATH(state.hiddenBinaries))
	}
	cmd.Env = env
	cmd.Stdin = strings.NewReader("")

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		state.exitCode = 0
	case errors.As(err, &exitErr):
		state.exitCode = exitErr.ExitCode()
	default:
		return ctx, fmt.Errorf("command execution failed: %w", err)
	}
	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

// File paths are relative to CHAOS_HOME, or to the project when prefixed
// with "project/".
func scenarioPath(state *testState, path string) string {
	if rest, ok := strings.CutPrefix(path, "project/"); ok {
		return filepath.Join(state.projectDir, rest)
	}
	return filepath.Join(state.homeDir, path)
}

func theFileExists(ctx context.Context, path string) error {
	fullPath := scenarioPath(getState(ctx), path)
	if _, err := os.Lstat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("expected file %q to exist", fullPath)
	}
	return nil
}

func theFileDoesNotExist(ctx context.Context, path string) error {
	fullPath := scenarioPath(getState(ctx), path)
	if _, err := os.Lstat(fullPath); err == nil {
		return fmt.Errorf("expected file %q not to exist", fullPath)
	}
	return nil
}
