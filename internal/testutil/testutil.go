// Package testutil holds fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chaosctl/chaos/internal/config"
	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// NewTestConfig returns a config rooted in a fresh temporary CHAOS_HOME.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(filepath.Join(t.TempDir(), ".chaos"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("failed to create config directories: %v", err)
	}
	return cfg
}

// NewProject creates a project directory with a CMakeLists.txt and, when
// descriptor is not empty, a chaos.toml.
func NewProject(t *testing.T, descriptor string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, filepath.Join(dir, "CMakeLists.txt"), "cmake_minimum_required(VERSION 3.20)\nproject(demo CXX)\n")
	if descriptor != "" {
		WriteFile(t, filepath.Join(dir, "chaos.toml"), descriptor)
	}
	return dir
}

// WriteToolchainFiles writes an empty CMake toolchain file for each profile.
func WriteToolchainFiles(t *testing.T, dir string, profiles ...toolchain.Profile) {
	t.Helper()
	for _, p := range profiles {
		WriteFile(t, p.ToolchainFile(dir), "# "+p.ToolchainFileName()+"\n")
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// FakeHost is an executor.Runner and LookPath pair simulating a machine.
// Binaries listed in Bins are on PATH; a successful command whose
// arguments name a key of Provides puts the listed binaries on PATH.
type FakeHost struct {
	mu       sync.Mutex
	Bins     map[string]bool
	Provides map[string][]string
	// Fail maps a program name ("cmake", "apt-get") to the exit code it returns.
	Fail  map[string]int
	calls []executor.Command
}

// NewFakeHost returns a host with bins on PATH.
func NewFakeHost(bins ...string) *FakeHost {
	h := &FakeHost{Bins: make(map[string]bool), Provides: make(map[string][]string), Fail: make(map[string]int)}
	for _, b := range bins {
		h.Bins[b] = true
	}
	return h
}

// LookPath resolves names in Bins.
func (h *FakeHost) LookPath(file string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

// Run records cmd and returns the scripted outcome.
func (h *FakeHost) Run(ctx context.Context, cmd executor.Command) (executor.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, cmd)

	if err := ctx.Err(); err != nil {
		return executor.Result{ExitCode: -1}, &executor.InterruptedError{Command: cmd.String(), Cause: err}
	}
	program := cmd.Name
	if program == "sudo" && len(cmd.Args) > 0 {
		program = cmd.Args[0]
	}
	if code, ok := h.Fail[program]; ok {
		return executor.Result{ExitCode: code, Output: program + ": failed\n"}, &executor.ExitError{Command: cmd.String(), Code: code}
	}
	for _, arg := range cmd.Args {
		for _, bin := range h.Provides[arg] {
			h.Bins[bin] = true
		}
	}
	return executor.Result{}, nil
}

// Calls returns the rendered commands run so far.
func (h *FakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.calls))
	for _, c := range h.calls {
		out = append(out, c.String())
	}
	return out
}

// CallsTo returns the rendered commands whose program is name.
func (h *FakeHost) CallsTo(name string) []string {
	var out []string
	for _, c := range h.Calls() {
		fields := strings.Fields(c)
		if len(fields) > 0 && fields[0] == "sudo" {
			fields = fields[1:]
		}
		if len(fields) > 0 && fields[0] == name {
			out = append(out, c)
		}
	}
	return out
}

var _ executor.Runner = (*FakeHost)(nil)
