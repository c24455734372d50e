package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/chaosctl/chaos/internal/build"
	"github.com/chaosctl/chaos/internal/cmakedist"
	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/install"
	"github.com/chaosctl/chaos/internal/platform"
	"github.com/chaosctl/chaos/internal/session"
	"github.com/chaosctl/chaos/internal/toolchain"
)

func assertContains(t *testing.T, result string, checks ...string) {
	t.Helper()
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_NilError(t *testing.T) {
	if result := Format(nil, nil); result != "" {
		t.Errorf("expected empty string for nil error, got %q", result)
	}
}

func TestFormat_GenericError(t *testing.T) {
	err := errors.New("something went wrong")
	if result := Format(err, nil); result != "something went wrong" {
		t.Errorf("expected original error message, got %q", result)
	}
}

func TestFormat_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		err    *toolchain.NotFoundError
		checks []string
	}{
		{"empty registry", &toolchain.NotFoundError{Kind: toolchain.IndexOutOfRange, Index: 1}, []string{"no toolchains are registered", "chaos toolchains discover"}},
		{"out of range", &toolchain.NotFoundError{Kind: toolchain.IndexOutOfRange, Index: 5, Size: 2}, []string{"valid range is 1-2", "chaos toolchains list"}},
		{"no match", &toolchain.NotFoundError{Kind: toolchain.NoMatch}, []string{"Partial requests never match"}},
		{"ambiguous", &toolchain.NotFoundError{Kind: toolchain.AmbiguousID, ID: "abcdef12", Matches: 2}, []string{"matches 2 toolchains", "full id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("select: %w", tt.err)
			assertContains(t, Format(wrapped, nil), append(tt.checks, "Suggestions:")...)
		})
	}
}

func TestFormat_SubStepFailure(t *testing.T) {
	err := &build.SubStepFailure{
		Step:     build.CMakeBuild,
		Index:    4,
		Total:    5,
		ExitCode: 2,
		Output:   "main.cpp:3: error: expected ';'\nmake: *** [all] Error 2\n",
		Err:      &executor.ExitError{Command: "cmake --build build", Code: 2},
	}

	assertContains(t, Format(err, nil),
		"step 4/5 (CMakeBuild) failed",
		"Last output:",
		"expected ';'",
		"Fix the compile errors",
	)
}

func TestFormat_SubStepTimeout(t *testing.T) {
	err := &build.SubStepFailure{
		Step: build.ConanInstall,
		Err:  &executor.TimeoutError{Command: "conan install", Timeout: 30 * time.Minute},
	}
	assertContains(t, Format(err, nil), "CHAOS_STEP_TIMEOUT", "longer than 30m0s")
}

func TestFormat_SubStepInterrupted(t *testing.T) {
	err := &build.SubStepFailure{
		Step: build.CTestRun,
		Err:  &executor.InterruptedError{Command: "ctest", Cause: errors.New("context canceled")},
	}
	assertContains(t, Format(err, nil), "chaos clean")
}

func TestFormat_Concurrent(t *testing.T) {
	assertContains(t, Format(&build.ConcurrentExecutionError{Action: build.Build}, nil),
		"already running", "Wait for the running action")
}

func TestFormat_InstallError(t *testing.T) {
	aptErr := &install.InstallError{
		Tool:    "gcc-14",
		Manager: toolchain.APT,
		Reason:  "exit 100",
		Output:  "E: Unable to locate package gcc-14",
		Err:     &executor.ExitError{Code: 100},
	}
	assertContains(t, Format(aptErr, nil), "Unable to locate package", "ppa:ubuntu-toolchain-r/test", "dpkg lock")

	noManager := &install.InstallError{Tool: "build-essential", Reason: "no supported package manager"}
	assertContains(t, Format(noManager, nil), "xcode-select --install", "Install build-essential manually")

	unknown := &install.InstallError{Tool: "emacs", Reason: "unknown tool"}
	assertContains(t, Format(unknown, nil), "--list")

	pipErr := &install.InstallError{Tool: "conan", Manager: toolchain.Pip, Reason: "exit 1"}
	assertContains(t, Format(pipErr, nil), "PEP 668", "pipx")

	timeout := &install.InstallError{Tool: "cmake", Manager: toolchain.DNF, Reason: "timed out", Err: &executor.TimeoutError{}}
	assertContains(t, Format(timeout, nil), "CHAOS_INSTALL_TIMEOUT")
}

func TestFormat_Unsupported(t *testing.T) {
	assertContains(t, Format(&platform.UnsupportedError{What: "distro", Value: "gentoo"}, nil),
		"unsupported distro: gentoo", "chaos toolchains discover")
}

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

var _ net.Error = timeoutNetErr{}

func TestFormat_NetworkErrors(t *testing.T) {
	assertContains(t, Format(timeoutNetErr{}, nil), "Request timed out", "CHAOS_HTTP_TIMEOUT")
	assertContains(t, Format(errors.New("dial tcp 1.2.3.4:443: connection refused"), nil), "Check your internet connection")
}

func TestFormat_Permission(t *testing.T) {
	assertContains(t, Format(errors.New("open /x: permission denied"), nil), "~/.chaos")
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc\n", 2); got != "b\nc" {
		t.Errorf("lastLines = %q", got)
	}
	if got := lastLines("", 2); got != "" {
		t.Errorf("lastLines of empty = %q", got)
	}
}

func TestFormat_NoSelection(t *testing.T) {
	err := fmt.Errorf("build: %w", session.ErrNoSelection)
	assertContains(t, Format(err, nil), "no toolchain selected", "chaos toolchains select", "--toolchain")
}

func TestFormat_CMakeDownloads(t *testing.T) {
	sig := &cmakedist.SignatureError{File: "cmake-3.28.1-SHA-256.txt", Fingerprint: strings.Repeat("AB", 20), Err: errors.New("invalid signature")}
	assertContains(t, Format(fmt.Errorf("fetch: %w", sig), nil), "ABAB ABAB", "cmake_signing_key")

	sum := &cmakedist.ChecksumError{File: "cmake-3.28.1-linux-x86_64.tar.gz", Expected: "aa", Actual: "bb"}
	assertContains(t, Format(sum, nil), "checksum mismatch", "chaos cmake fetch")

	rl := &cmakedist.RateLimitError{Err: errors.New("403")}
	assertContains(t, Format(rl, nil), "GITHUB_TOKEN", "--source cmake.org")
	if strings.Contains(Format(&cmakedist.RateLimitError{Authenticated: true, Err: errors.New("403")}, nil), "secrets.github_token") {
		t.Error("authenticated rate limit must not suggest setting a token")
	}
}
