// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/chaosctl/chaos/internal/build"
	"github.com/chaosctl/chaos/internal/cmakedist"
	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/install"
	"github.com/chaosctl/chaos/internal/platform"
	"github.com/chaosctl/chaos/internal/session"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	ToolName string // The tool being installed (for suggestions)
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	var notFound *toolchain.NotFoundError
	if errors.As(err, &notFound) {
		return formatNotFoundError(err, notFound)
	}

	if errors.Is(err, session.ErrNoSelection) {
		return withHints(err.Error(),
			[]string{"Build actions run against the selected toolchain"},
			[]string{"Select one with 'chaos toolchains select <index>' or menu option 05", "Or pass --toolchain <index> to the build command"})
	}

	var concurrent *build.ConcurrentExecutionError
	if errors.As(err, &concurrent) {
		return withHints(err.Error(),
			[]string{"A build action started earlier has not finished"},
			[]string{"Wait for the running action to finish, then retry"})
	}

	var failure *build.SubStepFailure
	if errors.As(err, &failure) {
		return formatSubStepFailure(err, failure)
	}

	var installErr *install.InstallError
	if errors.As(err, &installErr) {
		return formatInstallError(err, installErr, ctx)
	}

	var sigErr *cmakedist.SignatureError
	if errors.As(err, &sigErr) {
		return withHints(err.Error(),
			[]string{"The release was not signed by the configured key", "cmake_signing_key names the wrong fingerprint", "Older releases publish no signed checksum file"},
			[]string{"Check the fingerprint with 'chaos config get cmake_signing_key'", "Clear it with 'chaos config set cmake_signing_key \"\"' to skip signature checks"})
	}

	var sumErr *cmakedist.ChecksumError
	if errors.As(err, &sumErr) {
		return withHints(err.Error(),
			[]string{"The download was corrupted or truncated", "A proxy or mirror served a different file"},
			[]string{"Run 'chaos cmake fetch' again"})
	}

	var rateLimit *cmakedist.RateLimitError
	if errors.As(err, &rateLimit) {
		suggestions := []string{"Use cmake.org instead with 'chaos cmake fetch --source cmake.org'"}
		if !rateLimit.Authenticated {
			suggestions = append([]string{"Set GITHUB_TOKEN or run 'chaos config set secrets.github_token <token>'"}, suggestions...)
		}
		return withHints(err.Error(), []string{"Too many unauthenticated GitHub API requests from this address"}, suggestions)
	}

	var unsupported *platform.UnsupportedError
	if errors.As(err, &unsupported) {
		return withHints(err.Error(),
			[]string{"chaos supports Ubuntu, Debian, Fedora, Arch, macOS and Windows on x86-64 and ARM"},
			[]string{"Install tools manually and register compilers with 'chaos toolchains discover'"})
	}

	errMsg := err.Error()

	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(netErr)
	}

	if isNetworkError(errMsg) {
		return withHints(errMsg,
			[]string{"Network connectivity issue", "DNS resolution failure", "Service temporarily unavailable"},
			[]string{"Check your internet connection", "Try again in a few minutes"})
	}

	if isPermissionError(errMsg) {
		return withHints(errMsg,
			[]string{"Insufficient permissions on $CHAOS_HOME or the build directory", "File or directory owned by a different user"},
			[]string{"Check permissions on ~/.chaos and the project's build directory"})
	}

	return errMsg
}

// withHints appends "Possible causes" and "Suggestions" blocks to msg.
func withHints(msg string, causes, suggestions []string) string {
	var sb strings.Builder
	sb.WriteString(msg)
	sb.WriteString("\n")

	if len(causes) > 0 {
		sb.WriteString("\nPossible causes:\n")
		for _, c := range causes {
			sb.WriteString("  - " + c + "\n")
		}
	}
	if len(suggestions) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, s := range suggestions {
			sb.WriteString("  - " + s + "\n")
		}
	}
	return sb.String()
}

func formatNotFoundError(err error, nf *toolchain.NotFoundError) string {
	switch nf.Kind {
	case toolchain.IndexOutOfRange:
		if nf.Size == 0 {
			return withHints(err.Error(),
				[]string{"No compiler has been installed or discovered yet"},
				[]string{"Install a compiler with 'chaos install-compiler gcc-14'", "Register installed compilers with 'chaos toolchains discover'"})
		}
		return withHints(err.Error(),
			[]string{"Indices shift down after a toolchain is removed"},
			[]string{"Run 'chaos toolchains list' to see the current numbering"})
	case toolchain.NoMatch:
		return withHints(err.Error(),
			[]string{"Partial requests never match: all five dimensions must be given"},
			[]string{"Select the toolchain by its number from 'chaos toolchains list'"})
	case toolchain.AmbiguousID:
		return withHints(err.Error(), nil,
			[]string{"Use the full id or the number shown by 'chaos toolchains list --json'"})
	}
	return withHints(err.Error(), nil,
		[]string{"Run 'chaos toolchains list' to see registered toolchains"})
}

func formatSubStepFailure(err error, f *build.SubStepFailure) string {
	var timeout *executor.TimeoutError
	if errors.As(err, &timeout) {
		return withHints(err.Error(),
			[]string{fmt.Sprintf("%s ran longer than %s", f.Step, timeout.Timeout)},
			[]string{"Raise the limit with CHAOS_STEP_TIMEOUT (e.g. CHAOS_STEP_TIMEOUT=2h)"})
	}
	var interrupted *executor.InterruptedError
	if errors.As(err, &interrupted) {
		return withHints(err.Error(), nil,
			[]string{"Completed steps are not undone; run 'chaos clean' for a fresh build tree"})
	}

	msg := err.Error()
	if tail := lastLines(f.Output, 20); tail != "" {
		msg += "\n\nLast output:\n" + tail
	}

	switch f.Step {
	case build.GenerateConanProfile:
		return withHints(msg,
			[]string{"The compiler toolchain file for this profile is missing", "The build directory is not writable"},
			[]string{"Check the project's Toolchains directory (toolchains_dir in chaos.toml)"})
	case build.ConanInstall:
		return withHints(msg,
			[]string{"A dependency has no prebuilt binary and failed to build", "The Conan remote is unreachable", "conanfile.txt or conanfile.py is missing"},
			[]string{"Run 'conan profile detect' once if Conan has never been used", "Check the Conan output above for the failing package"})
	case build.CMakeConfigure:
		return withHints(msg,
			[]string{"CMakeLists.txt has an error", "conan_toolchain.cmake was not generated"},
			[]string{"Run 'chaos rebuild' to regenerate the build tree from scratch"})
	case build.CMakeBuild:
		return withHints(msg,
			[]string{"The project does not compile with this toolchain"},
			[]string{"Fix the compile errors above, then run 'chaos build'"})
	case build.CTestRun:
		return withHints(msg,
			[]string{"One or more tests failed"},
			[]string{"Re-run a single test with 'ctest --test-dir <build> -R <name> -V'"})
	case build.RemoveBuildDir:
		return withHints(msg,
			[]string{"A file in the build directory is in use or not owned by you"},
			nil)
	}
	return msg
}

func formatInstallError(err error, ie *install.InstallError, ctx *ErrorContext) string {
	tool := ie.Tool
	if tool == "" && ctx != nil {
		tool = ctx.ToolName
	}

	if ie.Reason == "unknown tool" {
		return withHints(err.Error(), nil,
			[]string{"Run 'chaos install-tools --list' to see installable tools"})
	}

	if ie.Manager == "" {
		return withHints(err.Error(),
			[]string{"No package manager that carries " + tool + " was found"},
			[]string{
				"On macOS install Homebrew and the Xcode command line tools (xcode-select --install)",
				"Install " + tool + " manually, then re-run chaos",
			})
	}

	var timeout *executor.TimeoutError
	if errors.As(err, &timeout) {
		return withHints(err.Error(),
			[]string{"The package manager is waiting on a lock or a slow mirror"},
			[]string{"Raise the limit with CHAOS_INSTALL_TIMEOUT (e.g. CHAOS_INSTALL_TIMEOUT=1h)"})
	}

	causes := []string{"The package is not available in the configured repositories", "Network connectivity issue"}
	suggestions := []string{"Refresh the package index and retry"}
	switch ie.Manager {
	case toolchain.APT:
		causes = append(causes, "Another apt process holds the dpkg lock")
		suggestions = append(suggestions, "Newer GCC releases on Ubuntu come from ppa:ubuntu-toolchain-r/test")
	case toolchain.Pip:
		causes = append(causes, "The Python installation is externally managed (PEP 668)")
		suggestions = append(suggestions, "Install "+tool+" with pipx or your system package manager")
	}

	msg := err.Error()
	if tail := lastLines(ie.Output, 10); tail != "" {
		msg += "\n\nLast output:\n" + tail
	}
	return withHints(msg, causes, suggestions)
}

func formatNetworkError(err net.Error) string {
	causes := []string{"Network connectivity issue", "DNS resolution failure"}
	if err.Timeout() {
		causes = []string{"Request timed out", "Slow or unstable network connection"}
	}
	causes = append(causes, "Firewall or proxy blocking the connection")

	suggestions := []string{"Check your internet connection", "Try again in a few minutes"}
	if err.Timeout() {
		suggestions = append(suggestions, "Raise CHAOS_HTTP_TIMEOUT if you are behind a slow proxy")
	}
	return withHints(err.Error(), causes, suggestions)
}

// lastLines returns up to n trailing non-empty lines of s.
func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// isNetworkError checks if the error message indicates a network issue
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "i/o timeout")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
