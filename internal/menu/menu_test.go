package menu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/require"

	"github.com/chaosctl/chaos/internal/build"
	"github.com/chaosctl/chaos/internal/log"
	"github.com/chaosctl/chaos/internal/platform"
	"github.com/chaosctl/chaos/internal/project"
	"github.com/chaosctl/chaos/internal/session"
	"github.com/chaosctl/chaos/internal/testutil"
	"github.com/chaosctl/chaos/internal/toolchain"
	"github.com/chaosctl/chaos/internal/userconfig"
)

func TestMain(m *testing.M) {
	color.Enable = false
	os.Exit(m.Run())
}

type harness struct {
	host    *testutil.FakeHost
	project string
	sess    *session.Session
	out     bytes.Buffer
}

// newHarness opens a session on a fake Ubuntu host where gcc-13 and gcc-14
// are installed.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		host:    testutil.NewFakeHost("apt-get", "make", "gcc-13", "g++-13", "gcc-14", "g++-14"),
		project: testutil.NewProject(t, ""),
	}
	osRelease := filepath.Join(t.TempDir(), "os-release")
	testutil.WriteFile(t, osRelease, "ID=ubuntu\nID_LIKE=debian\nVERSION_ID=\"22.04\"\n")
	user := userconfig.DefaultConfig()
	user.UseSudo = false

	sess, err := session.Open(session.Options{
		Config:     testutil.NewTestConfig(t),
		User:       user,
		ProjectDir: h.project,
		Runner:     h.host,
		LookPath:   h.host.LookPath,
		Probe:      &platform.Probe{LookPath: h.host.LookPath, OSReleasePath: osRelease, GOOS: "linux", GOARCH: "amd64"},
		Discoverer: &toolchain.Discoverer{LookPath: h.host.LookPath},
		Logger:     log.NewNoop(),
	})
	require.NoError(t, err)
	h.sess = sess
	return h
}

func (h *harness) menu(input ...string) *Menu {
	return New(h.sess, strings.NewReader(strings.Join(input, "\n")), &h.out)
}

// discover registers GCC-13 and GCC-14 in Debug and Release.
func (h *harness) discover(t *testing.T) []toolchain.Entry {
	t.Helper()
	entries, err := h.sess.Discover()
	require.NoError(t, err)
	require.Len(t, entries, 4)
	return entries
}

func TestParseOption(t *testing.T) {
	m := newHarness(t).menu()
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"00", 0, false},
		{"5", 5, false},
		{"05", 5, false},
		{" 13 ", 13, false},
		{"14", 0, true},
		{"-1", 0, true},
		{"eight", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := m.ParseOption(tt.input)
			if tt.wantErr {
				var invalid *InvalidOptionError
				require.True(t, errors.As(err, &invalid))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRenderListsOptions(t *testing.T) {
	h := newHarness(t)
	h.menu().Render()
	out := h.out.String()
	require.Contains(t, out, "[02] Install all required development tools.")
	require.Contains(t, out, "[05] Select a compiler toolchain.")
	require.Contains(t, out, "[08] Rebuild the project and run all tests.")
	require.Contains(t, out, "[13] Fetch CMake releases")
	require.Contains(t, out, ">> Build, Test & Clean Projects")
}

func TestSelectByIndex(t *testing.T) {
	h := newHarness(t)
	entries := h.discover(t)

	require.NoError(t, h.menu("2").RunOption(context.Background(), 5))
	sel, ok := h.sess.Selected()
	require.True(t, ok)
	require.Equal(t, entries[1].ID, sel.ID)
	require.Contains(t, h.out.String(), "Selected [2] x86-64_GCC-13_Ubuntu_APT_Release")
}

func TestSelectRepromptsOnBadIndex(t *testing.T) {
	h := newHarness(t)
	entries := h.discover(t)

	require.NoError(t, h.menu("nine", "9", "4").RunOption(context.Background(), 5))
	sel, ok := h.sess.Selected()
	require.True(t, ok)
	require.Equal(t, entries[3].ID, sel.ID)
	out := h.out.String()
	require.Contains(t, out, "Not a number!")
	require.Contains(t, out, "toolchain 9 not found: valid range is 1-4")
}

func TestSelectOutOfRangeWithoutMoreInput(t *testing.T) {
	h := newHarness(t)
	h.discover(t)

	err := h.menu("9").RunOption(context.Background(), 5)
	var notFound *toolchain.NotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, 9, notFound.Index)
	_, ok := h.sess.Selected()
	require.False(t, ok)
}

func TestSelectEmptyRegistry(t *testing.T) {
	h := newHarness(t)
	err := h.menu("1").RunOption(context.Background(), 5)
	var notFound *toolchain.NotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Contains(t, h.out.String(), "No toolchains registered.")
}

func TestSelectWithoutAnswer(t *testing.T) {
	h := newHarness(t)
	h.discover(t)
	require.ErrorIs(t, h.menu().RunOption(context.Background(), 5), ErrNoInput)
}

func TestRemoveShiftsIndices(t *testing.T) {
	h := newHarness(t)
	entries := h.discover(t)

	require.NoError(t, h.menu("1").RunOption(context.Background(), 12))
	require.Contains(t, h.out.String(), "Removed x86-64_GCC-13_Ubuntu_APT_Debug")

	id, err := h.sess.Resolver().ResolveID(1)
	require.NoError(t, err)
	require.Equal(t, entries[1].ID, id)
}

func TestInstallCompilerOption(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.menu("9", "14").RunOption(context.Background(), 3))
	require.Contains(t, h.out.String(), "GCC 9 is not offered.")
	require.Contains(t, h.out.String(), "GCC 14 is ready.")
	require.Len(t, h.sess.Toolchains(), 2)
	require.Empty(t, h.host.Calls(), "gcc-14 is already on PATH")
}

func TestInstallToolsOption(t *testing.T) {
	h := newHarness(t)
	h.host.Provides["cmake"] = []string{"cmake"}
	h.host.Provides["python3-pip"] = []string{"pip3"}

	require.NoError(t, h.menu().RunOption(context.Background(), 2))
	out := h.out.String()
	require.Contains(t, out, "build-essential (already present)")
	require.Contains(t, out, "cmake (installed)")
	require.Contains(t, out, "conan (installed)")
}

func TestBuildOptionRequiresSelection(t *testing.T) {
	h := newHarness(t)
	h.discover(t)

	err := h.menu().RunOption(context.Background(), 8)
	require.ErrorIs(t, err, session.ErrNoSelection)
	require.True(t, Recoverable(err))
}

func TestRebuildAndTestOption(t *testing.T) {
	h := newHarness(t)
	entries := h.discover(t)
	testutil.WriteToolchainFiles(t, filepath.Join(h.project, project.DefaultToolchainsDir), entries[2].Profile)
	_, err := h.sess.Select(entries[2].ID)
	require.NoError(t, err)

	require.NoError(t, h.menu().RunOption(context.Background(), 8))
	require.Len(t, h.host.CallsTo("ctest"), 1)
	require.Contains(t, h.out.String(), "rebuild finished for x86-64_GCC-14_Ubuntu_APT_Debug")
}

func TestRebuildFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	entries := h.discover(t)
	testutil.WriteToolchainFiles(t, filepath.Join(h.project, project.DefaultToolchainsDir), entries[0].Profile)
	_, err := h.sess.Select(entries[0].ID)
	require.NoError(t, err)
	h.host.Fail["cmake"] = 2

	err = h.menu().RunOption(context.Background(), 8)
	var failure *build.SubStepFailure
	require.True(t, errors.As(err, &failure))
	require.False(t, Recoverable(err))
	require.Empty(t, h.host.CallsTo("ctest"))
}

func TestInteractiveLoop(t *testing.T) {
	h := newHarness(t)
	h.discover(t)

	// Bad input, an invalid option, a selection that re-prompts, the
	// status screen, then quit.
	m := h.menu(
		"abc",
		"42",
		"05", "7", "3", "",
		"00", "",
		"q",
	)
	require.NoError(t, m.Run(context.Background()))

	out := h.out.String()
	require.Contains(t, out, "Not a number! Please try again.")
	require.Contains(t, out, `the option number "42" is invalid`)
	require.Contains(t, out, "toolchain 7 not found")
	require.Contains(t, out, "Selected [3] x86-64_GCC-14_Ubuntu_APT_Debug")
	require.Contains(t, out, "Selected:   [3]")
	require.Contains(t, out, "Goodbye.")
}

func TestInteractiveNoSelectionIsNotFatal(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.menu("07", "", "q").Run(context.Background()))
	require.Contains(t, h.out.String(), "no toolchain selected")
}

func TestInteractiveEndOfInput(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.menu().Run(context.Background()))
	require.Contains(t, h.out.String(), "Goodbye.")
}

func TestInteractiveStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, h.menu("00").Run(ctx), context.Canceled)
}

func TestInteractiveStopsOnCancelWhileWaiting(t *testing.T) {
	h := newHarness(t)
	in, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	m := New(h.sess, in, &h.out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Nothing is ever written, so Run is blocked on the first prompt.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("menu did not return after cancellation")
	}
}

func TestAskKeepsLineReadBeforeCancel(t *testing.T) {
	in, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	var out bytes.Buffer
	p := NewPrompter(in, &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Ask(ctx, "first: ")
	require.ErrorIs(t, err, context.Canceled)

	go func() { _, _ = io.WriteString(w, "7\n") }()
	n, err := p.AskInt(context.Background(), "second: ")
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestWriteToolchainsMarksSelection(t *testing.T) {
	h := newHarness(t)
	entries := h.discover(t)

	var buf bytes.Buffer
	WriteToolchains(&buf, entries, entries[1].ID)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[1], "*[02]"))
	require.True(t, strings.HasPrefix(lines[0], " [01]"))

	buf.Reset()
	WriteToolchains(&buf, nil, "")
	require.Equal(t, "No toolchains registered.\n", buf.String())
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{"\n", true, true},
		{"\n", false, false},
		{"y\n", false, true},
		{"maybe\nno\n", true, false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrompter(strings.NewReader(tt.input), &out)
		got, err := p.Confirm(context.Background(), "Continue?", tt.def)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
