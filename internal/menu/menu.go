// Package menu is the numbered control-center menu. It is the only layer
// that deals in menu indices: every toolchain index typed by the user is
// translated to a stable ID before it reaches the session.
package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gookit/color"

	"github.com/chaosctl/chaos/internal/build"
	"github.com/chaosctl/chaos/internal/cmakedist"
	"github.com/chaosctl/chaos/internal/errmsg"
	"github.com/chaosctl/chaos/internal/install"
	"github.com/chaosctl/chaos/internal/platform"
	"github.com/chaosctl/chaos/internal/project"
	"github.com/chaosctl/chaos/internal/session"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// DefaultMinCMake is offered when fetching CMake releases.
const DefaultMinCMake = "3.20.0"

// Controller is the session surface the menu drives.
type Controller interface {
	Capabilities() (platform.Capabilities, error)
	Project() *project.Project
	Toolchains() []toolchain.Entry
	Selected() (toolchain.Entry, bool)
	Resolver() *toolchain.Resolver

	Discover() ([]toolchain.Entry, error)
	InstallTools(ctx context.Context) ([]install.Report, error)
	InstallCompiler(ctx context.Context, name string) ([]toolchain.Entry, error)
	InstallAllCompilers(ctx context.Context) ([]toolchain.Entry, error)
	Select(id toolchain.ID) (toolchain.Entry, error)
	Remove(id toolchain.ID) (toolchain.Profile, error)
	Run(ctx context.Context, action build.Action, id toolchain.ID) (*build.Result, error)
	FetchCMake(ctx context.Context, source string, min *semver.Version, latestPatchOnly bool) ([]cmakedist.Binary, error)
}

// InvalidOptionError reports a menu option that is not a listed number.
type InvalidOptionError struct {
	Input string
	Max   int
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("the option number %q is invalid (valid: 00-%02d)", e.Input, e.Max)
}

type item struct {
	section string // printed before the item when not empty
	title   string
	run     func(ctx context.Context) error
}

// Menu renders the options and dispatches the chosen one.
type Menu struct {
	ctl    Controller
	prompt *Prompter
	out    io.Writer
	items  []item
}

// New returns a menu reading answers from in and writing to out.
func New(ctl Controller, in io.Reader, out io.Writer) *Menu {
	m := &Menu{ctl: ctl, prompt: NewPrompter(in, out), out: out}
	m.items = []item{
		{section: "Configure Development Environment", title: "Show the host and project status.", run: m.status},
		{title: "Discover installed compilers and profiles.", run: m.discover},
		{title: "Install all required development tools.", run: m.installTools},
		{section: "Manage Compiler Toolchains", title: "Install a GCC compiler.", run: m.installCompiler("GCC", "gcc", install.GCCVersions)},
		{title: "Install a Clang compiler.", run: m.installCompiler("Clang", "clang", install.ClangVersions)},
		{title: "Select a compiler toolchain.", run: m.selectToolchain},
		{title: "Install all supported compilers.", run: m.installAllCompilers},
		{section: "Build, Test & Clean Projects", title: "Build the project.", run: m.runAction(build.Build)},
		{title: "Rebuild the project and run all tests.", run: m.runAction(build.RebuildAndTest)},
		{title: "Configure the project.", run: m.runAction(build.Configure)},
		{title: "Run all tests.", run: m.runAction(build.Test)},
		{title: "Clean the build folder.", run: m.runAction(build.Clean)},
		{section: "Maintenance", title: "Remove a compiler toolchain.", run: m.removeToolchain},
		{title: "Fetch CMake releases.", run: m.fetchCMake},
	}
	return m
}

// Len returns the number of options.
func (m *Menu) Len() int { return len(m.items) }

// ParseOption converts "5" or "05" to an option number.
func (m *Menu) ParseOption(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n >= len(m.items) {
		return 0, &InvalidOptionError{Input: s, Max: len(m.items) - 1}
	}
	return n, nil
}

// Render prints the menu.
func (m *Menu) Render() {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, color.Bold.Sprint("==============================="))
	fmt.Fprintln(m.out, color.Bold.Sprint("Welcome to Chaos Control Center"))
	fmt.Fprintln(m.out, color.Bold.Sprint("==============================="))
	if sel, ok := m.ctl.Selected(); ok {
		fmt.Fprintf(m.out, "Selected toolchain: %s\n", color.Green.Sprint(sel.Profile.FileName()))
	}
	for i, it := range m.items {
		if it.section != "" {
			fmt.Fprintln(m.out)
			fmt.Fprintln(m.out, color.Bold.Sprint(">> "+it.section))
			fmt.Fprintln(m.out)
		}
		fmt.Fprintf(m.out, "%s %s\n", color.Cyan.Sprintf("[%02d]", i), it.title)
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "Press Ctrl-C or Ctrl-D to exit the menu.")
}

// RunOption runs one option. Follow-up questions are answered from the
// menu's input; an exhausted input yields ErrNoInput.
func (m *Menu) RunOption(ctx context.Context, option int) error {
	if option < 0 || option >= len(m.items) {
		return &InvalidOptionError{Input: strconv.Itoa(option), Max: len(m.items) - 1}
	}
	return m.items[option].run(ctx)
}

// Run is the interactive loop. It returns nil when the user leaves the menu
// and the error of any failure that needs the user's intervention.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Render()
		answer, err := m.prompt.Ask(ctx, "Input the number and press ENTER: ")
		if errors.Is(err, ErrNoInput) {
			fmt.Fprintln(m.out, "Goodbye.")
			return nil
		}
		if err != nil {
			return err
		}
		switch strings.ToLower(answer) {
		case "q", "quit", "exit":
			fmt.Fprintln(m.out, "Goodbye.")
			return nil
		}
		if _, err := strconv.Atoi(answer); err != nil {
			fmt.Fprintln(m.out, "Not a number! Please try again.")
			continue
		}
		option, err := m.ParseOption(answer)
		if err != nil {
			fmt.Fprintln(m.out, color.Red.Sprint(err.Error()))
			continue
		}

		err = m.items[option].run(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoInput):
			fmt.Fprintln(m.out, "Goodbye.")
			return nil
		case Recoverable(err):
			m.printError(err)
		default:
			return err
		}

		if _, err := m.prompt.Ask(ctx, "\nPress ENTER to continue..."); errors.Is(err, ErrNoInput) {
			fmt.Fprintln(m.out, "Goodbye.")
			return nil
		} else if err != nil {
			return err
		}
	}
}

// Recoverable reports errors that send the user back to the menu instead of
// ending the session.
func Recoverable(err error) bool {
	var notFound *toolchain.NotFoundError
	var concurrent *build.ConcurrentExecutionError
	return errors.As(err, &notFound) || errors.As(err, &concurrent) || errors.Is(err, session.ErrNoSelection)
}

func (m *Menu) printError(err error) {
	fmt.Fprintf(m.out, "%s %s\n", color.Red.Sprint("Error:"), errmsg.Format(err, nil))
}

// promptEntry asks for a toolchain index and translates it to an ID,
// re-prompting while the index is out of range.
func (m *Menu) promptEntry(ctx context.Context, prompt string) (toolchain.ID, error) {
	if len(m.ctl.Toolchains()) == 0 {
		return "", &toolchain.NotFoundError{Kind: toolchain.IndexOutOfRange}
	}
	var lastErr error
	for {
		n, err := m.prompt.AskInt(ctx, prompt)
		if errors.Is(err, ErrNoInput) && lastErr != nil {
			return "", lastErr
		}
		if err != nil {
			return "", err
		}
		id, err := m.ctl.Resolver().ResolveID(n)
		if err == nil {
			return id, nil
		}
		var notFound *toolchain.NotFoundError
		if !errors.As(err, &notFound) || notFound.Size == 0 {
			return "", err
		}
		m.printError(err)
		lastErr = err
	}
}

func (m *Menu) status(ctx context.Context) error {
	caps, err := m.ctl.Capabilities()
	if err != nil {
		return err
	}
	proj := m.ctl.Project()
	fmt.Fprintf(m.out, "Host:       %s\n", caps)
	fmt.Fprintf(m.out, "Project:    %s (%s)\n", proj.Name, proj.Root)
	fmt.Fprintf(m.out, "Toolchains: %d registered\n", len(m.ctl.Toolchains()))
	if sel, ok := m.ctl.Selected(); ok {
		fmt.Fprintf(m.out, "Selected:   [%d] %s\n", sel.Index, sel.Profile)
	} else {
		fmt.Fprintln(m.out, "Selected:   none")
	}
	return nil
}

func (m *Menu) discover(ctx context.Context) error {
	entries, err := m.ctl.Discover()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(m.out, "No compilers or profiles found.")
		return nil
	}
	fmt.Fprintf(m.out, "Found %d toolchain(s):\n", len(entries))
	m.printToolchains(entries)
	return nil
}

func (m *Menu) installTools(ctx context.Context) error {
	reports, err := m.ctl.InstallTools(ctx)
	for _, r := range reports {
		mark := color.Green.Sprint("✓")
		if r.Outcome == install.Failed {
			mark = color.Red.Sprint("✗")
		}
		fmt.Fprintf(m.out, "%s %s (%s)\n", mark, r.Tool, r.Outcome)
	}
	return err
}

func (m *Menu) installCompiler(display, prefix string, versions []int) func(context.Context) error {
	return func(ctx context.Context) error {
		offered := make([]string, len(versions))
		for i, v := range versions {
			offered[i] = strconv.Itoa(v)
		}
		prompt := fmt.Sprintf("%s version (%s): ", display, strings.Join(offered, ", "))
		for {
			v, err := m.prompt.AskInt(ctx, prompt)
			if err != nil {
				return err
			}
			if !slices.Contains(versions, v) {
				fmt.Fprintf(m.out, "%s %d is not offered.\n", display, v)
				continue
			}
			entries, err := m.ctl.InstallCompiler(ctx, fmt.Sprintf("%s-%d", prefix, v))
			if err != nil {
				return err
			}
			fmt.Fprintf(m.out, "%s %d is ready. Registered toolchains:\n", display, v)
			m.printToolchains(entries)
			return nil
		}
	}
}

func (m *Menu) installAllCompilers(ctx context.Context) error {
	entries, err := m.ctl.InstallAllCompilers(ctx)
	if len(entries) > 0 {
		fmt.Fprintf(m.out, "Registered %d toolchain(s).\n", len(entries))
	}
	return err
}

func (m *Menu) selectToolchain(ctx context.Context) error {
	m.printToolchains(m.ctl.Toolchains())
	id, err := m.promptEntry(ctx, "Toolchain index: ")
	if err != nil {
		return err
	}
	entry, err := m.ctl.Select(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Selected [%d] %s\n", entry.Index, color.Green.Sprint(entry.Profile.FileName()))
	return nil
}

func (m *Menu) removeToolchain(ctx context.Context) error {
	m.printToolchains(m.ctl.Toolchains())
	id, err := m.promptEntry(ctx, "Toolchain index to remove: ")
	if err != nil {
		return err
	}
	p, err := m.ctl.Remove(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Removed %s\n", p.FileName())
	return nil
}

func (m *Menu) runAction(action build.Action) func(context.Context) error {
	return func(ctx context.Context) error {
		result, err := m.ctl.Run(ctx, action, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(m.out, "%s %s finished for %s\n", color.Green.Sprint("✓"), action, result.Profile.FileName())
		return nil
	}
}

func (m *Menu) fetchCMake(ctx context.Context) error {
	var min *semver.Version
	for min == nil {
		answer, err := m.prompt.Ask(ctx, fmt.Sprintf("Minimum CMake version [%s]: ", DefaultMinCMake))
		if err != nil {
			return err
		}
		if answer == "" {
			answer = DefaultMinCMake
		}
		if min, err = semver.NewVersion(answer); err != nil {
			fmt.Fprintf(m.out, "%q is not a version.\n", answer)
		}
	}
	latestOnly, err := m.prompt.Confirm(ctx, "Only the latest patch of each series?", true)
	if err != nil {
		return err
	}
	binaries, err := m.ctl.FetchCMake(ctx, "", min, latestOnly)
	for _, b := range binaries {
		state := "already present"
		if b.Downloaded {
			state = "downloaded"
		}
		fmt.Fprintf(m.out, "CMake %s: %s (%s)\n", b.Version, b.Path, state)
	}
	return err
}

func (m *Menu) printToolchains(entries []toolchain.Entry) {
	sel, _ := m.ctl.Selected()
	WriteToolchains(m.out, entries, sel.ID)
}

// WriteToolchains prints entries as a numbered list, marking selected.
func WriteToolchains(w io.Writer, entries []toolchain.Entry, selected toolchain.ID) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No toolchains registered.")
		return
	}
	for _, e := range entries {
		marker := " "
		if selected != "" && e.ID == selected {
			marker = color.Green.Sprint("*")
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, color.Cyan.Sprintf("[%02d]", e.Index), e.Profile)
	}
}
