package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/log"
	"github.com/chaosctl/chaos/internal/platform"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// Outcome is the result of EnsureInstalled.
type Outcome int

const (
	Installed Outcome = iota
	AlreadyPresent
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Installed:
		return "installed"
	case AlreadyPresent:
		return "already present"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// managerCommand is the command template of one package manager.
type managerCommand struct {
	install []string
	update  []string // run once per Installer before the first install
	sudo    bool
	// single managers take one package per invocation.
	single bool
}

var managerCommands = map[toolchain.PackageManager]managerCommand{
	toolchain.APT:      {install: []string{"apt-get", "install", "-y"}, update: []string{"apt-get", "update"}, sudo: true},
	toolchain.DNF:      {install: []string{"dnf", "install", "-y"}, sudo: true},
	toolchain.Pacman:   {install: []string{"pacman", "-S", "--noconfirm", "--needed"}, sudo: true},
	toolchain.Homebrew: {install: []string{"brew", "install"}},
	toolchain.Pip:      {install: []string{"pip3", "install", "--user"}},
	toolchain.Winget: {
		install: []string{"winget", "install", "--exact", "--accept-package-agreements", "--accept-source-agreements", "--id"},
		single:  true,
	},
}

// Installer installs catalog tools. It is not safe for concurrent use.
type Installer struct {
	runner   executor.Runner
	lookPath func(string) (string, error)
	useSudo  bool
	timeout  time.Duration
	logger   log.Logger
	geteuid  func() int

	updated map[toolchain.PackageManager]bool
}

// Option configures an Installer.
type Option func(*Installer)

// WithSudo controls the sudo prefix for system package managers.
func WithSudo(use bool) Option {
	return func(i *Installer) { i.useSudo = use }
}

// WithTimeout bounds each package manager invocation.
func WithTimeout(d time.Duration) Option {
	return func(i *Installer) { i.timeout = d }
}

// WithLookPath replaces exec.LookPath for presence probes.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(i *Installer) { i.lookPath = fn }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// NewInstaller returns an Installer running commands through runner.
func NewInstaller(runner executor.Runner, opts ...Option) *Installer {
	i := &Installer{
		runner:   runner,
		lookPath: exec.LookPath,
		useSudo:  true,
		geteuid:  os.Geteuid,
		updated:  make(map[toolchain.PackageManager]bool),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = log.OrDefault(i.logger)
	return i
}

// IsPresent reports whether the tool's probe binary is on PATH.
func (i *Installer) IsPresent(t Tool) bool {
	_, err := i.lookPath(t.Probe)
	return err == nil
}

// chooseManager returns the first available manager with packages for t.
func chooseManager(t Tool, caps platform.Capabilities) (toolchain.PackageManager, bool) {
	for _, m := range caps.PackageManagers {
		if _, ok := t.Packages[m]; ok {
			return m, true
		}
	}
	return "", false
}

// Commands renders the invocations that would install t, in order.
// The once-per-session update command is included when it has not run yet.
func (i *Installer) Commands(t Tool, caps platform.Capabilities) (toolchain.PackageManager, []executor.Command, error) {
	manager, ok := chooseManager(t, caps)
	if !ok {
		return "", nil, &InstallError{
			Tool:   t.Name,
			Reason: fmt.Sprintf("no supported package manager on %s (available: %v)", caps.Distro, caps.PackageManagers),
		}
	}
	tmpl, ok := managerCommands[manager]
	if !ok {
		return manager, nil, &InstallError{Tool: t.Name, Manager: manager, Reason: "package manager cannot install packages"}
	}

	var cmds []executor.Command
	for _, pre := range t.Pre {
		if pre.Manager != manager || (pre.Distro != "" && pre.Distro != caps.Distro) {
			continue
		}
		cmds = append(cmds, i.command(pre.Args, pre.Sudo))
	}
	if tmpl.update != nil && !i.updated[manager] {
		cmds = append(cmds, i.command(tmpl.update, tmpl.sudo))
	}

	install := tmpl.install
	if manager == toolchain.Pip && caps.PipBinary != "" {
		install = append([]string{caps.PipBinary}, install[1:]...)
	}
	packages := t.Packages[manager]
	if tmpl.single {
		for _, pkg := range packages {
			cmds = append(cmds, i.command(append(append([]string{}, install...), pkg), tmpl.sudo))
		}
	} else {
		cmds = append(cmds, i.command(append(append([]string{}, install...), packages...), tmpl.sudo))
	}
	return manager, cmds, nil
}

func (i *Installer) command(argv []string, sudo bool) executor.Command {
	cmd := executor.Command{Name: argv[0], Args: append([]string{}, argv[1:]...), Timeout: i.timeout}
	if sudo && i.useSudo && i.geteuid() != 0 {
		cmd = executor.Command{Name: "sudo", Args: append([]string{}, argv...), Timeout: i.timeout, Interactive: true}
	}
	return cmd
}

// EnsureInstalled installs the named tool unless its probe binary is
// already present. On Failed the error is an *InstallError.
func (i *Installer) EnsureInstalled(ctx context.Context, name string, caps platform.Capabilities) (Outcome, error) {
	t, ok := Lookup(name)
	if !ok {
		return Failed, &InstallError{Tool: name, Reason: "unknown tool"}
	}
	return i.ensure(ctx, t, caps)
}

func (i *Installer) ensure(ctx context.Context, t Tool, caps platform.Capabilities) (Outcome, error) {
	if i.IsPresent(t) {
		i.logger.Debug("tool already present", "tool", t.Name, "probe", t.Probe)
		return AlreadyPresent, nil
	}

	// Pip-only tools (conan) pull in pip first when the host lacks it.
	if _, ok := chooseManager(t, caps); !ok {
		if _, viaPip := t.Packages[toolchain.Pip]; viaPip && !caps.Has(toolchain.Pip) {
			var err error
			if caps, err = i.bootstrapPip(ctx, caps); err != nil {
				return Failed, &InstallError{Tool: t.Name, Manager: toolchain.Pip, Reason: "pip is unavailable", Err: err}
			}
		}
	}

	manager, cmds, err := i.Commands(t, caps)
	if err != nil {
		return Failed, err
	}

	i.logger.Info("installing tool", "tool", t.Name, "manager", manager)
	for _, cmd := range cmds {
		res, err := i.runner.Run(ctx, cmd)
		if err != nil {
			return Failed, &InstallError{
				Tool:    t.Name,
				Manager: manager,
				Reason:  err.Error(),
				Output:  res.Output,
				Err:     err,
			}
		}
		if isUpdate(cmd, managerCommands[manager]) {
			i.updated[manager] = true
		}
	}

	if !i.IsPresent(t) {
		// Keg-only Homebrew formulae (llvm@N) are installed off PATH.
		i.logger.Warn("tool installed but not found on PATH", "tool", t.Name, "probe", t.Probe)
	}
	return Installed, nil
}

func isUpdate(cmd executor.Command, tmpl managerCommand) bool {
	if tmpl.update == nil {
		return false
	}
	argv := append([]string{cmd.Name}, cmd.Args...)
	if cmd.Name == "sudo" {
		argv = cmd.Args
	}
	if len(argv) != len(tmpl.update) {
		return false
	}
	for k := range argv {
		if argv[k] != tmpl.update[k] {
			return false
		}
	}
	return true
}

// bootstrapPip installs pip and returns caps with Pip available.
func (i *Installer) bootstrapPip(ctx context.Context, caps platform.Capabilities) (platform.Capabilities, error) {
	pip, _ := Lookup("pip")
	if _, err := i.ensure(ctx, pip, caps); err != nil {
		return caps, err
	}
	bin := ""
	for _, candidate := range []string{"pip3", "pip"} {
		if _, err := i.lookPath(candidate); err == nil {
			bin = candidate
			break
		}
	}
	if bin == "" {
		return caps, fmt.Errorf("pip was installed but neither pip3 nor pip is on PATH")
	}
	if !caps.Has(pip.ProvidesManager) {
		caps.PackageManagers = append(append([]toolchain.PackageManager{}, caps.PackageManagers...), pip.ProvidesManager)
	}
	caps.PipBinary = bin
	return caps, nil
}

// Report is the per-tool outcome of InstallAll.
type Report struct {
	Tool    string
	Outcome Outcome
}

// InstallAll ensures every named tool in order, stopping at the first failure.
// Reports cover every tool attempted, including the failed one.
func (i *Installer) InstallAll(ctx context.Context, names []string, caps platform.Capabilities) ([]Report, error) {
	var reports []Report
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		outcome, err := i.EnsureInstalled(ctx, name, caps)
		reports = append(reports, Report{Tool: name, Outcome: outcome})
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
