// Package platform detects the host environment chaos runs on: operating
// system, CPU architecture, Linux distribution and the package managers
// available to install tools with.
package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"runtime"

	"github.com/chaosctl/chaos/internal/toolchain"
)

// DefaultOSReleasePath is where Linux distributions describe themselves.
const DefaultOSReleasePath = "/etc/os-release"

// managerBinaries maps each package manager to the binary that proves it is usable.
var managerBinaries = []struct {
	manager toolchain.PackageManager
	binary  string
}{
	{toolchain.APT, "apt-get"},
	{toolchain.DNF, "dnf"},
	{toolchain.Pacman, "pacman"},
	{toolchain.Homebrew, "brew"},
	{toolchain.Winget, "winget"},
}

// pipBinaries are tried in order; the first found is used for Pip installs.
var pipBinaries = []string{"pip3", "pip"}

// Capabilities describes the host.
type Capabilities struct {
	OS            string // GOOS value
	Arch          toolchain.Architecture
	Distro        toolchain.Distro
	DistroVersion string
	Family        string // Linux family ("debian", "rhel", "arch"); empty elsewhere
	// PackageManagers lists usable managers in preference order: the native
	// system manager first, then Pip. Default is appended when nothing else
	// is available so the list is never empty.
	PackageManagers []toolchain.PackageManager
	// PipBinary is the pip executable found on PATH, if any.
	PipBinary string
}

// Preferred returns the first package manager in preference order.
func (c Capabilities) Preferred() toolchain.PackageManager {
	if len(c.PackageManagers) == 0 {
		return toolchain.Default
	}
	return c.PackageManagers[0]
}

// Has reports whether pm is available on the host.
func (c Capabilities) Has(pm toolchain.PackageManager) bool {
	for _, m := range c.PackageManagers {
		if m == pm {
			return true
		}
	}
	return false
}

// SystemManager returns the native package manager, or Default when the
// host has none. Pip never installs compilers, so it is skipped.
func (c Capabilities) SystemManager() toolchain.PackageManager {
	for _, m := range c.PackageManagers {
		if m != toolchain.Pip {
			return m
		}
	}
	return toolchain.Default
}

// Host returns the profile dimensions fixed by this machine.
func (c Capabilities) Host() toolchain.Host {
	return toolchain.Host{
		Architecture:   c.Arch,
		Distro:         c.Distro,
		PackageManager: c.SystemManager(),
	}
}

// String returns a one-line summary for display.
func (c Capabilities) String() string {
	version := ""
	if c.DistroVersion != "" {
		version = " " + c.DistroVersion
	}
	return fmt.Sprintf("%s%s (%s/%s), package managers: %v", c.Distro, version, c.OS, c.Arch, c.PackageManagers)
}

// UnsupportedError is returned when the host cannot be mapped onto a
// supported distro or architecture.
type UnsupportedError struct {
	What  string
	Value string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.What, e.Value)
}

// Probe detects capabilities. The zero value probes the real host.
type Probe struct {
	LookPath      func(file string) (string, error)
	OSReleasePath string
	GOOS          string
	GOARCH        string
}

func (p Probe) lookPath() func(string) (string, error) {
	if p.LookPath != nil {
		return p.LookPath
	}
	return exec.LookPath
}

// Detect inspects the host and returns its capabilities.
func (p Probe) Detect() (Capabilities, error) {
	goos := p.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	goarch := p.GOARCH
	if goarch == "" {
		goarch = runtime.GOARCH
	}

	arch, err := toolchain.ParseArchitecture(goarch)
	if err != nil {
		return Capabilities{}, &UnsupportedError{What: "architecture", Value: goarch}
	}
	caps := Capabilities{OS: goos, Arch: arch}

	var native toolchain.PackageManager
	switch goos {
	case "darwin":
		caps.Distro = toolchain.MacOS
		native = toolchain.Homebrew
	case "windows":
		caps.Distro = toolchain.Windows
		native = toolchain.Winget
	case "linux":
		if err := p.detectLinux(&caps); err != nil {
			return Capabilities{}, err
		}
		native = familyManager[caps.Family]
	default:
		return Capabilities{}, &UnsupportedError{What: "operating system", Value: goos}
	}

	caps.PackageManagers = p.detectManagers(native, &caps)
	return caps, nil
}

func (p Probe) detectLinux(caps *Capabilities) error {
	path := p.OSReleasePath
	if path == "" {
		path = DefaultOSReleasePath
	}

	release, err := ParseOSRelease(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &UnsupportedError{What: "distro", Value: "unknown (no " + path + ")"}
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	family, err := MapDistroToFamily(release.ID, release.IDLike)
	if err != nil {
		return &UnsupportedError{What: "distro", Value: release.ID}
	}
	distro, err := release.Distro()
	if err != nil {
		return &UnsupportedError{What: "distro", Value: release.ID}
	}

	caps.Family = family
	caps.Distro = distro
	caps.DistroVersion = release.VersionID
	return nil
}

// detectManagers returns available managers, native one first.
func (p Probe) detectManagers(native toolchain.PackageManager, caps *Capabilities) []toolchain.PackageManager {
	lookPath := p.lookPath()
	var managers []toolchain.PackageManager

	for _, mb := range managerBinaries {
		if mb.manager != native {
			continue
		}
		if _, err := lookPath(mb.binary); err == nil {
			managers = append(managers, native)
		}
	}

	for _, bin := range pipBinaries {
		if _, err := lookPath(bin); err == nil {
			managers = append(managers, toolchain.Pip)
			caps.PipBinary = bin
			break
		}
	}

	if len(managers) == 0 {
		managers = append(managers, toolchain.Default)
	}
	return managers
}
