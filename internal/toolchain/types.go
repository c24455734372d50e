// Package toolchain models compiler toolchain profiles and the registry
// that holds them.
//
// A Profile is the full (architecture, compiler, build type, distro,
// package manager) tuple that drives one build. Profiles are plain
// comparable values: two profiles are the same toolchain iff all five
// fields are equal.
package toolchain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Architecture is the target CPU architecture.
type Architecture string

const (
	ArchX8664 Architecture = "x86-64"
	ArchARM64 Architecture = "arm64"
	ArchARM32 Architecture = "arm32"
)

var archAliases = map[string]Architecture{
	"x86-64":  ArchX8664,
	"x86_64":  ArchX8664,
	"amd64":   ArchX8664,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
	"arm32":   ArchARM32,
	"arm":     ArchARM32,
	"armv7l":  ArchARM32,
}

// ParseArchitecture accepts canonical names and common aliases
// (GOARCH values, uname -m output).
func ParseArchitecture(s string) (Architecture, error) {
	if a, ok := archAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a, nil
	}
	return "", fmt.Errorf("unknown architecture: %q", s)
}

// ConanArch returns the architecture in Conan's settings vocabulary.
func (a Architecture) ConanArch() string {
	switch a {
	case ArchX8664:
		return "x86_64"
	case ArchARM64:
		return "armv8"
	case ArchARM32:
		return "armv7"
	}
	return string(a)
}

// BuildType is the CMake build configuration.
type BuildType string

const (
	Debug          BuildType = "Debug"
	Release        BuildType = "Release"
	RelWithDebInfo BuildType = "RelWithDebInfo"
	MinSizeRel     BuildType = "MinSizeRel"
)

// BuildTypes lists every build type in display order.
var BuildTypes = []BuildType{Debug, Release, RelWithDebInfo, MinSizeRel}

// ParseBuildType matches a build type case-insensitively.
func ParseBuildType(s string) (BuildType, error) {
	for _, bt := range BuildTypes {
		if strings.EqualFold(string(bt), strings.TrimSpace(s)) {
			return bt, nil
		}
	}
	return "", fmt.Errorf("unknown build type: %q", s)
}

// Distro is the host operating-system distribution.
type Distro string

const (
	Ubuntu  Distro = "Ubuntu"
	Debian  Distro = "Debian"
	Fedora  Distro = "Fedora"
	Arch    Distro = "Arch"
	MacOS   Distro = "macOS"
	Windows Distro = "Windows"
)

// Distros lists every supported distribution.
var Distros = []Distro{Ubuntu, Debian, Fedora, Arch, MacOS, Windows}

// ParseDistro matches a distro case-insensitively, accepting os-release IDs.
func ParseDistro(s string) (Distro, error) {
	s = strings.TrimSpace(s)
	for _, d := range Distros {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	switch strings.ToLower(s) {
	case "darwin":
		return MacOS, nil
	case "archlinux":
		return Arch, nil
	}
	return "", fmt.Errorf("unknown distro: %q", s)
}

// ConanOS returns the distro's operating system in Conan's vocabulary.
func (d Distro) ConanOS() string {
	switch d {
	case MacOS:
		return "Macos"
	case Windows:
		return "Windows"
	}
	return "Linux"
}

// PackageManager identifies the tool a toolchain was installed with.
type PackageManager string

const (
	APT      PackageManager = "APT"
	DNF      PackageManager = "DNF"
	Pacman   PackageManager = "Pacman"
	Homebrew PackageManager = "Homebrew"
	Pip      PackageManager = "Pip"
	Winget   PackageManager = "Winget"
	Default  PackageManager = "Default"
)

// PackageManagers lists every package manager kind.
var PackageManagers = []PackageManager{APT, DNF, Pacman, Homebrew, Pip, Winget, Default}

// ParsePackageManager matches a package manager case-insensitively.
func ParsePackageManager(s string) (PackageManager, error) {
	s = strings.TrimSpace(s)
	for _, pm := range PackageManagers {
		if strings.EqualFold(string(pm), s) {
			return pm, nil
		}
	}
	if strings.EqualFold(s, "brew") {
		return Homebrew, nil
	}
	return "", fmt.Errorf("unknown package manager: %q", s)
}

// CompilerKind is the compiler family.
type CompilerKind string

const (
	GCC        CompilerKind = "GCC"
	Clang      CompilerKind = "Clang"
	AppleClang CompilerKind = "AppleClang"
	MSVC       CompilerKind = "MSVC"
)

var compilerKinds = []CompilerKind{GCC, Clang, AppleClang, MSVC}

// ParseCompilerKind matches a compiler family case-insensitively.
func ParseCompilerKind(s string) (CompilerKind, error) {
	for _, k := range compilerKinds {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown compiler: %q", s)
}

// ConanCompiler returns the compiler name in Conan's vocabulary.
func (k CompilerKind) ConanCompiler() string {
	switch k {
	case AppleClang:
		return "apple-clang"
	case MSVC:
		return "msvc"
	}
	return strings.ToLower(string(k))
}

// Compiler is a compiler family at a specific version, e.g. GCC 14.
// Version is canonical: it keeps as many numeric components as were given.
type Compiler struct {
	Kind    CompilerKind
	Version string
}

// NewCompiler validates the version and returns the canonical compiler value.
func NewCompiler(kind CompilerKind, version string) (Compiler, error) {
	canonical, err := canonicalVersion(version)
	if err != nil {
		return Compiler{}, fmt.Errorf("invalid %s version: %w", kind, err)
	}
	return Compiler{Kind: kind, Version: canonical}, nil
}

// ParseCompiler parses "<Kind>-<Version>" ("GCC-14", "clang-18.1").
func ParseCompiler(s string) (Compiler, error) {
	kind, version, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Compiler{}, fmt.Errorf("invalid compiler %q: expected <name>-<version>", s)
	}
	k, err := ParseCompilerKind(kind)
	if err != nil {
		return Compiler{}, err
	}
	return NewCompiler(k, version)
}

// canonicalVersion validates v as a (possibly partial) semantic version and
// renders it with the same number of components, without leading zeros.
func canonicalVersion(v string) (string, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return "", err
	}
	if parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return "", fmt.Errorf("pre-release versions are not supported: %q", v)
	}
	switch strings.Count(v, ".") {
	case 0:
		return fmt.Sprintf("%d", parsed.Major()), nil
	case 1:
		return fmt.Sprintf("%d.%d", parsed.Major(), parsed.Minor()), nil
	default:
		return fmt.Sprintf("%d.%d.%d", parsed.Major(), parsed.Minor(), parsed.Patch()), nil
	}
}

// Major returns the compiler's major version.
func (c Compiler) Major() uint64 {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return 0
	}
	return v.Major()
}

// Name returns the token form used in file names ("GCC-14").
func (c Compiler) Name() string {
	return fmt.Sprintf("%s-%s", c.Kind, c.Version)
}

// String returns the display form ("GCC 14").
func (c Compiler) String() string {
	return fmt.Sprintf("%s %s", c.Kind, c.Version)
}

// Less orders compilers by family, then by semantic version.
func (c Compiler) Less(other Compiler) bool {
	if c.Kind != other.Kind {
		return c.Kind < other.Kind
	}
	a, errA := semver.NewVersion(c.Version)
	b, errB := semver.NewVersion(other.Version)
	if errA != nil || errB != nil {
		return c.Version < other.Version
	}
	return a.LessThan(b)
}

// MarshalText implements encoding.TextMarshaler.
func (c Compiler) MarshalText() ([]byte, error) {
	return []byte(c.Name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compiler) UnmarshalText(text []byte) error {
	parsed, err := ParseCompiler(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
