package toolchain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Profile is a concrete toolchain: every dimension a build depends on.
// Profiles are never mutated; changing any field yields a different profile.
type Profile struct {
	Architecture   Architecture   `toml:"architecture"`
	Compiler       Compiler       `toml:"compiler"`
	BuildType      BuildType      `toml:"build_type"`
	Distro         Distro         `toml:"distro"`
	PackageManager PackageManager `toml:"package_manager"`
}

// Validate reports the first empty or unknown dimension.
func (p Profile) Validate() error {
	if _, err := ParseArchitecture(string(p.Architecture)); err != nil {
		return err
	}
	if p.Compiler.Kind == "" || p.Compiler.Version == "" {
		return fmt.Errorf("profile has no compiler")
	}
	if _, err := ParseBuildType(string(p.BuildType)); err != nil {
		return err
	}
	if _, err := ParseDistro(string(p.Distro)); err != nil {
		return err
	}
	if _, err := ParsePackageManager(string(p.PackageManager)); err != nil {
		return err
	}
	return nil
}

// IsComplete reports whether all five dimensions are set.
func (p Profile) IsComplete() bool {
	return p.Architecture != "" && p.Compiler.Kind != "" && p.Compiler.Version != "" &&
		p.BuildType != "" && p.Distro != "" && p.PackageManager != ""
}

// ConanProfileName is derived from architecture, compiler and build type,
// e.g. "x86-64_GCC-14_Debug".
func (p Profile) ConanProfileName() string {
	return strings.Join([]string{string(p.Architecture), p.Compiler.Name(), string(p.BuildType)}, "_")
}

// ToolchainFileName is derived from compiler, distro and package manager,
// e.g. "GCC-14_Ubuntu_APT.cmake".
func (p Profile) ToolchainFileName() string {
	return strings.Join([]string{p.Compiler.Name(), string(p.Distro), string(p.PackageManager)}, "_") + ".cmake"
}

// ToolchainFile returns the CMake toolchain file path inside dir.
func (p Profile) ToolchainFile(dir string) string {
	return filepath.Join(dir, p.ToolchainFileName())
}

// FileName is the five-token form "<arch>_<compiler>_<distro>_<pm>_<buildType>".
// ParseFileName is its inverse.
func (p Profile) FileName() string {
	return strings.Join([]string{
		string(p.Architecture),
		p.Compiler.Name(),
		string(p.Distro),
		string(p.PackageManager),
		string(p.BuildType),
	}, "_")
}

// String returns a one-line human description.
func (p Profile) String() string {
	return fmt.Sprintf("Arch: %s, Compiler: %s, Build: %s, HostOS: %s, From: %s",
		p.Architecture, p.Compiler, p.BuildType, p.Distro, p.PackageManager)
}

// ParseFileName parses a profile file name, with or without extension.
func ParseFileName(name string) (Profile, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	tokens := strings.Split(base, "_")
	if len(tokens) != 5 {
		return Profile{}, fmt.Errorf("invalid profile name %q: expected 5 tokens, got %d", name, len(tokens))
	}

	arch, err := ParseArchitecture(tokens[0])
	if err != nil {
		return Profile{}, fmt.Errorf("invalid profile name %q: %w", name, err)
	}
	compiler, err := ParseCompiler(tokens[1])
	if err != nil {
		return Profile{}, fmt.Errorf("invalid profile name %q: %w", name, err)
	}
	distro, err := ParseDistro(tokens[2])
	if err != nil {
		return Profile{}, fmt.Errorf("invalid profile name %q: %w", name, err)
	}
	pm, err := ParsePackageManager(tokens[3])
	if err != nil {
		return Profile{}, fmt.Errorf("invalid profile name %q: %w", name, err)
	}
	bt, err := ParseBuildType(tokens[4])
	if err != nil {
		return Profile{}, fmt.Errorf("invalid profile name %q: %w", name, err)
	}

	return Profile{
		Architecture:   arch,
		Compiler:       compiler,
		BuildType:      bt,
		Distro:         distro,
		PackageManager: pm,
	}, nil
}
