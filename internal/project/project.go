// Package project loads the chaos.toml descriptor of a CMake+Conan project.
//
// The descriptor is optional: a directory with a CMakeLists.txt and no
// chaos.toml gets the defaults below, named after the directory.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the descriptor looked up at the project root.
const FileName = "chaos.toml"

// Link names refreshed when a toolchain is selected.
const (
	CurrentToolchainLink = "CurrentToolchain.cmake"
	CurrentProfileLink   = "CurrentProfile.conanprofile"
)

// Defaults for relative directories.
const (
	DefaultBuildDir      = "build"
	DefaultToolchainsDir = "Toolchains"
	DefaultProfilesDir   = "Profiles"
)

// Project describes one CMake+Conan project.
type Project struct {
	Name string `toml:"name"`

	// Directories are relative to Root unless absolute.
	BuildDir      string `toml:"build_dir"`
	ToolchainsDir string `toml:"toolchains_dir"`
	ProfilesDir   string `toml:"profiles_dir"`

	// Extra flags appended to conan install, cmake configure and cmake --build.
	ConanFlags         []string `toml:"conan_flags"`
	CMakeGenerateFlags []string `toml:"cmake_generate_flags"`
	CMakeBuildFlags    []string `toml:"cmake_build_flags"`

	// Tests restricts ctest to the named tests. Empty runs every test.
	Tests []string `toml:"tests"`

	// Tools are extra installable tools the project needs (e.g. "ninja").
	Tools []string `toml:"tools"`

	// Root is the project directory (where chaos.toml lives).
	Root string `toml:"-"`
}

// Load reads <root>/chaos.toml, applying defaults for missing keys.
// A missing file is not an error.
func Load(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	p := &Project{}
	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		md, err := toml.Decode(string(data), p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	p.Root = abs
	p.applyDefaults()
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return p, nil
}

func (p *Project) applyDefaults() {
	if p.Name == "" {
		p.Name = filepath.Base(p.Root)
	}
	if p.BuildDir == "" {
		p.BuildDir = DefaultBuildDir
	}
	if p.ToolchainsDir == "" {
		p.ToolchainsDir = DefaultToolchainsDir
	}
	if p.ProfilesDir == "" {
		p.ProfilesDir = DefaultProfilesDir
	}
}

func (p *Project) validate() error {
	// The build directory is removed by Clean; it must stay inside the project.
	build := p.BuildPath()
	rel, err := filepath.Rel(p.Root, build)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("build_dir %q must be a subdirectory of %s", p.BuildDir, p.Root)
	}
	for _, test := range p.Tests {
		if strings.TrimSpace(test) == "" {
			return fmt.Errorf("tests must not contain empty names")
		}
	}
	return nil
}

func (p *Project) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(p.Root, dir)
}

// SourcePath is the directory holding CMakeLists.txt and the conanfile.
func (p *Project) SourcePath() string { return p.Root }

// BuildPath is the absolute build directory.
func (p *Project) BuildPath() string { return p.resolve(p.BuildDir) }

// ToolchainsPath is the absolute directory of CMake compiler toolchain files.
func (p *Project) ToolchainsPath() string { return p.resolve(p.ToolchainsDir) }

// ProfilesPath is the absolute directory of pre-authored Conan profiles.
func (p *Project) ProfilesPath() string { return p.resolve(p.ProfilesDir) }

// HasCMakeLists reports whether the root looks like a CMake project.
func (p *Project) HasCMakeLists() bool {
	_, err := os.Stat(filepath.Join(p.Root, "CMakeLists.txt"))
	return err == nil
}

// TestsRegex returns the ctest --tests-regex value, or "" to run everything.
func (p *Project) TestsRegex() string {
	if len(p.Tests) == 0 {
		return ""
	}
	quoted := make([]string, len(p.Tests))
	for i, t := range p.Tests {
		quoted[i] = regexpQuote(t)
	}
	return "^(" + strings.Join(quoted, "|") + ")$"
}

// regexpQuote escapes the metacharacters understood by CMake's regex engine.
func regexpQuote(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.^$*+?()[]{}|`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
