// Package install installs development tools through the host's package
// managers. Tools come from a static catalog; every {tool, package manager}
// pair maps to a fixed package list and command template.
package install

import (
	"fmt"
	"sort"

	"github.com/chaosctl/chaos/internal/toolchain"
)

// PreCommand runs before a tool's install command on one manager,
// optionally only on one distro.
type PreCommand struct {
	Manager toolchain.PackageManager
	Distro  toolchain.Distro // empty matches every distro
	Args    []string
	Sudo    bool
}

// Tool is one installable tool.
type Tool struct {
	Name string
	// Probe is the binary whose presence means the tool is installed.
	Probe    string
	Packages map[toolchain.PackageManager][]string
	Pre      []PreCommand
	// Compiler is set for compiler tools; installing one registers profiles.
	Compiler *toolchain.Compiler
	// ProvidesManager is the package manager made available by this tool.
	ProvidesManager toolchain.PackageManager
}

// IsCompiler reports whether the tool is a compiler toolchain.
func (t Tool) IsCompiler() bool {
	return t.Compiler != nil
}

// Names of the tools every project needs.
var RequiredTools = []string{"build-essential", "cmake", "conan"}

// Compiler version ranges offered by the catalog.
var (
	GCCVersions   = []int{10, 11, 12, 13, 14}
	ClangVersions = []int{13, 14, 15, 16, 17, 18}
)

const toolchainPPA = "ppa:ubuntu-toolchain-r/test"

var catalog = buildCatalog()

func buildCatalog() map[string]Tool {
	tools := []Tool{
		{
			Name:  "build-essential",
			Probe: "make",
			Packages: map[toolchain.PackageManager][]string{
				toolchain.APT:    {"build-essential"},
				toolchain.DNF:    {"gcc-c++", "make"},
				toolchain.Pacman: {"base-devel"},
			},
		},
		{
			Name:  "cmake",
			Probe: "cmake",
			Packages: map[toolchain.PackageManager][]string{
				toolchain.APT:      {"cmake"},
				toolchain.DNF:      {"cmake"},
				toolchain.Pacman:   {"cmake"},
				toolchain.Homebrew: {"cmake"},
				toolchain.Pip:      {"cmake"},
				toolchain.Winget:   {"Kitware.CMake"},
			},
		},
		{
			Name:  "conan",
			Probe: "conan",
			Packages: map[toolchain.PackageManager][]string{
				toolchain.Homebrew: {"conan"},
				toolchain.Pip:      {"conan"},
				toolchain.Winget:   {"JFrog.Conan"},
			},
		},
		{
			Name:  "pip",
			Probe: "pip3",
			Packages: map[toolchain.PackageManager][]string{
				toolchain.APT:      {"python3-pip"},
				toolchain.DNF:      {"python3-pip"},
				toolchain.Pacman:   {"python-pip"},
				toolchain.Homebrew: {"python"},
				toolchain.Winget:   {"Python.Python.3.12"},
			},
			ProvidesManager: toolchain.Pip,
		},
		{
			Name:  "ninja",
			Probe: "ninja",
			Packages: map[toolchain.PackageManager][]string{
				toolchain.APT:      {"ninja-build"},
				toolchain.DNF:      {"ninja-build"},
				toolchain.Pacman:   {"ninja"},
				toolchain.Homebrew: {"ninja"},
				toolchain.Pip:      {"ninja"},
				toolchain.Winget:   {"Ninja-build.Ninja"},
			},
		},
		{
			Name:  "git",
			Probe: "git",
			Packages: map[toolchain.PackageManager][]string{
				toolchain.APT:      {"git"},
				toolchain.DNF:      {"git"},
				toolchain.Pacman:   {"git"},
				toolchain.Homebrew: {"git"},
				toolchain.Winget:   {"Git.Git"},
			},
		},
	}

	for _, v := range GCCVersions {
		tools = append(tools, gccTool(v))
	}
	for _, v := range ClangVersions {
		tools = append(tools, clangTool(v))
	}

	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return m
}

func gccTool(major int) Tool {
	c, _ := toolchain.NewCompiler(toolchain.GCC, fmt.Sprint(major))
	t := Tool{
		Name:  fmt.Sprintf("gcc-%d", major),
		Probe: fmt.Sprintf("g++-%d", major),
		Packages: map[toolchain.PackageManager][]string{
			toolchain.APT:      {fmt.Sprintf("gcc-%d", major), fmt.Sprintf("g++-%d", major)},
			toolchain.Homebrew: {fmt.Sprintf("gcc@%d", major)},
		},
		Compiler: &c,
	}
	// Older Ubuntu releases only get newer GCCs from the toolchain PPA.
	if major >= 11 {
		t.Pre = []PreCommand{{
			Manager: toolchain.APT,
			Distro:  toolchain.Ubuntu,
			Args:    []string{"add-apt-repository", "-y", toolchainPPA},
			Sudo:    true,
		}}
	}
	return t
}

func clangTool(major int) Tool {
	c, _ := toolchain.NewCompiler(toolchain.Clang, fmt.Sprint(major))
	return Tool{
		Name:  fmt.Sprintf("clang-%d", major),
		Probe: fmt.Sprintf("clang++-%d", major),
		Packages: map[toolchain.PackageManager][]string{
			toolchain.APT: {
				fmt.Sprintf("clang-%d", major),
				fmt.Sprintf("lldb-%d", major),
				fmt.Sprintf("lld-%d", major),
				fmt.Sprintf("libc++-%d-dev", major),
				fmt.Sprintf("libc++abi-%d-dev", major),
				fmt.Sprintf("libunwind-%d-dev", major),
			},
			toolchain.Homebrew: {fmt.Sprintf("llvm@%d", major)},
		},
		Compiler: &c,
	}
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Tool, bool) {
	t, ok := catalog[name]
	return t, ok
}

// Names returns every tool name, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compilers returns every compiler tool, GCC first, each family by version.
func Compilers() []Tool {
	var tools []Tool
	for _, t := range catalog {
		if t.IsCompiler() {
			tools = append(tools, t)
		}
	}
	sort.Slice(tools, func(i, j int) bool {
		a, b := tools[i].Compiler, tools[j].Compiler
		if a.Kind != b.Kind {
			return a.Kind == toolchain.GCC
		}
		return a.Less(*b)
	})
	return tools
}
