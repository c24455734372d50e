package build

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/project"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// Layout is everything about the project a sub-step needs besides the profile.
type Layout struct {
	SourceDir     string
	BuildDir      string
	ToolchainsDir string

	ConanFlags         []string
	CMakeGenerateFlags []string
	CMakeBuildFlags    []string

	// TestsRegex restricts ctest; empty runs every test.
	TestsRegex string
	Jobs       int
}

// LayoutFor derives a Layout from a project descriptor.
func LayoutFor(p *project.Project, jobs int) Layout {
	return Layout{
		SourceDir:          p.SourcePath(),
		BuildDir:           p.BuildPath(),
		ToolchainsDir:      p.ToolchainsPath(),
		ConanFlags:         p.ConanFlags,
		CMakeGenerateFlags: p.CMakeGenerateFlags,
		CMakeBuildFlags:    p.CMakeBuildFlags,
		TestsRegex:         p.TestsRegex(),
		Jobs:               jobs,
	}
}

// ConanProfilePath is where GenerateConanProfile writes the profile.
func (l Layout) ConanProfilePath(p toolchain.Profile) string {
	return filepath.Join(l.BuildDir, p.ConanProfileName()+".conanprofile")
}

// conanToolchainFile is generated by conan install's CMakeToolchain generator.
func (l Layout) conanToolchainFile() string {
	return filepath.Join(l.BuildDir, "conan_toolchain.cmake")
}

// RenderConanProfile returns the Conan profile text for p. The compiler
// toolchain file is injected as a user toolchain so CMake picks the right
// compiler binaries.
func RenderConanProfile(p toolchain.Profile, toolchainFile string) string {
	var b strings.Builder
	b.WriteString("[settings]\n")
	fmt.Fprintf(&b, "os=%s\n", p.Distro.ConanOS())
	fmt.Fprintf(&b, "arch=%s\n", p.Architecture.ConanArch())
	fmt.Fprintf(&b, "compiler=%s\n", p.Compiler.Kind.ConanCompiler())
	fmt.Fprintf(&b, "compiler.version=%s\n", p.Compiler.Version)
	switch p.Compiler.Kind {
	case toolchain.GCC:
		b.WriteString("compiler.libcxx=libstdc++11\n")
	case toolchain.Clang:
		if p.Distro == toolchain.MacOS {
			b.WriteString("compiler.libcxx=libc++\n")
		} else {
			b.WriteString("compiler.libcxx=libstdc++11\n")
		}
	case toolchain.AppleClang:
		b.WriteString("compiler.libcxx=libc++\n")
	case toolchain.MSVC:
		b.WriteString("compiler.runtime=dynamic\n")
	}
	fmt.Fprintf(&b, "build_type=%s\n", p.BuildType)
	b.WriteString("\n[conf]\n")
	fmt.Fprintf(&b, "tools.cmake.cmaketoolchain:user_toolchain=[%s]\n", strconv.Quote(filepath.ToSlash(toolchainFile)))
	return b.String()
}

// command renders the external invocation of an external sub-step.
// conanProfile is the path recorded by GenerateConanProfile.
func (l Layout) command(step StepKind, p toolchain.Profile, conanProfile string) (executor.Command, error) {
	bt := string(p.BuildType)

	switch step {
	case ConanInstall:
		if conanProfile == "" {
			return executor.Command{}, fmt.Errorf("no conan profile has been generated")
		}
		args := []string{
			"install", l.SourceDir,
			"--output-folder", l.BuildDir,
			"--build", "missing",
			"--profile:host", conanProfile,
			"--profile:build", conanProfile,
		}
		return executor.Command{Name: "conan", Args: append(args, l.ConanFlags...), Dir: l.SourceDir}, nil

	case CMakeConfigure:
		args := []string{
			"-S", l.SourceDir,
			"-B", l.BuildDir,
			"-DCMAKE_BUILD_TYPE=" + bt,
			"-DCMAKE_TOOLCHAIN_FILE=" + l.conanToolchainFile(),
		}
		return executor.Command{Name: "cmake", Args: append(args, l.CMakeGenerateFlags...), Dir: l.SourceDir}, nil

	case CMakeBuild:
		jobs := l.Jobs
		if jobs < 1 {
			jobs = 1
		}
		args := []string{"--build", l.BuildDir, "--config", bt, "--parallel", strconv.Itoa(jobs)}
		return executor.Command{Name: "cmake", Args: append(args, l.CMakeBuildFlags...), Dir: l.SourceDir}, nil

	case CTestRun:
		args := []string{"--test-dir", l.BuildDir, "--build-config", bt, "--output-on-failure"}
		if l.TestsRegex != "" {
			args = append(args, "--tests-regex", l.TestsRegex)
		}
		return executor.Command{Name: "ctest", Args: args, Dir: l.BuildDir}, nil
	}

	return executor.Command{}, fmt.Errorf("%s does not run an external command", step)
}

// PlannedStep is a sub-step rendered without running it.
type PlannedStep struct {
	Step        StepKind
	Description string
}

// Plan renders the steps action would run for p.
func (l Layout) Plan(action Action, p toolchain.Profile) []PlannedStep {
	conanProfile := l.ConanProfilePath(p)
	var steps []PlannedStep
	for _, step := range Expand(action) {
		var desc string
		switch step {
		case GenerateConanProfile:
			desc = "write " + conanProfile
		case RemoveBuildDir:
			desc = "remove " + l.BuildDir
		default:
			cmd, err := l.command(step, p, conanProfile)
			if err != nil {
				desc = err.Error()
			} else {
				desc = cmd.String()
			}
		}
		steps = append(steps, PlannedStep{Step: step, Description: desc})
	}
	return steps
}
