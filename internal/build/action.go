// Package build sequences the external tool invocations behind a build
// action (Conan profile generation, conan install, CMake configure, build
// and ctest) for one toolchain profile.
package build

import (
	"fmt"
	"strings"
)

// Action is a user-level build request.
type Action string

const (
	Configure      Action = "configure"
	Build          Action = "build"
	Test           Action = "test"
	RebuildAndTest Action = "rebuild"
	Clean          Action = "clean"
)

// Actions lists every action in menu order.
var Actions = []Action{Configure, Build, Test, RebuildAndTest, Clean}

// ParseAction matches an action name case-insensitively.
// "rebuild-and-test" is accepted for RebuildAndTest.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "rebuild-and-test" {
		return RebuildAndTest, nil
	}
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown build action: %q", s)
}

// StepKind is one atomic sub-step of an action.
type StepKind string

const (
	GenerateConanProfile StepKind = "GenerateConanProfile"
	ConanInstall         StepKind = "ConanInstall"
	CMakeConfigure       StepKind = "CMakeConfigure"
	CMakeBuild           StepKind = "CMakeBuild"
	CTestRun             StepKind = "CTestRun"
	RemoveBuildDir       StepKind = "RemoveBuildDir"
)

var actionSteps = map[Action][]StepKind{
	Configure: {GenerateConanProfile, ConanInstall, CMakeConfigure},
	Clean:     {RemoveBuildDir},
}

func init() {
	actionSteps[Build] = append(append([]StepKind{}, actionSteps[Configure]...), CMakeBuild)
	actionSteps[Test] = append(append([]StepKind{}, actionSteps[Build]...), CTestRun)
	actionSteps[RebuildAndTest] = dedupe(actionSteps[Clean], actionSteps[Configure], actionSteps[Build], actionSteps[Test])
}

// dedupe concatenates chains, keeping the first occurrence of each step.
func dedupe(chains ...[]StepKind) []StepKind {
	seen := make(map[StepKind]bool)
	var out []StepKind
	for _, chain := range chains {
		for _, s := range chain {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Expand returns the ordered sub-steps of an action. Unknown actions
// expand to nothing.
func Expand(a Action) []StepKind {
	return append([]StepKind(nil), actionSteps[a]...)
}
