package main

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/build"
	"github.com/chaosctl/chaos/internal/toolchain"
)

var actionDescriptions = map[build.Action]struct{ short, long string }{
	build.Configure: {
		"Generate the Conan profile, install dependencies and configure CMake",
		"Write the Conan profile for the toolchain, run 'conan install' and configure the CMake build tree.",
	},
	build.Build: {
		"Configure and build the project",
		"Run the configure steps, then 'cmake --build'.",
	},
	build.Test: {
		"Configure, build and run all tests",
		"Run the build steps, then ctest. Test names come from \"tests\" in chaos.toml; all tests run when it is empty.",
	},
	build.RebuildAndTest: {
		"Remove the build folder, rebuild and run all tests",
		"Remove the build folder, then configure, build and run tests from scratch.",
	},
	build.Clean: {
		"Remove the build folder",
		"Remove the project's build folder.",
	},
}

// actionCmds returns one command per build action.
func actionCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(build.Actions))
	for _, action := range build.Actions {
		cmds = append(cmds, newActionCmd(action))
	}
	return cmds
}

func newActionCmd(action build.Action) *cobra.Command {
	var (
		toolchainRef string
		dryRun       bool
	)
	desc := actionDescriptions[action]
	cmd := &cobra.Command{
		Use:   string(action),
		Short: desc.short,
		Long: desc.long + `

Steps run in order and stop at the first failure. The selected toolchain
is used unless --toolchain is given.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}

			var id toolchain.ID
			if toolchainRef != "" {
				entry, err := resolveToolchainRef(sess, toolchainRef)
				if err != nil {
					return err
				}
				id = entry.ID
			}

			if dryRun {
				steps, err := sess.Plan(action, id)
				if err != nil {
					return err
				}
				for i, s := range steps {
					fmt.Printf("%s %s\n      %s\n", color.Cyan.Sprintf("[%d/%d]", i+1, len(steps)), s.Step, s.Description)
				}
				return nil
			}

			result, err := sess.Run(cmd.Context(), action, id)
			if err != nil {
				return err
			}
			printInfof("%s %s finished for %s\n", color.Green.Sprint("✓"), action, result.Profile.FileName())
			return nil
		},
	}
	if action == build.RebuildAndTest {
		cmd.Aliases = []string{"rebuild-and-test"}
	}
	cmd.Flags().StringVarP(&toolchainRef, "toolchain", "t", "", "Toolchain index, ID or profile name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the steps without running them")
	return cmd
}
