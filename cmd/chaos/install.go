package main

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/install"
	"github.com/chaosctl/chaos/internal/menu"
)

var installToolsList bool

var installToolsCmd = &cobra.Command{
	Use:   "install-tools",
	Short: "Install all required development tools",
	Long: `Install build-essential, cmake and conan plus the extra tools listed
under "tools" in chaos.toml. Tools already on PATH are skipped.

Examples:
  chaos install-tools
  chaos install-tools --list`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if installToolsList {
			for _, name := range install.Names() {
				t, _ := install.Lookup(name)
				kind := "tool"
				if t.IsCompiler() {
					kind = "compiler"
				}
				fmt.Printf("%-16s %s\n", name, kind)
			}
			return nil
		}

		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		reports, err := sess.InstallTools(cmd.Context())
		for _, r := range reports {
			mark := color.Green.Sprint("✓")
			if r.Outcome == install.Failed {
				mark = color.Red.Sprint("✗")
			}
			printInfof("%s %s (%s)\n", mark, r.Tool, r.Outcome)
		}
		return err
	},
}

var installCompilerAll bool

var installCompilerCmd = &cobra.Command{
	Use:   "install-compiler <name>...",
	Short: "Install compilers and register their toolchains",
	Long: `Install compilers from the catalog and register one toolchain per
configured build type (see 'chaos config get build_types').

Examples:
  chaos install-compiler gcc-14
  chaos install-compiler gcc-13 clang-18
  chaos install-compiler --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if installCompilerAll == (len(args) > 0) {
			return usageErrorf("pass compiler names or --all")
		}
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}

		if installCompilerAll {
			entries, err := sess.InstallAllCompilers(cmd.Context())
			printInfof("Registered %d toolchain(s).\n", len(entries))
			return err
		}
		for _, name := range args {
			entries, err := sess.InstallCompiler(cmd.Context(), name)
			if err != nil {
				return err
			}
			printInfof("%s %s\n", color.Green.Sprint("✓"), name)
			if !quietFlag {
				menu.WriteToolchains(cmd.OutOrStdout(), entries, "")
			}
		}
		return nil
	},
}

func init() {
	installToolsCmd.Flags().BoolVar(&installToolsList, "list", false, "List installable tools and compilers")
	installCompilerCmd.Flags().BoolVar(&installCompilerAll, "all", false, "Install every supported compiler")
}
