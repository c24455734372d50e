package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/menu"
	"github.com/chaosctl/chaos/internal/session"
	"github.com/chaosctl/chaos/internal/toolchain"
)

var toolchainsCmd = &cobra.Command{
	Use:   "toolchains",
	Short: "Manage registered compiler toolchains",
	Long: `Manage the registered compiler toolchains.

A toolchain can be referred to by its index in 'chaos toolchains list',
its ID (full or short) or its profile name, for example
x86-64_GCC-14_Ubuntu_APT_Debug. Indices shift when a toolchain is removed;
IDs and profile names do not.`,
}

var toolchainsListJSON bool

var toolchainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered toolchains",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		entries := sess.Toolchains()
		sel, _ := sess.Selected()

		if toolchainsListJSON {
			type toolchainJSON struct {
				Index          int    `json:"index"`
				ID             string `json:"id"`
				Name           string `json:"name"`
				Architecture   string `json:"architecture"`
				Compiler       string `json:"compiler"`
				BuildType      string `json:"build_type"`
				Distro         string `json:"distro"`
				PackageManager string `json:"package_manager"`
				Selected       bool   `json:"selected"`
			}
			output := struct {
				Toolchains []toolchainJSON `json:"toolchains"`
			}{Toolchains: make([]toolchainJSON, 0, len(entries))}
			for _, e := range entries {
				output.Toolchains = append(output.Toolchains, toolchainJSON{
					Index:          e.Index,
					ID:             string(e.ID),
					Name:           e.Profile.FileName(),
					Architecture:   string(e.Profile.Architecture),
					Compiler:       e.Profile.Compiler.Name(),
					BuildType:      string(e.Profile.BuildType),
					Distro:         string(e.Profile.Distro),
					PackageManager: string(e.Profile.PackageManager),
					Selected:       e.ID == sel.ID,
				})
			}
			printJSON(output)
			return nil
		}

		menu.WriteToolchains(cmd.OutOrStdout(), entries, sel.ID)
		return nil
	},
}

var toolchainsSelectCmd = &cobra.Command{
	Use:   "select <toolchain>",
	Short: "Select the toolchain used by build commands",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		entry, err := resolveToolchainRef(sess, args[0])
		if err != nil {
			return err
		}
		if entry, err = sess.Select(entry.ID); err != nil {
			return err
		}
		printInfof("Selected [%d] %s\n", entry.Index, color.Green.Sprint(entry.Profile.FileName()))
		return nil
	},
}

var toolchainsRemoveCmd = &cobra.Command{
	Use:   "remove <toolchain>",
	Short: "Unregister a toolchain",
	Long: `Unregister a toolchain. The compiler itself stays installed.
Removing the selected toolchain clears the selection.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		entry, err := resolveToolchainRef(sess, args[0])
		if err != nil {
			return err
		}
		p, err := sess.Remove(entry.ID)
		if err != nil {
			return err
		}
		printInfof("Removed %s\n", p.FileName())
		return nil
	},
}

var toolchainsDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Register installed compilers and pre-authored profiles",
	Long: `Register every versioned gcc-N/g++-N and clang-N/clang++-N pair on PATH,
plus the *.conanprofile files in the project's profiles directory.
Already registered toolchains keep their index and ID.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		before := len(sess.Toolchains())
		entries, err := sess.Discover()
		if err != nil {
			return err
		}
		printInfof("Found %d toolchain(s), %d new.\n", len(entries), len(sess.Toolchains())-before)
		if !quietFlag {
			sel, _ := sess.Selected()
			menu.WriteToolchains(cmd.OutOrStdout(), sess.Toolchains(), sel.ID)
		}
		return nil
	},
}

var toolchainsShowCmd = &cobra.Command{
	Use:   "show [toolchain]",
	Short: "Show a toolchain (the selected one by default)",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return usageErrorf("accepts at most 1 arg, received %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		var entry toolchain.Entry
		if len(args) == 1 {
			if entry, err = resolveToolchainRef(sess, args[0]); err != nil {
				return err
			}
		} else {
			var ok bool
			if entry, ok = sess.Selected(); !ok {
				return session.ErrNoSelection
			}
		}

		p := entry.Profile
		toolchainFile := p.ToolchainFile(sess.Project().ToolchainsPath())
		state := color.Green.Sprint("present")
		if _, err := os.Stat(toolchainFile); err != nil {
			state = color.Red.Sprint("missing")
		}

		fmt.Printf("Index:           %d\n", entry.Index)
		fmt.Printf("ID:              %s\n", entry.ID)
		fmt.Printf("Name:            %s\n", p.FileName())
		fmt.Printf("Architecture:    %s\n", p.Architecture)
		fmt.Printf("Compiler:        %s\n", p.Compiler)
		fmt.Printf("Build type:      %s\n", p.BuildType)
		fmt.Printf("Distro:          %s\n", p.Distro)
		fmt.Printf("Package manager: %s\n", p.PackageManager)
		fmt.Printf("Toolchain file:  %s (%s)\n", toolchainFile, state)
		fmt.Printf("Conan profile:   %s\n", p.ConanProfileName())
		return nil
	},
}

func init() {
	toolchainsListCmd.Flags().BoolVar(&toolchainsListJSON, "json", false, "Output in JSON format")

	toolchainsCmd.AddCommand(toolchainsListCmd)
	toolchainsCmd.AddCommand(toolchainsSelectCmd)
	toolchainsCmd.AddCommand(toolchainsRemoveCmd)
	toolchainsCmd.AddCommand(toolchainsDiscoverCmd)
	toolchainsCmd.AddCommand(toolchainsShowCmd)
}
