package main

import (
	"fmt"
	"os/exec"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/config"
	"github.com/chaosctl/chaos/internal/install"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the chaos environment",
	Long: `Print the directories, limits and host details chaos works with,
and whether the required tools are on PATH.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		cfg := sess.Config()
		proj := sess.Project()

		fmt.Printf("%s=%s\n", config.EnvChaosHome, cfg.HomeDir)
		fmt.Printf("%s=%s\n", config.EnvStepTimeout, config.GetStepTimeout())
		fmt.Printf("%s=%s\n", config.EnvInstallTimeout, config.GetInstallTimeout())
		fmt.Printf("%s=%s\n", config.EnvHTTPTimeout, config.GetHTTPTimeout())
		fmt.Printf("registry=%s\n", cfg.RegistryFile)
		fmt.Printf("cmake_dir=%s\n", cfg.CMakeDir)
		fmt.Printf("project=%s\n", proj.Root)
		fmt.Printf("build_dir=%s\n", proj.BuildPath())
		fmt.Printf("toolchains_dir=%s\n", proj.ToolchainsPath())
		fmt.Printf("profiles_dir=%s\n", proj.ProfilesPath())
		fmt.Printf("parallel_jobs=%d\n", sess.User().Jobs())

		caps, err := sess.Capabilities()
		if err != nil {
			return err
		}
		fmt.Printf("host=%s\n", caps)

		fmt.Println()
		for _, name := range install.RequiredTools {
			t, _ := install.Lookup(name)
			state := color.Green.Sprint("ok")
			if _, err := exec.LookPath(t.Probe); err != nil {
				state = color.Red.Sprint("missing")
			}
			fmt.Printf("%-16s %s\n", name, state)
		}
		return nil
	},
}
