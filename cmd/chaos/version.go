package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  exactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildinfo.Read())
	},
}
