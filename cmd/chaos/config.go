package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/secrets"
	"github.com/chaosctl/chaos/internal/userconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage chaos configuration",
	Long: `Manage chaos configuration settings.

Configuration is stored in $CHAOS_HOME/config.toml (default ~/.chaos).

Examples:
  chaos config get parallel_jobs
  chaos config set build_types Debug,Release,RelWithDebInfo
  chaos config set cmake_source github
  chaos config set secrets.github_token ghp_...
  chaos config list`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := userconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		value, ok := cfg.Get(args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "Available keys:\n")
			printAvailableKeys()
			return usageErrorf("unknown config key: %s", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if name, ok := strings.CutPrefix(key, "secrets."); ok && !secrets.IsKnown(name) {
			fmt.Fprintf(os.Stderr, "Available keys:\n")
			printAvailableKeys()
			return usageErrorf("unknown secret: %s", name)
		}

		cfg, err := userconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Available keys:\n")
			printAvailableKeys()
			return usageErrorf("%v", err)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		if strings.HasPrefix(key, "secrets.") {
			value = "(set)"
		}
		printInfof("%s = %s\n", key, value)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := userconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		for _, k := range userconfig.SortedKeys() {
			value, _ := cfg.Get(k)
			fmt.Printf("%s = %s\n", k, value)
		}
		for _, info := range secrets.KnownKeys() {
			state := "(not set)"
			if secrets.Lookup(cfg, info.Name) != "" {
				state = "(set)"
			}
			fmt.Printf("secrets.%s = %s\n", info.Name, state)
		}
		return nil
	},
}

func printAvailableKeys() {
	keys := userconfig.AvailableKeys()
	for _, k := range userconfig.SortedKeys() {
		fmt.Fprintf(os.Stderr, "  %s - %s\n", k, keys[k])
	}
	for _, info := range secrets.KnownKeys() {
		fmt.Fprintf(os.Stderr, "  secrets.%s - %s\n", info.Name, info.Desc)
	}
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}
