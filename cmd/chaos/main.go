package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/buildinfo"
	"github.com/chaosctl/chaos/internal/log"
	"github.com/chaosctl/chaos/internal/menu"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
	projectFlag string
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "chaos [option] [answers...]",
	Short: "Control center for CMake+Conan C++ projects",
	Long: `chaos installs the tools a CMake+Conan project needs, manages the
compiler toolchains it builds with, and runs configure, build and test
steps for the selected toolchain.

Run without arguments for the interactive menu. Pass a menu option to run
it directly; later arguments answer its questions in order.

Examples:
  chaos            # interactive menu
  chaos 02         # install all required development tools
  chaos 05 2       # select toolchain 2
  chaos 08         # rebuild and run all tests`,
	Version:       buildinfo.Version(),
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
	RunE: runMenu,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only print errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Print progress information")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Print debug information")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "C", ".", "Project directory")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	rootCmd.AddCommand(installToolsCmd)
	rootCmd.AddCommand(installCompilerCmd)
	rootCmd.AddCommand(toolchainsCmd)
	for _, c := range actionCmds() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cmakeCmd)
	rootCmd.AddCommand(versionCmd)
}

// isTruthy reports whether an environment value enables a setting.
func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// determineLogLevel picks the level from flags, then CHAOS_* variables.
// Debug wins over verbose, verbose over quiet.
func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	case isTruthy(os.Getenv("CHAOS_DEBUG")):
		return slog.LevelDebug
	case isTruthy(os.Getenv("CHAOS_VERBOSE")):
		return slog.LevelInfo
	case isTruthy(os.Getenv("CHAOS_QUIET")):
		return slog.LevelError
	}
	return slog.LevelWarn
}

func initLogger() {
	log.SetDefault(log.NewText(os.Stderr, determineLogLevel()))
}

// runMenu starts the interactive menu, or runs one option in direct mode.
func runMenu(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return menu.New(sess, os.Stdin, os.Stdout).Run(cmd.Context())
	}

	answers := strings.NewReader(strings.Join(args[1:], "\n"))
	m := menu.New(sess, answers, os.Stdout)
	option, err := m.ParseOption(args[0])
	if err != nil {
		return err
	}
	return m.RunOption(cmd.Context(), option)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(err)
		}
		exitWithCode(exitCodeFor(err))
	}
}
