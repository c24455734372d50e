package main

import (
	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/cmakedist"
	"github.com/chaosctl/chaos/internal/menu"
)

var cmakeCmd = &cobra.Command{
	Use:   "cmake",
	Short: "Manage CMake releases downloaded from cmake.org or GitHub",
}

var (
	cmakeFetchMin        string
	cmakeFetchAllPatches bool
	cmakeFetchSource     string
)

var cmakeFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download CMake releases for this host",
	Long: `Download the CMake releases published on cmake.org that are at least
--min and build for this host, into $CHAOS_HOME/cmake. By default only the
latest patch of each minor series is fetched. Releases already on disk are
skipped. Archives are verified against the release's SHA-256 file, and
that file's signature is checked when cmake_signing_key is set.

Releases are listed on cmake.org unless --source or the cmake_source
setting says github. GitHub listing uses GITHUB_TOKEN when it is set.

Examples:
  chaos cmake fetch
  chaos cmake fetch --min 3.28
  chaos cmake fetch --min 3.30 --all-patches
  chaos cmake fetch --source github`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		min, err := semver.NewVersion(cmakeFetchMin)
		if err != nil {
			return usageErrorf("invalid --min version %q: %v", cmakeFetchMin, err)
		}
		if cmakeFetchSource != "" {
			if _, err := cmakedist.ParseSource(cmakeFetchSource); err != nil {
				return usageErrorf("%v", err)
			}
		}
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}

		binaries, err := sess.FetchCMake(cmd.Context(), cmakeFetchSource, min, !cmakeFetchAllPatches)
		for _, b := range binaries {
			state := "already present"
			if b.Downloaded {
				state = "downloaded"
			}
			printInfof("CMake %s: %s (%s)\n", b.Version, b.Path, state)
		}
		return err
	},
}

func init() {
	cmakeFetchCmd.Flags().StringVar(&cmakeFetchMin, "min", menu.DefaultMinCMake, "Oldest CMake version to fetch")
	cmakeFetchCmd.Flags().StringVar(&cmakeFetchSource, "source", "", "Release source: cmake.org or github (default: cmake_source setting)")
	cmakeFetchCmd.Flags().BoolVar(&cmakeFetchAllPatches, "all-patches", false, "Fetch every patch release, not only the latest per series")
	cmakeCmd.AddCommand(cmakeFetchCmd)
}
