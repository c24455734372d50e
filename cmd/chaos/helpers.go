package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/chaosctl/chaos/internal/errmsg"
	"github.com/chaosctl/chaos/internal/log"
	"github.com/chaosctl/chaos/internal/progress"
	"github.com/chaosctl/chaos/internal/session"
	"github.com/chaosctl/chaos/internal/toolchain"
	"github.com/chaosctl/chaos/internal/userconfig"
)

// printInfo prints an informational message unless quiet mode is enabled
func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Println(a...)
	}
}

// printInfof prints a formatted informational message unless quiet mode is enabled
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

// printJSON marshals the given value to JSON and prints it to stdout
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exitWithCode(ExitGeneral)
	}
}

// printError prints an error to stderr with suggestions if available.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.Red.Sprint("Error:"), errmsg.Format(err, nil))
}

func usageErrorf(format string, a ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, a...)}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{msg: err.Error()}
		}
		return nil
	}
}

// applyColor honors --no-color and the color setting of config.toml.
func applyColor(user *userconfig.Config) {
	switch {
	case noColorFlag, user.Color == userconfig.ColorNever:
		color.Enable = false
	case user.Color == userconfig.ColorAlways:
		color.ForceColor()
	}
}

// openSession opens the session for the --project directory. Build steps
// are reported on stdout unless --quiet is set.
func openSession(cmd *cobra.Command) (*session.Session, error) {
	user, err := userconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	applyColor(user)

	var out io.Writer = cmd.OutOrStdout()
	opts := session.Options{
		User:       user,
		ProjectDir: projectFlag,
		Logger:     log.Default(),
	}
	if !quietFlag {
		opts.Observer = progress.NewStepReporter(out)
	}
	return session.Open(opts)
}

// resolveToolchainRef accepts a 1-based index, a full or short ID, or a
// profile file name ("x86-64_GCC-14_Ubuntu_APT_Debug").
func resolveToolchainRef(sess *session.Session, ref string) (toolchain.Entry, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		id, err := sess.Resolver().ResolveID(n)
		if err != nil {
			return toolchain.Entry{}, err
		}
		return entryByID(sess, id)
	}
	var short []toolchain.Entry
	for _, e := range sess.Toolchains() {
		if string(e.ID) == ref || e.Profile.FileName() == ref {
			return e, nil
		}
		if e.ID.Short() == ref {
			short = append(short, e)
		}
	}
	switch len(short) {
	case 1:
		return short[0], nil
	case 0:
	default:
		return toolchain.Entry{}, &toolchain.NotFoundError{Kind: toolchain.AmbiguousID, ID: toolchain.ID(ref), Matches: len(short)}
	}
	if p, err := toolchain.ParseFileName(ref); err == nil {
		id, err := sess.Resolver().Find(p)
		if err != nil {
			return toolchain.Entry{}, err
		}
		return entryByID(sess, id)
	}
	return toolchain.Entry{}, &toolchain.NotFoundError{Kind: toolchain.UnknownID, ID: toolchain.ID(ref)}
}

func entryByID(sess *session.Session, id toolchain.ID) (toolchain.Entry, error) {
	for _, e := range sess.Toolchains() {
		if e.ID == id {
			return e, nil
		}
	}
	return toolchain.Entry{}, &toolchain.NotFoundError{Kind: toolchain.UnknownID, ID: id}
}
