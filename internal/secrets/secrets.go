// Package secrets resolves tokens from environment variables first and
// then from the [secrets] table in $CHAOS_HOME/config.toml.
package secrets

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/chaosctl/chaos/internal/userconfig"
)

// KeyInfo describes a registered secret.
type KeyInfo struct {
	Name    string
	EnvVars []string
	Desc    string
}

// NotSetError is returned by Get when no source has a value.
type NotSetError struct {
	Name    string
	EnvVars []string
}

func (e *NotSetError) Error() string {
	return fmt.Sprintf("%s not configured. Set the %s environment variable, or run 'chaos config set secrets.%s <value>'",
		e.Name, strings.Join(e.EnvVars, " or "), e.Name)
}

// Get resolves a secret by name. cfg may be nil, in which case only the
// environment is consulted.
func Get(cfg *userconfig.Config, name string) (string, error) {
	spec, ok := knownKeys[name]
	if !ok {
		return "", fmt.Errorf("unknown secret key: %q", name)
	}
	for _, env := range spec.EnvVars {
		if val := os.Getenv(env); val != "" {
			return val, nil
		}
	}
	if cfg != nil {
		if val, ok := cfg.Get("secrets." + name); ok {
			return val, nil
		}
	}
	return "", &NotSetError{Name: name, EnvVars: spec.EnvVars}
}

// Lookup is Get without the error: it returns "" when the secret is unset
// or unknown.
func Lookup(cfg *userconfig.Config, name string) string {
	val, _ := Get(cfg, name)
	return val
}

// IsKnown reports whether name is a registered secret.
func IsKnown(name string) bool {
	_, ok := knownKeys[name]
	return ok
}

// KnownKeys returns all registered secrets sorted by name.
func KnownKeys() []KeyInfo {
	keys := make([]KeyInfo, 0, len(knownKeys))
	for name, spec := range knownKeys {
		keys = append(keys, KeyInfo{Name: name, EnvVars: spec.EnvVars, Desc: spec.Desc})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}
