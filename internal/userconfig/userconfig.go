// Package userconfig provides user configuration management for chaos.
// Configuration is stored in $CHAOS_HOME/config.toml and can be modified
// via the `chaos config` command.
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chaosctl/chaos/internal/cmakedist"
	"github.com/chaosctl/chaos/internal/config"
	"github.com/chaosctl/chaos/internal/toolchain"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents user-configurable settings.
type Config struct {
	// ParallelJobs is passed to `cmake --build --parallel`.
	// Zero means one job per CPU.
	ParallelJobs int `toml:"parallel_jobs"`

	// UseSudo prefixes system package manager commands with sudo.
	// Ignored when chaos already runs as root.
	UseSudo bool `toml:"use_sudo"`

	// Color is one of auto, always, never.
	Color string `toml:"color"`

	// BuildTypes are registered for every newly installed or discovered compiler.
	BuildTypes []toolchain.BuildType `toml:"build_types"`

	// CMakeSigningKey is the fingerprint of the key that must have signed
	// a CMake release's SHA-256 file. Empty skips signature checks.
	CMakeSigningKey string `toml:"cmake_signing_key,omitempty"`

	// CMakeSource is where `chaos cmake fetch` lists releases: cmake.org
	// or github.
	CMakeSource string `toml:"cmake_source,omitempty"`

	// Secrets holds tokens that are not set in the environment.
	Secrets map[string]string `toml:"secrets,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ParallelJobs: 0,
		UseSudo:      true,
		Color:        ColorAuto,
		BuildTypes:   []toolchain.BuildType{toolchain.Debug, toolchain.Release},
	}
}

// Jobs returns the effective parallel job count.
func (c *Config) Jobs() int {
	if c.ParallelJobs > 0 {
		return c.ParallelJobs
	}
	return runtime.NumCPU()
}

// Load reads the config file and returns the configuration.
// Returns default values if the file doesn't exist.
// Returns an error only for file parsing issues, not missing files.
func Load() (*Config, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return DefaultConfig(), nil
	}

	return loadFromPath(cfg.ConfigFile)
}

// loadFromPath reads config from a specific file path (for testing).
func loadFromPath(path string) (*Config, error) {
	userCfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return userCfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), userCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := userCfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return userCfg, nil
}

func (c *Config) validate() error {
	if c.ParallelJobs < 0 {
		return fmt.Errorf("parallel_jobs must not be negative")
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be one of auto, always, never")
	}
	if len(c.BuildTypes) == 0 {
		return fmt.Errorf("build_types must not be empty")
	}
	for _, bt := range c.BuildTypes {
		if _, err := toolchain.ParseBuildType(string(bt)); err != nil {
			return err
		}
	}
	if c.CMakeSigningKey != "" {
		if _, err := cmakedist.ParseFingerprint(c.CMakeSigningKey); err != nil {
			return fmt.Errorf("cmake_signing_key: %w", err)
		}
	}
	if _, err := cmakedist.ParseSource(c.CMakeSource); err != nil {
		return fmt.Errorf("cmake_source: %w", err)
	}
	return nil
}

// Source returns the effective CMake release source.
func (c *Config) Source() string {
	if src, err := cmakedist.ParseSource(c.CMakeSource); err == nil {
		return src
	}
	return cmakedist.SourceCMakeOrg
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return c.saveToPath(cfg.ConfigFile)
}

// saveToPath writes config to a specific file path (for testing).
func (c *Config) saveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold tokens.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	if len(c.Secrets) > 0 {
		if err := f.Chmod(0600); err != nil {
			return fmt.Errorf("failed to restrict config file permissions: %w", err)
		}
	}

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the value of a config key as a string.
// Returns empty string and false if the key doesn't exist.
func (c *Config) Get(key string) (string, bool) {
	if name, ok := secretName(key); ok {
		val, ok := c.Secrets[name]
		return val, ok && val != ""
	}
	switch strings.ToLower(key) {
	case "parallel_jobs":
		return strconv.Itoa(c.ParallelJobs), true
	case "use_sudo":
		return strconv.FormatBool(c.UseSudo), true
	case "color":
		return c.Color, true
	case "build_types":
		names := make([]string, len(c.BuildTypes))
		for i, bt := range c.BuildTypes {
			names[i] = string(bt)
		}
		return strings.Join(names, ","), true
	case "cmake_signing_key":
		return c.CMakeSigningKey, true
	case "cmake_source":
		return c.Source(), true
	default:
		return "", false
	}
}

// Set updates a config value from a string.
// Returns an error if the key doesn't exist or the value is invalid.
func (c *Config) Set(key, value string) error {
	if name, ok := secretName(key); ok {
		if value == "" {
			delete(c.Secrets, name)
			return nil
		}
		if c.Secrets == nil {
			c.Secrets = make(map[string]string)
		}
		c.Secrets[name] = value
		return nil
	}
	switch strings.ToLower(key) {
	case "parallel_jobs":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("invalid value for parallel_jobs: must be a non-negative integer")
		}
		c.ParallelJobs = n
		return nil
	case "use_sudo":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for use_sudo: must be true or false")
		}
		c.UseSudo = b
		return nil
	case "color":
		v := strings.ToLower(strings.TrimSpace(value))
		switch v {
		case ColorAuto, ColorAlways, ColorNever:
			c.Color = v
			return nil
		}
		return fmt.Errorf("invalid value for color: must be auto, always or never")
	case "build_types":
		var types []toolchain.BuildType
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			bt, err := toolchain.ParseBuildType(part)
			if err != nil {
				return fmt.Errorf("invalid value for build_types: %w", err)
			}
			types = append(types, bt)
		}
		if len(types) == 0 {
			return fmt.Errorf("invalid value for build_types: at least one build type is required")
		}
		c.BuildTypes = types
		return nil
	case "cmake_signing_key":
		if strings.TrimSpace(value) == "" {
			c.CMakeSigningKey = ""
			return nil
		}
		fp, err := cmakedist.ParseFingerprint(value)
		if err != nil {
			return fmt.Errorf("invalid value for cmake_signing_key: %w", err)
		}
		c.CMakeSigningKey = fp
		return nil
	case "cmake_source":
		src, err := cmakedist.ParseSource(value)
		if err != nil {
			return fmt.Errorf("invalid value for cmake_source: %w", err)
		}
		c.CMakeSource = src
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}

// AvailableKeys returns a list of all configurable keys with descriptions.
func AvailableKeys() map[string]string {
	return map[string]string{
		"parallel_jobs":     "Parallel build jobs for cmake --build (0 = one per CPU)",
		"use_sudo":          "Prefix system package manager commands with sudo (true/false)",
		"color":             "Colored output (auto/always/never)",
		"build_types":       "Build types registered per compiler (comma-separated, e.g. Debug,Release)",
		"cmake_signing_key": "Fingerprint of the key that signs CMake release checksums (empty = no check)",
		"cmake_source":      "Where CMake releases are listed (cmake.org/github)",
	}
}

// secretName extracts <name> from a "secrets.<name>" key.
func secretName(key string) (string, bool) {
	name, ok := strings.CutPrefix(strings.ToLower(key), "secrets.")
	return name, ok && name != ""
}

// SortedKeys returns AvailableKeys' keys in stable order.
func SortedKeys() []string {
	keys := make([]string, 0, len(AvailableKeys()))
	for k := range AvailableKeys() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
