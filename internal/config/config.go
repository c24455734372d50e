package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvChaosHome overrides the default chaos home directory (~/.chaos)
	EnvChaosHome = "CHAOS_HOME"

	// EnvStepTimeout bounds a single build sub-step (cmake, conan, ctest)
	EnvStepTimeout = "CHAOS_STEP_TIMEOUT"

	// EnvInstallTimeout bounds a single package manager invocation
	EnvInstallTimeout = "CHAOS_INSTALL_TIMEOUT"

	// EnvHTTPTimeout bounds HTTP requests made while fetching CMake releases
	EnvHTTPTimeout = "CHAOS_HTTP_TIMEOUT"

	// DefaultStepTimeout is the default per-step timeout (30 minutes)
	DefaultStepTimeout = 30 * time.Minute

	// DefaultInstallTimeout is the default package install timeout (20 minutes)
	DefaultInstallTimeout = 20 * time.Minute

	// DefaultHTTPTimeout is the default HTTP request timeout (60 seconds)
	DefaultHTTPTimeout = 60 * time.Second
)

// durationSetting describes an environment-driven duration and its allowed range.
type durationSetting struct {
	env      string
	fallback time.Duration
	min      time.Duration
	max      time.Duration
}

// read parses the environment variable, warning on stderr and falling back
// or clamping when the value is unusable.
func (s durationSetting) read() time.Duration {
	envValue := os.Getenv(s.env)
	if envValue == "" {
		return s.fallback
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			s.env, envValue, s.fallback)
		return s.fallback
	}

	if duration < s.min {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum %v\n",
			s.env, duration, s.min)
		return s.min
	}
	if duration > s.max {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum %v\n",
			s.env, duration, s.max)
		return s.max
	}

	return duration
}

// GetStepTimeout returns the per-step timeout from CHAOS_STEP_TIMEOUT.
// If not set or invalid, returns DefaultStepTimeout. Clamped to [1m, 6h].
func GetStepTimeout() time.Duration {
	return durationSetting{EnvStepTimeout, DefaultStepTimeout, time.Minute, 6 * time.Hour}.read()
}

// GetInstallTimeout returns the package install timeout from CHAOS_INSTALL_TIMEOUT.
// If not set or invalid, returns DefaultInstallTimeout. Clamped to [1m, 2h].
func GetInstallTimeout() time.Duration {
	return durationSetting{EnvInstallTimeout, DefaultInstallTimeout, time.Minute, 2 * time.Hour}.read()
}

// GetHTTPTimeout returns the HTTP timeout from CHAOS_HTTP_TIMEOUT.
// If not set or invalid, returns DefaultHTTPTimeout. Clamped to [5s, 10m].
func GetHTTPTimeout() time.Duration {
	return durationSetting{EnvHTTPTimeout, DefaultHTTPTimeout, 5 * time.Second, 10 * time.Minute}.read()
}

// Config holds the locations chaos keeps its own state in.
type Config struct {
	HomeDir      string // $CHAOS_HOME
	RegistryFile string // $CHAOS_HOME/toolchains.toml
	ConfigFile   string // $CHAOS_HOME/config.toml
	CacheDir     string // $CHAOS_HOME/cache
	CMakeDir     string // $CHAOS_HOME/cmake (downloaded CMake releases)
}

// DefaultConfig returns the configuration rooted at $CHAOS_HOME, or ~/.chaos.
func DefaultConfig() (*Config, error) {
	home := os.Getenv(EnvChaosHome)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		home = filepath.Join(userHome, ".chaos")
	}
	return NewConfig(home), nil
}

// NewConfig returns a configuration rooted at the given home directory.
func NewConfig(home string) *Config {
	return &Config{
		HomeDir:      home,
		RegistryFile: filepath.Join(home, "toolchains.toml"),
		ConfigFile:   filepath.Join(home, "config.toml"),
		CacheDir:     filepath.Join(home, "cache"),
		CMakeDir:     filepath.Join(home, "cmake"),
	}
}

// EnsureDirectories creates all directories chaos writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.HomeDir, c.CacheDir, c.CMakeDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
