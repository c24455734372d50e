package secrets

import (
	"errors"
	"strings"
	"testing"

	"github.com/chaosctl/chaos/internal/userconfig"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range knownKeys["github_token"].EnvVars {
		t.Setenv(env, "")
	}
}

func TestGetPriority(t *testing.T) {
	cfg := userconfig.DefaultConfig()
	if err := cfg.Set("secrets.github_token", "from-config"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"config fallback", nil, "from-config"},
		{"GH_TOKEN", map[string]string{"GH_TOKEN": "gh"}, "gh"},
		{"GITHUB_TOKEN beats GH_TOKEN", map[string]string{"GITHUB_TOKEN": "github", "GH_TOKEN": "gh"}, "github"},
		{"CHAOS_GITHUB_TOKEN first", map[string]string{"CHAOS_GITHUB_TOKEN": "chaos", "GITHUB_TOKEN": "github"}, "chaos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := Get(cfg, "github_token")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetNotSet(t *testing.T) {
	clearEnv(t)

	_, err := Get(nil, "github_token")
	var notSet *NotSetError
	if !errors.As(err, &notSet) {
		t.Fatalf("expected NotSetError, got %v", err)
	}
	for _, want := range []string{"GITHUB_TOKEN", "GH_TOKEN", "chaos config set secrets.github_token"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if got := Lookup(userconfig.DefaultConfig(), "github_token"); got != "" {
		t.Errorf("Lookup() = %q, want empty", got)
	}
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get(nil, "anthropic_api_key")
	if err == nil || !strings.Contains(err.Error(), "unknown secret key") {
		t.Fatalf("expected unknown secret key error, got %v", err)
	}
	if IsKnown("anthropic_api_key") {
		t.Error("anthropic_api_key must not be known")
	}
}

func TestKnownKeys(t *testing.T) {
	keys := KnownKeys()
	if len(keys) != 1 || keys[0].Name != "github_token" || !IsKnown("github_token") {
		t.Fatalf("unexpected keys: %+v", keys)
	}
}
