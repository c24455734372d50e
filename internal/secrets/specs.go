package secrets

// KeySpec defines how to resolve a specific secret.
type KeySpec struct {
	// EnvVars lists environment variables to check, in priority order.
	EnvVars []string

	// Desc is a human-readable description for error messages and CLI display.
	Desc string
}

var knownKeys = map[string]KeySpec{
	"github_token": {
		EnvVars: []string{"CHAOS_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"},
		Desc:    "GitHub token used to list CMake releases on github.com",
	},
}
