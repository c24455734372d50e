package main_test

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestGoFmt(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping gofmt")
	}
	cmd := exec.Command("gofmt", "-l", "cmd", "internal", "test")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		t.Fatalf("gofmt failed to run: %v\nOutput:\n%s", err, out.String())
	}
	if out.Len() > 0 {
		t.Errorf("gofmt found unformatted files:\n%s", out.String())
	}
}

func TestGoTooling(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping go tooling checks")
	}
	checks := []struct {
		name string
		args []string
	}{
		{"vet", []string{"vet", "./..."}},
		{"vet integration", []string{"vet", "-tags", "integration", "."}},
		{"mod tidy", []string{"mod", "tidy", "-diff"}},
		{"golangci-lint", []string{"run", "github.com/golangci/golangci-lint/cmd/golangci-lint@latest", "run", "--timeout=5m"}},
	}
	for _, c := range checks {
		t.Run(strings.ReplaceAll(c.name, " ", "_"), func(t *testing.T) {
			rungo(t, c.args...)
		})
	}
}

func rungo(t *testing.T, args ...string) {
	t.Helper()

	cmd := exec.Command("go", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ee := (*exec.ExitError)(nil); errors.As(err, &ee) && len(ee.Stderr) > 0 {
			t.Fatalf("%v: %v\n%s", cmd, err, ee.Stderr)
		}
		t.Fatalf("%v: %v\n%s", cmd, err, output)
	}
}
