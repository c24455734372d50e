package install

import (
	"fmt"

	"github.com/chaosctl/chaos/internal/toolchain"
)

// InstallError reports a tool that could not be installed.
type InstallError struct {
	Tool    string
	Manager toolchain.PackageManager // empty when no manager could be chosen
	Reason  string
	Output  string // trailing output of the failed command, if any
	Err     error
}

func (e *InstallError) Error() string {
	if e.Manager == "" {
		return fmt.Sprintf("failed to install %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("failed to install %s with %s: %s", e.Tool, e.Manager, e.Reason)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}
