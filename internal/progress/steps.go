package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"

	"github.com/chaosctl/chaos/internal/build"
)

// StepReporter prints one status line per build sub-step. It satisfies
// build.Observer.
type StepReporter struct {
	out io.Writer
}

// NewStepReporter returns a reporter writing to out.
func NewStepReporter(out io.Writer) *StepReporter {
	return &StepReporter{out: out}
}

// StepStarted implements build.Observer.
func (r *StepReporter) StepStarted(index, total int, step build.StepKind, description string) {
	fmt.Fprintf(r.out, "%s %s\n", color.Cyan.Sprintf("[%d/%d]", index, total), color.Bold.Sprint(step))
	if description != "" {
		fmt.Fprintf(r.out, "      %s\n", color.Gray.Sprint(description))
	}
}

// StepFinished implements build.Observer.
func (r *StepReporter) StepFinished(index, total int, result build.StepResult) {
	elapsed := result.Duration.Round(100 * time.Millisecond)
	if result.Err != nil {
		fmt.Fprintf(r.out, "%s %s failed after %s\n", color.Red.Sprint("✗"), result.Step, elapsed)
		return
	}
	fmt.Fprintf(r.out, "%s %s (%s)\n", color.Green.Sprint("✓"), result.Step, elapsed)
}

var _ build.Observer = (*StepReporter)(nil)
