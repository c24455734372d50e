package build

import "fmt"

// ConcurrentExecutionError is returned when Execute is called while another
// execution is in progress on the same Orchestrator. The running execution
// is unaffected.
type ConcurrentExecutionError struct {
	Action Action
}

func (e *ConcurrentExecutionError) Error() string {
	return fmt.Sprintf("cannot start %s: another build action is already running", e.Action)
}

// SubStepFailure reports the sub-step that aborted an action.
type SubStepFailure struct {
	Step     StepKind
	Index    int // 1-based position in the expanded step list
	Total    int
	ExitCode int    // -1 when the step never produced an exit status
	Output   string // trailing output of the failed step
	Err      error
}

func (e *SubStepFailure) Error() string {
	return fmt.Sprintf("step %d/%d (%s) failed: %v", e.Index, e.Total, e.Step, e.Err)
}

func (e *SubStepFailure) Unwrap() error {
	return e.Err
}
