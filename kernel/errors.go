package kernel

import "fmt"

// ScriptError wraps a compile/runtime error inside one process's VM.
// The offending process is finished; the run continues.
type ScriptError struct {
	Process string
	Err     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("kernel: script error in process %q: %v", e.Process, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// ResourceErrorKind distinguishes the non-fatal ResourceError cases of a
// resource operation.
type ResourceErrorKind string

const (
	ResourceErrDuplicateCreate    ResourceErrorKind = "duplicate-create"
	ResourceErrUnknown            ResourceErrorKind = "unknown-resource"
	ResourceErrReleaseWithoutHold ResourceErrorKind = "release-without-request"
)

// ResourceError is informational except for ResourceErrUnknown encountered
// during request(), which additionally fails the requesting process.
type ResourceError struct {
	Resource string
	Kind     ResourceErrorKind
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("kernel: resource error (%s) on %q: %v", e.Kind, e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ProcessErrorKind distinguishes the ProcessError cases.
type ProcessErrorKind string

const (
	ProcessErrDuplicateName      ProcessErrorKind = "duplicate-name"
	ProcessErrUnknownFunction    ProcessErrorKind = "unknown-function"
	ProcessErrSpawnUnknownFunc   ProcessErrorKind = "spawn-unknown-function"
)

// ProcessError scopes to one process: spawn of an unknown function, or
// a duplicate process/child name.
type ProcessError struct {
	Process string
	Kind     ProcessErrorKind
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("kernel: process error (%s) for %q: %v", e.Kind, e.Process, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// SimulationError is a scheduling-invariant violation — time regression,
// popping an empty queue. Fatal: Run returns it. A re-entered Run returns
// ErrAlreadyRunning instead.
type SimulationError struct {
	Err error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("kernel: simulation error: %v", e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }
