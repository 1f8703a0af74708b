package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for workflow execution.
var (
	// ErrUnknownWorkflow is returned by Run when the requested workflow is not
	// registered. No step has executed when this error is returned.
	ErrUnknownWorkflow = errors.New("unknown workflow")

	// ErrUnresolvedPlaceholder is returned in strict mode when a placeholder
	// names neither a context binding nor an earlier tool result.
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
)

// UnresolvedPlaceholderError describes which parameter could not be resolved.
// It matches [ErrUnresolvedPlaceholder] under errors.Is.
type UnresolvedPlaceholderError struct {
	Workflow   string
	StepIndex  int // 1-based
	Tool       string
	Param      string
	Identifier string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("%s: workflow %q step %d (%s) parameter %q references {%s}",
		ErrUnresolvedPlaceholder, e.Workflow, e.StepIndex, e.Tool, e.Param, e.Identifier)
}

// Is reports whether target is ErrUnresolvedPlaceholder.
func (e *UnresolvedPlaceholderError) Is(target error) bool {
	return target == ErrUnresolvedPlaceholder
}
