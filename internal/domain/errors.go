package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed or missing tool argument. It is raised
// before any handler runs, so a ValidationError never leaves partial state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UnknownToolError reports a dispatch request for an unregistered tool name.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// CycleError reports a task-graph mutation that would introduce a dependency
// cycle. Path holds the participating task ids in edge order, with the first
// id repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

// DependencyNotSatisfiedError reports a status transition attempted while one
// or more required prerequisite tasks are not yet completed.
type DependencyNotSatisfiedError struct {
	TaskID  string
	Missing []string
}

func (e *DependencyNotSatisfiedError) Error() string {
	return fmt.Sprintf("task %s has incomplete required prerequisites: %s",
		e.TaskID, strings.Join(e.Missing, ", "))
}

// InvalidTransitionError reports a confirmation operation that is not legal
// from the current status.
type InvalidTransitionError struct {
	Op   string
	From ConfirmationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("confirmation %s is not allowed while status is %q", e.Op, e.From)
}
