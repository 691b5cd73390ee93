package core

import (
	"errors"
	"fmt"
)

// Kinder is implemented by every error in the engine taxonomy. The CLI
// dispatcher renders the kind code next to the message.
type Kinder interface {
	error
	Kind() string
}

// KindOf extracts the kind code from err, or "" for untyped errors.
func KindOf(err error) string {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// UnrecognizedTaskError reports a dispatch against a name the registry
// has never seen.
type UnrecognizedTaskError struct {
	Task string
}

func (e *UnrecognizedTaskError) Error() string {
	return fmt.Sprintf("unrecognized task %q", e.Task)
}

func (e *UnrecognizedTaskError) Kind() string { return "UNRECOGNIZED_TASK" }

// MissingRequiredArgumentError reports a required parameter absent from
// the provided arguments with no default to fall back on.
type MissingRequiredArgumentError struct {
	Task  string
	Param string
}

func (e *MissingRequiredArgumentError) Error() string {
	return fmt.Sprintf("task %q: missing required argument %q", e.Task, e.Param)
}

func (e *MissingRequiredArgumentError) Kind() string { return "MISSING_REQUIRED_ARGUMENT" }

// InvalidArgumentError reports a value that failed a type's parse or
// validate step.
type InvalidArgumentError struct {
	Param    string
	Expected string
	Value    any
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid value %v for argument %q: expected %s", e.Value, e.Param, e.Expected)
}

func (e *InvalidArgumentError) Kind() string { return "INVALID_ARGUMENT" }

// RunSuperNotDefinedError reports a run-super call on a task definition
// that did not override anything.
type RunSuperNotDefinedError struct {
	Task string
}

func (e *RunSuperNotDefinedError) Error() string {
	return fmt.Sprintf("task %q has no previous implementation to run", e.Task)
}

func (e *RunSuperNotDefinedError) Kind() string { return "RUN_SUPER_NOT_DEFINED" }

// TaskDefinitionError reports a schema declared in violation of the
// builder constraints. It is raised at declaration time, never at
// argument resolution time.
type TaskDefinitionError struct {
	Task   string
	Reason string
}

func (e *TaskDefinitionError) Error() string {
	return fmt.Sprintf("invalid definition of task %q: %s", e.Task, e.Reason)
}

func (e *TaskDefinitionError) Kind() string { return "INVALID_TASK_DEFINITION" }

// EnvironmentError reports an unmet external toolchain precondition,
// such as a missing or too-old contract compiler.
type EnvironmentError struct {
	Requirement string
	Detail      string
}

func (e *EnvironmentError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("environment requirement unmet: %s", e.Requirement)
	}
	return fmt.Sprintf("environment requirement unmet: %s (%s)", e.Requirement, e.Detail)
}

func (e *EnvironmentError) Kind() string { return "ENVIRONMENT" }
