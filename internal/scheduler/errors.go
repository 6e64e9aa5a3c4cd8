package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrRegistryFrozen = errors.New("scheduler: registry is frozen once the loop has started")
	ErrNilAction      = errors.New("scheduler: nil action")
	ErrAlreadyStarted = errors.New("scheduler: already started")
)

// ExecutionError wraps a failure returned or raised by a task action.
type ExecutionError struct {
	TaskID string
	Err    error
	// Stack is set when the action panicked.
	Stack []byte
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.TaskID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Panicked() bool { return e.Stack != nil }
