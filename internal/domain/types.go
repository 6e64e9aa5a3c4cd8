package domain

import "time"

// Action is a unit of work run by the scheduler. A returned error or a panic
// counts as a failed attempt.
type Action func() error

type Task struct {
	ID       string
	Schedule string
	Action   Action

	// LastExecution anchors the next trigger computation. Zero means unset.
	LastExecution time.Time
	// NextExecution is only valid inside the loop iteration that computed it.
	NextExecution time.Time

	Disabled bool
	Err      error
}

// Result describes one execution attempt of a task.
type Result struct {
	AttemptID string
	TaskID    string
	Scheduled time.Time
	// Selected is when the loop found the task due; LastExecution moves to it.
	Selected  time.Time
	// Started is when the action was invoked. It trails Selected when earlier
	// tasks of the same wake ran first.
	Started   time.Time
	Duration  time.Duration
	Err       error
}

func (r Result) OK() bool { return r.Err == nil }

// TaskView is a read-only copy of a task's state, safe to hand to other goroutines.
type TaskView struct {
	ID            string     `json:"id"`
	Schedule      string     `json:"schedule"`
	LastExecution *time.Time `json:"last_execution,omitempty"`
	NextExecution *time.Time `json:"next_execution,omitempty"`
	Disabled      bool       `json:"disabled"`
	Reason        string     `json:"reason,omitempty"`
	Runs          int        `json:"runs"`
	Failures      int        `json:"failures"`
	LastError     string     `json:"last_error,omitempty"`
}
