// Package jobs tracks the status of long-running background jobs.
//
// Jobs move through a four-state machine: pending, in_progress (zero or more
// times, with non-decreasing progress), then either completed with a payload
// or failed with a message. Terminal states are never followed by further
// updates in practice, though the registry does not hard-block a late write.
package jobs

// State identifies one of the four job lifecycle states
type State string

// Job lifecycle states
const (
	// StatePending means the job has been scheduled but not started
	StatePending State = "pending"
	// StateInProgress means the job is running; Progress carries either a
	// line count (verification) or a percentage (merge)
	StateInProgress State = "in_progress"
	// StateCompleted means the job finished successfully; Payload carries the result
	StateCompleted State = "completed"
	// StateFailed means the job finished with an error; Message carries the reason
	StateFailed State = "failed"
)

// Status is a snapshot of a job's state. Payload is only meaningful for
// completed jobs and Message for failed ones; Progress for in-progress ones.
type Status struct {
	State    State  `json:"state"`
	Progress uint   `json:"progress"`
	Payload  string `json:"payload,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Pending returns the initial status of a scheduled job
func Pending() Status {
	return Status{State: StatePending}
}

// InProgress returns a running status with the given progress value
func InProgress(progress uint) Status {
	return Status{State: StateInProgress, Progress: progress}
}

// Completed returns a terminal success status carrying the job's payload
func Completed(payload string) Status {
	return Status{State: StateCompleted, Payload: payload}
}

// Failed returns a terminal failure status carrying a human-readable message
func Failed(message string) Status {
	return Status{State: StateFailed, Message: message}
}

// Terminal reports whether no further updates are expected for this status
func (s Status) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}
