package models

// ExecutionStatus is the lifecycle state of a workflow execution. RUNNING is the
// only non-terminal status; there are no transitions out of the other three.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusCompleted ExecutionStatus = "COMPLETED"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusCancelled ExecutionStatus = "CANCELLED"
)

func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// StepOutcome is the result of one step attempt. PENDING means the step is
// suspended waiting on an external event (an approval decision or an async
// processor callback).
type StepOutcome string

const (
	OutcomeSuccess StepOutcome = "SUCCESS"
	OutcomeFailure StepOutcome = "FAILURE"
	OutcomeSkipped StepOutcome = "SKIPPED"
	OutcomePending StepOutcome = "PENDING"
)
