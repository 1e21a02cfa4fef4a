package domain

import (
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// WorkflowExecution is one run of a definition against one document. The
// engine is the only writer of Variables and StepResults; once Status is
// terminal the record is immutable. Version backs the optimistic-concurrency
// contract on the execution store.
type WorkflowExecution struct {
	ID            string                 `json:"id"`
	WorkflowID    string                 `json:"workflowId"`
	DocumentID    string                 `json:"documentId"`
	Status        models.ExecutionStatus `json:"status"`
	StartedAt     time.Time              `json:"startedAt"`
	CompletedAt   *time.Time             `json:"completedAt,omitempty"`
	CurrentStepID string                 `json:"currentStepId,omitempty"`
	StepDeadline  *time.Time             `json:"stepDeadline,omitempty"`
	Variables     map[string]any         `json:"variables"`
	StepResults   []StepExecutionResult  `json:"stepResults"`
	Version       int64                  `json:"version"`
}

// StepExecutionResult records one attempt of one step. The log is append-only
// and keyed by AttemptID; executions are acyclic today, so there is at most
// one live attempt per step, but the attempt id keeps the log unambiguous if
// that ever changes.
type StepExecutionResult struct {
	AttemptID   string             `json:"attemptId"`
	StepID      string             `json:"stepId"`
	Outcome     models.StepOutcome `json:"status"`
	StartedAt   time.Time          `json:"startedAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	Output      map[string]any     `json:"output,omitempty"`
	Error       string             `json:"error,omitempty"`
	NextStepID  string             `json:"nextStepId,omitempty"`
}

// LatestResult returns the most recent attempt for a step id, or nil.
func (e *WorkflowExecution) LatestResult(stepID string) *StepExecutionResult {
	for i := len(e.StepResults) - 1; i >= 0; i-- {
		if e.StepResults[i].StepID == stepID {
			return &e.StepResults[i]
		}
	}
	return nil
}

// AppendResult adds an attempt to the log and returns a pointer into it so
// the caller can complete the attempt in place before saving.
func (e *WorkflowExecution) AppendResult(res StepExecutionResult) *StepExecutionResult {
	e.StepResults = append(e.StepResults, res)
	return &e.StepResults[len(e.StepResults)-1]
}

// Finish moves the execution to a terminal status and clears the step
// deadline so the timeout sweeper ignores it.
func (e *WorkflowExecution) Finish(status models.ExecutionStatus, at time.Time) {
	e.Status = status
	e.CompletedAt = &at
	e.StepDeadline = nil
}
