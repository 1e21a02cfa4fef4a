package models

// StartExecutionRequest starts one run of a workflow against a document.
type StartExecutionRequest struct {
	WorkflowID string         `json:"workflowId"`
	DocumentID string         `json:"documentId"`
	Variables  map[string]any `json:"variables,omitempty"`
}

type StartExecutionResponse struct {
	ExecutionID string `json:"executionId"`
}

// ApprovalDecision is the outcome an authorized approver hands to a pending
// approval step.
type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "approve"
	DecisionReject  ApprovalDecision = "reject"
)

type ApproveStepRequest struct {
	StepID     string           `json:"stepId"`
	ApproverID string           `json:"approverId"`
	Decision   ApprovalDecision `json:"decision"`
	Comment    string           `json:"comment,omitempty"`
}

// ResumeStepRequest is the callback payload an async processor collaborator
// posts when it finishes work that was left pending.
type ResumeStepRequest struct {
	StepID  string         `json:"stepId"`
	Success bool           `json:"success"`
	Output  map[string]any `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SearchExecutionRequest filters the execution list endpoint.
type SearchExecutionRequest struct {
	DocumentID string
	Status     ExecutionStatus
	Limit      int
	Offset     int
}
