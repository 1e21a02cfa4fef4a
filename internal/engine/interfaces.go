package engine

import (
	"context"
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// DefinitionStore holds validated, immutable workflow graphs, matching
// repository.WorkflowDefinitionRepository.
type DefinitionStore interface {
	Register(def *domain.WorkflowDefinition) error
	Get(id string) (*domain.WorkflowDefinition, error)
	List() ([]domain.WorkflowDefinition, error)
}

// ExecutionStore is the durable record of executions, matching
// repository.ExecutionRepository. Save is atomic and rejects writes whose
// version is stale with domain.ErrConcurrentModification.
type ExecutionStore interface {
	Create(exec *domain.WorkflowExecution) error
	Save(exec *domain.WorkflowExecution) error
	FindByID(id string) (*domain.WorkflowExecution, error)
	FindByDocument(documentID string) ([]domain.WorkflowExecution, error)
	FindByStatus(status models.ExecutionStatus, limit int, offset int) ([]domain.WorkflowExecution, error)
	FindTimedOut(cutoff time.Time, limit int) ([]domain.WorkflowExecution, error)
}

// DocumentStore is the narrow contract against the external document system.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error
}

// PermissionService answers approval access checks.
type PermissionService interface {
	CheckAccess(ctx context.Context, userID string, documentID string, required models.AccessLevel) (bool, error)
}

// DispatchEvent is what notification and integration steps hand to the
// dispatcher collaborator.
type DispatchEvent struct {
	Channel     string         `json:"channel"`
	ExecutionID string         `json:"executionId"`
	DocumentID  string         `json:"documentId"`
	StepID      string         `json:"stepId"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Dispatcher accepts or rejects a dispatch. Delivery retries downstream are
// the collaborator's concern, not the engine's.
type Dispatcher interface {
	Dispatch(ctx context.Context, event DispatchEvent) error
}

// ProcessorRequest is handed to a processor collaborator together with the
// step configuration that selected it.
type ProcessorRequest struct {
	Execution *domain.WorkflowExecution
	Document  *domain.Document
	Step      *domain.WorkflowStep
}

// ProcessorResult reports a business outcome. An unreachable or crashing
// collaborator returns an error from Process instead, which the engine
// treats as retryable infrastructure failure.
type ProcessorResult struct {
	Success bool
	Output  map[string]any
	Error   string
}

// Processor is an external document processor (OCR, classification,
// extraction, transformation, validation). Async processors return
// (nil, nil) to signal work in flight and later call back through
// ExecutionEngine.Resume.
type Processor interface {
	Process(ctx context.Context, req ProcessorRequest) (*ProcessorResult, error)
}
