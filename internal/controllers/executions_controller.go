package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/docuflow/docuflow/internal/engine"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// ExecutionService is the slice of the execution engine the HTTP layer
// needs; the engine satisfies it directly.
type ExecutionService interface {
	Start(ctx context.Context, workflowID string, documentID string, initialVariables map[string]any) (string, error)
	Advance(ctx context.Context, executionID string) error
	ApproveStep(ctx context.Context, executionID string, stepID string, approverID string, decision models.ApprovalDecision, comment string) error
	Resume(ctx context.Context, executionID string, stepID string, success bool, output map[string]any, errMsg string) error
	Cancel(ctx context.Context, executionID string) error
}

// ExecutionsController exposes the engine's operation surface.
type ExecutionsController struct {
	Engine        ExecutionService
	ExecutionRepo engine.ExecutionStore
}

func NewExecutionsController(eng ExecutionService, executionRepo engine.ExecutionStore) *ExecutionsController {
	return &ExecutionsController{Engine: eng, ExecutionRepo: executionRepo}
}

func (c *ExecutionsController) handleStartExecution(w http.ResponseWriter, r *http.Request) {
	var req models.StartExecutionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.WorkflowID == "" || req.DocumentID == "" {
		http.Error(w, "workflowId and documentId are required", http.StatusBadRequest)
		return
	}

	id, err := c.Engine.Start(r.Context(), req.WorkflowID, req.DocumentID, req.Variables)
	if err != nil && id == "" {
		slog.ErrorContext(r.Context(), "Failed to start execution", "workflow_id", req.WorkflowID, "error", err)
		writeEngineError(w, err)
		return
	}
	if err != nil {
		// The execution exists and stays running; the first advance hit a
		// retryable condition.
		slog.WarnContext(r.Context(), "Execution started but first advance failed", "execution_id", id, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.StartExecutionResponse{ExecutionID: id})
}

func (c *ExecutionsController) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	exec, err := c.ExecutionRepo.FindByID(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(exec)
}

func (c *ExecutionsController) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("documentId")
	status := r.URL.Query().Get("status")

	var execs []domain.WorkflowExecution
	var err error
	switch {
	case documentID != "":
		execs, err = c.ExecutionRepo.FindByDocument(documentID)
	case status != "":
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		offset := 0
		if v := r.URL.Query().Get("offset"); v != "" {
			offset, _ = strconv.Atoi(v)
		}
		execs, err = c.ExecutionRepo.FindByStatus(models.ExecutionStatus(status), limit, offset)
	default:
		http.Error(w, "documentId or status query parameter is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if execs == nil {
		execs = []domain.WorkflowExecution{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(execs)
}

func (c *ExecutionsController) handleAdvanceExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := c.Engine.Advance(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ExecutionsController) handleApproveStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req models.ApproveStepRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.StepID == "" || req.ApproverID == "" {
		http.Error(w, "stepId and approverId are required", http.StatusBadRequest)
		return
	}
	if req.Decision != models.DecisionApprove && req.Decision != models.DecisionReject {
		http.Error(w, "decision must be approve or reject", http.StatusBadRequest)
		return
	}

	if err := c.Engine.ApproveStep(r.Context(), id, req.StepID, req.ApproverID, req.Decision, req.Comment); err != nil {
		slog.WarnContext(r.Context(), "Approval failed", "execution_id", id, "step_id", req.StepID, "error", err)
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ExecutionsController) handleResumeStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req models.ResumeStepRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.StepID == "" {
		http.Error(w, "stepId is required", http.StatusBadRequest)
		return
	}

	if err := c.Engine.Resume(r.Context(), id, req.StepID, req.Success, req.Output, req.Error); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ExecutionsController) handleCancelExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := c.Engine.Cancel(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConcurrentModification):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrPermissionDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
