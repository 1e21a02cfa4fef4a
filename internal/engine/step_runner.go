package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// StepRunner executes one step of one execution. Ordinary business failures
// come back as a result with OutcomeFailure and an error description; a
// returned error is reserved for infrastructure trouble (collaborator
// unreachable) and leaves the execution untouched for a retry.
//
// Runners fill Outcome, Output and Error; the engine stamps identity and
// timestamps before appending the result.
type StepRunner interface {
	Execute(ctx context.Context, step *domain.WorkflowStep, exec *domain.WorkflowExecution, doc *domain.Document) (*domain.StepExecutionResult, error)
}

// processorRunner drives ocr/classification/extraction/transformation/
// validation steps through a named processor collaborator.
type processorRunner struct {
	processors map[string]Processor
	documents  DocumentStore
}

func (r *processorRunner) Execute(ctx context.Context, step *domain.WorkflowStep, exec *domain.WorkflowExecution, doc *domain.Document) (*domain.StepExecutionResult, error) {
	proc, ok := r.processors[step.Config.Processor]
	if !ok {
		return &domain.StepExecutionResult{
			Outcome: models.OutcomeFailure,
			Error:   fmt.Sprintf("processor %q is not registered", step.Config.Processor),
		}, nil
	}

	res, err := proc.Process(ctx, ProcessorRequest{Execution: exec, Document: doc, Step: step})
	if err != nil {
		return nil, fmt.Errorf("processor %q: %w", step.Config.Processor, err)
	}

	// Async processors accept the work and call back through Resume later.
	if res == nil {
		if !step.Config.Async {
			return nil, fmt.Errorf("processor %q returned no result for a synchronous step", step.Config.Processor)
		}
		slog.InfoContext(ctx, "Processor accepted async work", "execution_id", exec.ID, "step_id", step.ID, "processor", step.Config.Processor)
		return &domain.StepExecutionResult{Outcome: models.OutcomePending}, nil
	}

	if !res.Success {
		return &domain.StepExecutionResult{Outcome: models.OutcomeFailure, Output: res.Output, Error: res.Error}, nil
	}

	if step.Config.SetStatus != "" {
		if err := r.documents.UpdateStatus(ctx, doc.ID, step.Config.SetStatus); err != nil {
			return nil, fmt.Errorf("update document status: %w", err)
		}
		doc.Status = step.Config.SetStatus
	}
	return &domain.StepExecutionResult{Outcome: models.OutcomeSuccess, Output: res.Output}, nil
}

// approvalRunner never completes a step by itself. The first execution
// records pending; only an authorized decision through
// ExecutionEngine.ApproveStep resolves it.
type approvalRunner struct{}

func (r *approvalRunner) Execute(ctx context.Context, step *domain.WorkflowStep, exec *domain.WorkflowExecution, doc *domain.Document) (*domain.StepExecutionResult, error) {
	slog.InfoContext(ctx, "Awaiting approval", "execution_id", exec.ID, "step_id", step.ID, "required_access", step.Config.RequiredAccess)
	return &domain.StepExecutionResult{Outcome: models.OutcomePending}, nil
}

// dispatchRunner backs both notification and integration steps: fire the
// event at the named channel and treat accepted dispatch as success. Delivery
// is the collaborator's problem from there.
type dispatchRunner struct {
	dispatcher Dispatcher
}

func (r *dispatchRunner) Execute(ctx context.Context, step *domain.WorkflowStep, exec *domain.WorkflowExecution, doc *domain.Document) (*domain.StepExecutionResult, error) {
	event := DispatchEvent{
		Channel:     step.Config.Channel,
		ExecutionID: exec.ID,
		DocumentID:  doc.ID,
		StepID:      step.ID,
		Payload:     exec.Variables,
	}
	if err := r.dispatcher.Dispatch(ctx, event); err != nil {
		return &domain.StepExecutionResult{
			Outcome: models.OutcomeFailure,
			Error:   fmt.Sprintf("dispatch to %q rejected: %s", step.Config.Channel, err),
		}, nil
	}
	return &domain.StepExecutionResult{Outcome: models.OutcomeSuccess}, nil
}

// customRunner dispatches to a registered extension runner named in the step
// configuration. Extensions must honor the same StepRunner contract.
type customRunner struct {
	runners map[string]StepRunner
}

func (r *customRunner) Execute(ctx context.Context, step *domain.WorkflowStep, exec *domain.WorkflowExecution, doc *domain.Document) (*domain.StepExecutionResult, error) {
	runner, ok := r.runners[step.Config.Runner]
	if !ok {
		return &domain.StepExecutionResult{
			Outcome: models.OutcomeFailure,
			Error:   fmt.Sprintf("custom runner %q is not registered", step.Config.Runner),
		}, nil
	}
	return runner.Execute(ctx, step, exec, doc)
}
