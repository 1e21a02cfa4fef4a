package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/docuflow/docuflow/pkg/docuflow/core"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// ExecutionEngine drives executions through their workflow graph: it starts
// them, advances them step by step, resolves branching, suspends on approval
// and async processing, and persists every state change as one versioned
// save. Per-execution serialization comes from the optimistic-concurrency
// contract on the execution store, not from held locks.
type ExecutionEngine struct {
	definitions        DefinitionStore
	executions         ExecutionStore
	documents          DocumentStore
	permissions        PermissionService
	runners            map[models.StepKind]StepRunner
	clock              core.Clock
	defaultStepTimeout time.Duration
}

func NewExecutionEngine(
	definitions DefinitionStore,
	executions ExecutionStore,
	documents DocumentStore,
	permissions PermissionService,
	dispatcher Dispatcher,
	processors map[string]Processor,
	customRunners map[string]StepRunner,
	clock core.Clock,
	defaultStepTimeout time.Duration,
) *ExecutionEngine {
	dispatch := &dispatchRunner{dispatcher: dispatcher}
	return &ExecutionEngine{
		definitions: definitions,
		executions:  executions,
		documents:   documents,
		permissions: permissions,
		runners: map[models.StepKind]StepRunner{
			models.StepProcessor:    &processorRunner{processors: processors, documents: documents},
			models.StepApproval:     &approvalRunner{},
			models.StepNotification: dispatch,
			models.StepIntegration:  dispatch,
			models.StepCustom:       &customRunner{runners: customRunners},
		},
		clock:              clock,
		defaultStepTimeout: defaultStepTimeout,
	}
}

// Start creates an execution for the workflow and document and immediately
// advances it. The returned id is valid even when the first advance hits a
// retryable infrastructure error.
func (e *ExecutionEngine) Start(ctx context.Context, workflowID string, documentID string, initialVariables map[string]any) (string, error) {
	def, err := e.definitions.Get(workflowID)
	if err != nil {
		return "", err
	}
	if !def.Enabled {
		return "", fmt.Errorf("%w: workflow %q is disabled", domain.ErrNotFound, workflowID)
	}
	if _, err := e.documents.GetDocument(ctx, documentID); err != nil {
		return "", err
	}

	if initialVariables == nil {
		initialVariables = map[string]any{}
	}
	exec := &domain.WorkflowExecution{
		ID:            uuid.NewString(),
		WorkflowID:    workflowID,
		DocumentID:    documentID,
		Status:        models.StatusRunning,
		StartedAt:     e.clock.Now(),
		CurrentStepID: def.EntryStep().ID,
		Variables:     initialVariables,
		StepResults:   []domain.StepExecutionResult{},
	}
	if err := e.executions.Create(exec); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Started execution", "execution_id", exec.ID, "workflow_id", workflowID, "document_id", documentID)

	if err := e.run(ctx, exec); err != nil {
		slog.ErrorContext(ctx, "Initial advance failed, execution remains running", "execution_id", exec.ID, "error", err)
		return exec.ID, err
	}
	return exec.ID, nil
}

// Advance resumes step-by-step processing of a running execution. It refuses
// executions that are terminal or suspended on a pending step.
func (e *ExecutionEngine) Advance(ctx context.Context, executionID string) error {
	exec, err := e.executions.FindByID(executionID)
	if err != nil {
		return err
	}
	if exec.Status != models.StatusRunning {
		return fmt.Errorf("%w: execution %s is %s", domain.ErrInvalidState, executionID, exec.Status)
	}
	if last := exec.LatestResult(exec.CurrentStepID); last != nil && last.Outcome == models.OutcomePending {
		return fmt.Errorf("%w: execution %s is suspended on step %s", domain.ErrInvalidState, executionID, exec.CurrentStepID)
	}
	return e.run(ctx, exec)
}

// ApproveStep resolves a pending approval with an authorized decision. An
// approver below the required access level fails the call without touching
// the execution; the step stays pending for someone who is authorized.
func (e *ExecutionEngine) ApproveStep(ctx context.Context, executionID string, stepID string, approverID string, decision models.ApprovalDecision, comment string) error {
	exec, err := e.executions.FindByID(executionID)
	if err != nil {
		return err
	}
	if exec.Status != models.StatusRunning || exec.CurrentStepID != stepID {
		return fmt.Errorf("%w: execution %s is not awaiting approval on step %s", domain.ErrInvalidState, executionID, stepID)
	}
	last := exec.LatestResult(stepID)
	if last == nil || last.Outcome != models.OutcomePending {
		return fmt.Errorf("%w: step %s has no pending approval", domain.ErrInvalidState, stepID)
	}

	def, err := e.definitions.Get(exec.WorkflowID)
	if err != nil {
		return err
	}
	step := def.Step(stepID)
	if step == nil || step.Kind != models.StepApproval {
		return fmt.Errorf("%w: step %s is not an approval step", domain.ErrInvalidState, stepID)
	}

	required := step.Config.RequiredAccess
	if required == "" {
		required = models.AccessEditor
	}
	allowed, err := e.permissions.CheckAccess(ctx, approverID, exec.DocumentID, required)
	if err != nil {
		return fmt.Errorf("check access: %w", err)
	}
	if !allowed {
		slog.WarnContext(ctx, "Approval denied, step stays pending", "execution_id", executionID, "step_id", stepID, "approver_id", approverID)
		return fmt.Errorf("%w: %s needs %s access on document %s", domain.ErrPermissionDenied, approverID, required, exec.DocumentID)
	}

	now := e.clock.Now()
	last.CompletedAt = &now
	last.Output = map[string]any{"approverId": approverID, "decision": string(decision)}
	if comment != "" {
		last.Output["comment"] = comment
	}
	exec.StepDeadline = nil

	if decision == models.DecisionReject {
		last.Outcome = models.OutcomeFailure
		last.Error = "Rejected"
		exec.Finish(models.StatusFailed, now)
		slog.InfoContext(ctx, "Approval rejected", "execution_id", executionID, "step_id", stepID, "approver_id", approverID)
		return e.executions.Save(exec)
	}

	last.Outcome = models.OutcomeSuccess
	slog.InfoContext(ctx, "Approval granted", "execution_id", executionID, "step_id", stepID, "approver_id", approverID)

	doc, err := e.documents.GetDocument(ctx, exec.DocumentID)
	if err != nil {
		return err
	}
	cont, err := e.advanceFrom(ctx, exec, step, last, doc)
	if err != nil || !cont {
		return err
	}
	return e.run(ctx, exec)
}

// Resume is the callback entry point for async processor steps. A completion
// reported against a terminal (typically cancelled) execution is a logged
// no-op: the collaborator's work is simply discarded.
func (e *ExecutionEngine) Resume(ctx context.Context, executionID string, stepID string, success bool, output map[string]any, errMsg string) error {
	exec, err := e.executions.FindByID(executionID)
	if err != nil {
		return err
	}
	if exec.Status.Terminal() {
		slog.InfoContext(ctx, "Ignoring late callback for finished execution", "execution_id", executionID, "step_id", stepID, "status", exec.Status)
		return nil
	}
	if exec.CurrentStepID != stepID {
		return fmt.Errorf("%w: execution %s is not on step %s", domain.ErrInvalidState, executionID, stepID)
	}
	last := exec.LatestResult(stepID)
	if last == nil || last.Outcome != models.OutcomePending {
		return fmt.Errorf("%w: step %s has no pending work", domain.ErrInvalidState, stepID)
	}

	def, err := e.definitions.Get(exec.WorkflowID)
	if err != nil {
		return err
	}
	step := def.Step(stepID)
	if step == nil {
		return fmt.Errorf("%w: step %s", domain.ErrNotFound, stepID)
	}

	now := e.clock.Now()
	last.CompletedAt = &now
	last.Output = output
	exec.StepDeadline = nil

	if !success {
		last.Outcome = models.OutcomeFailure
		last.Error = errMsg
		if !step.Config.TolerateFailure {
			exec.Finish(models.StatusFailed, now)
			return e.executions.Save(exec)
		}
	} else {
		last.Outcome = models.OutcomeSuccess
		if step.Config.SetStatus != "" {
			if err := e.documents.UpdateStatus(ctx, exec.DocumentID, step.Config.SetStatus); err != nil {
				return fmt.Errorf("update document status: %w", err)
			}
		}
	}

	doc, err := e.documents.GetDocument(ctx, exec.DocumentID)
	if err != nil {
		return err
	}
	cont, err := e.advanceFrom(ctx, exec, step, last, doc)
	if err != nil || !cont {
		return err
	}
	return e.run(ctx, exec)
}

// Cancel atomically flips a non-terminal execution to cancelled. Repeating
// the call is an InvalidState error, never a silent success. Work already
// dispatched to collaborators is not recalled; their callbacks will no-op.
func (e *ExecutionEngine) Cancel(ctx context.Context, executionID string) error {
	exec, err := e.executions.FindByID(executionID)
	if err != nil {
		return err
	}
	if exec.Status.Terminal() {
		return fmt.Errorf("%w: execution %s is already %s", domain.ErrInvalidState, executionID, exec.Status)
	}
	exec.Finish(models.StatusCancelled, e.clock.Now())
	if err := e.executions.Save(exec); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Cancelled execution", "execution_id", executionID)
	return nil
}

// ExpireTimedOut fails an execution whose current step outlived its
// allowance. Called by the sweeper; a version conflict means someone else
// progressed the execution in the meantime and is not an error.
func (e *ExecutionEngine) ExpireTimedOut(ctx context.Context, exec *domain.WorkflowExecution) error {
	if exec.Status != models.StatusRunning {
		return nil
	}
	now := e.clock.Now()
	if last := exec.LatestResult(exec.CurrentStepID); last != nil && last.Outcome == models.OutcomePending {
		last.Outcome = models.OutcomeFailure
		last.Error = domain.ErrStepTimeout.Error()
		last.CompletedAt = &now
	}
	exec.Finish(models.StatusFailed, now)
	if err := e.executions.Save(exec); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Execution failed on step timeout", "execution_id", exec.ID, "step_id", exec.CurrentStepID)
	return nil
}

// run is the advance loop: execute the current step, append its result,
// select the next transition and persist, until the execution suspends or
// reaches a terminal state.
func (e *ExecutionEngine) run(ctx context.Context, exec *domain.WorkflowExecution) error {
	def, err := e.definitions.Get(exec.WorkflowID)
	if err != nil {
		return err
	}
	doc, err := e.documents.GetDocument(ctx, exec.DocumentID)
	if err != nil {
		return err
	}

	for exec.Status == models.StatusRunning {
		step := def.Step(exec.CurrentStepID)
		if step == nil {
			return fmt.Errorf("%w: step %q in workflow %q", domain.ErrNotFound, exec.CurrentStepID, def.ID)
		}
		runner := e.runners[step.Kind]
		started := e.clock.Now()

		res, err := runner.Execute(ctx, step, exec, doc)
		if err != nil {
			// Infrastructure failure: nothing persisted, the caller retries.
			slog.ErrorContext(ctx, "Step execution failed", "execution_id", exec.ID, "step_id", step.ID, "error", err)
			return err
		}

		res.AttemptID = uuid.NewString()
		res.StepID = step.ID
		res.StartedAt = started
		if res.Outcome != models.OutcomePending {
			now := e.clock.Now()
			res.CompletedAt = &now
		}
		rec := exec.AppendResult(*res)
		slog.InfoContext(ctx, "Step executed", "execution_id", exec.ID, "step_id", step.ID, "outcome", rec.Outcome)

		if rec.Outcome == models.OutcomePending {
			deadline := e.clock.Now().Add(e.stepTimeout(step))
			exec.StepDeadline = &deadline
			return e.executions.Save(exec)
		}

		if rec.Outcome == models.OutcomeFailure && !step.Config.TolerateFailure {
			exec.Finish(models.StatusFailed, e.clock.Now())
			return e.executions.Save(exec)
		}

		cont, err := e.advanceFrom(ctx, exec, step, rec, doc)
		if err != nil || !cont {
			return err
		}
	}
	return nil
}

// advanceFrom selects the outgoing transition for a completed step, moves the
// execution and persists the whole change as one save. It returns true when
// the execution moved to a next step and is still running.
func (e *ExecutionEngine) advanceFrom(ctx context.Context, exec *domain.WorkflowExecution, step *domain.WorkflowStep, rec *domain.StepExecutionResult, doc *domain.Document) (bool, error) {
	now := e.clock.Now()

	next, err := e.selectNext(step, exec, doc)
	if err != nil {
		rec.Error = err.Error()
		exec.Finish(models.StatusFailed, now)
		slog.WarnContext(ctx, "Transition selection failed", "execution_id", exec.ID, "step_id", step.ID, "error", err)
		return false, e.executions.Save(exec)
	}

	if next == "" {
		// Terminal step: no outgoing transitions.
		exec.Finish(models.StatusCompleted, now)
		slog.InfoContext(ctx, "Execution completed", "execution_id", exec.ID, "final_step_id", step.ID)
		return false, e.executions.Save(exec)
	}

	rec.NextStepID = next
	exec.CurrentStepID = next
	exec.StepDeadline = nil
	slog.InfoContext(ctx, "Transitioning", "execution_id", exec.ID, "from", step.ID, "to", next)
	if err := e.executions.Save(exec); err != nil {
		return false, err
	}
	return true, nil
}

// selectNext walks the step's transitions in ascending priority order and
// picks the first whose guard is absent or true. Empty transition sets mark a
// terminal step; a fully guarded set with no match is NoMatchingTransition.
func (e *ExecutionEngine) selectNext(step *domain.WorkflowStep, exec *domain.WorkflowExecution, doc *domain.Document) (string, error) {
	if len(step.NextSteps) == 0 {
		return "", nil
	}

	fields := doc.ConditionFields()
	for k, v := range exec.Variables {
		fields[k] = v
	}

	transitions := make([]domain.WorkflowTransition, len(step.NextSteps))
	copy(transitions, step.NextSteps)
	sort.SliceStable(transitions, func(i, j int) bool {
		return transitions[i].Priority < transitions[j].Priority
	})

	for _, t := range transitions {
		if t.Condition == nil {
			return t.ToStepID, nil
		}
		ok, err := EvaluateCondition(t.Condition, fields)
		if err != nil {
			return "", err
		}
		if ok {
			return t.ToStepID, nil
		}
	}
	return "", fmt.Errorf("%w: step %q", domain.ErrNoMatchingTransition, step.ID)
}

func (e *ExecutionEngine) stepTimeout(step *domain.WorkflowStep) time.Duration {
	if step.Config.TimeoutMinutes > 0 {
		return time.Duration(step.Config.TimeoutMinutes) * time.Minute
	}
	return e.defaultStepTimeout
}
