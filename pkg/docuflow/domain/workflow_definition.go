package domain

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// WorkflowDefinition is an immutable directed graph of steps. Once registered
// it is only ever read; executions reference it by id and never copy it.
// The first declared step is the entry point.
type WorkflowDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Steps       []WorkflowStep `json:"steps"`
	Enabled     bool           `json:"isEnabled"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CreatedBy   string         `json:"createdBy,omitempty"`
}

type WorkflowStep struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Kind      models.StepKind      `json:"type"`
	Config    StepConfig           `json:"configuration"`
	NextSteps []WorkflowTransition `json:"nextSteps"`
}

// StepConfig carries the per-kind settings. Unused fields stay zero; the
// runner for each kind reads only its own.
type StepConfig struct {
	// processor
	Processor     string               `json:"processor,omitempty"`
	ProcessorType models.ProcessorType `json:"processorType,omitempty"`
	Async         bool                 `json:"async,omitempty"`
	SetStatus     models.DocumentStatus `json:"setStatus,omitempty"`

	// approval
	RequiredAccess models.AccessLevel `json:"requiredAccess,omitempty"`

	// notification / integration
	Channel string `json:"channel,omitempty"`

	// custom
	Runner string            `json:"runner,omitempty"`
	Params map[string]string `json:"params,omitempty"`

	// shared
	TolerateFailure bool `json:"tolerateFailure,omitempty"`
	TimeoutMinutes  int  `json:"timeoutMinutes,omitempty"`
}

// WorkflowTransition is a guarded, prioritized edge. A nil Condition matches
// unconditionally. Lower priority values are evaluated first.
type WorkflowTransition struct {
	ToStepID  string     `json:"toStepId"`
	Condition *Condition `json:"condition,omitempty"`
	Priority  int        `json:"priority"`
}

// Step returns the step with the given id, or nil.
func (d *WorkflowDefinition) Step(id string) *WorkflowStep {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i]
		}
	}
	return nil
}

// EntryStep returns the first declared step. Validate rejects empty step
// sets, so a registered definition always has one.
func (d *WorkflowDefinition) EntryStep() *WorkflowStep {
	if len(d.Steps) == 0 {
		return nil
	}
	return &d.Steps[0]
}

// Validate checks the whole graph and reports every defect at once. A
// definition that fails here is never stored, so no execution can reference a
// half-valid graph.
func (d *WorkflowDefinition) Validate() error {
	var result *multierror.Error

	if d.ID == "" {
		result = multierror.Append(result, fmt.Errorf("definition id is required"))
	}
	if len(d.Steps) == 0 {
		result = multierror.Append(result, fmt.Errorf("definition %q has no steps", d.ID))
	}

	seen := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if step.ID == "" {
			result = multierror.Append(result, fmt.Errorf("step with empty id"))
			continue
		}
		if seen[step.ID] {
			result = multierror.Append(result, fmt.Errorf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = true
		if !step.Kind.Valid() {
			result = multierror.Append(result, fmt.Errorf("step %q has unknown kind %q", step.ID, step.Kind))
		}
	}

	for _, step := range d.Steps {
		for _, t := range step.NextSteps {
			if !seen[t.ToStepID] {
				result = multierror.Append(result, fmt.Errorf("step %q transitions to unknown step %q", step.ID, t.ToStepID))
			}
			if t.Condition != nil {
				if err := t.Condition.Validate(); err != nil {
					result = multierror.Append(result, fmt.Errorf("step %q transition to %q: %w", step.ID, t.ToStepID, err))
				}
			}
		}
	}

	if result != nil {
		return fmt.Errorf("%w: %s", ErrValidation, result.Error())
	}
	return nil
}
