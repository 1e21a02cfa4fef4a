package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/core"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// ExecutionRepository is the durable execution state store. Save writes the
// whole record in one statement guarded by the version counter, so a crash
// can never leave a partially-updated execution and two writers can never
// both win.
type ExecutionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewExecutionRepository(db *sql.DB, clock core.Clock) *ExecutionRepository {
	return &ExecutionRepository{db: db, clock: clock}
}

const executionColumns = ` id, workflow_id, document_id, status, started_at, completed_at,
		       current_step_id, step_deadline, variables, step_results, version `

func (r *ExecutionRepository) Create(exec *domain.WorkflowExecution) error {
	variablesJSON, stepResultsJSON, err := marshalExecutionState(exec)
	if err != nil {
		return err
	}

	vals := []interface{}{
		exec.ID, exec.WorkflowID, exec.DocumentID, string(exec.Status),
		formatDateInDatabase(exec.StartedAt), formatDateInDatabaseNull(exec.CompletedAt),
		exec.CurrentStepID, formatDateInDatabaseNull(exec.StepDeadline),
		variablesJSON, stepResultsJSON, exec.Version,
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	query := `INSERT INTO workflow_execution (
		id, workflow_id, document_id, status, started_at, completed_at,
		current_step_id, step_deadline, variables, step_results, version
	) VALUES (` + strings.Join(pps, ", ") + `)`

	_, err = r.db.Exec(query, vals...)
	return err
}

// Save persists every mutable field in one atomic update, compare-and-set on
// the version column. A stale version means another caller progressed the
// execution first; the write is rejected with ErrConcurrentModification and
// nothing changes.
func (r *ExecutionRepository) Save(exec *domain.WorkflowExecution) error {
	variablesJSON, stepResultsJSON, err := marshalExecutionState(exec)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_execution
		SET status = ` + placeholder(1) + `,
		    completed_at = ` + placeholder(2) + `,
		    current_step_id = ` + placeholder(3) + `,
		    step_deadline = ` + placeholder(4) + `,
		    variables = ` + placeholder(5) + `,
		    step_results = ` + placeholder(6) + `,
		    version = version + 1
		WHERE id = ` + placeholder(7) + ` AND version = ` + placeholder(8) + `
	`
	result, err := r.db.Exec(query,
		string(exec.Status), formatDateInDatabaseNull(exec.CompletedAt),
		exec.CurrentStepID, formatDateInDatabaseNull(exec.StepDeadline),
		variablesJSON, stepResultsJSON, exec.ID, exec.Version)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%w: execution %s at version %d", domain.ErrConcurrentModification, exec.ID, exec.Version)
	}
	exec.Version++
	return nil
}

func (r *ExecutionRepository) FindByID(id string) (*domain.WorkflowExecution, error) {
	query := `SELECT` + executionColumns + `FROM workflow_execution WHERE id = ` + placeholder(1)
	exec, err := scanExecution(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: execution %q", domain.ErrNotFound, id)
	}
	return exec, err
}

func (r *ExecutionRepository) FindByDocument(documentID string) ([]domain.WorkflowExecution, error) {
	query := `SELECT` + executionColumns + `FROM workflow_execution WHERE document_id = ` + placeholder(1) + ` ORDER BY started_at DESC`
	return r.queryExecutions(query, documentID)
}

func (r *ExecutionRepository) FindByStatus(status models.ExecutionStatus, limit int, offset int) ([]domain.WorkflowExecution, error) {
	query := `SELECT` + executionColumns + `FROM workflow_execution WHERE status = ` + placeholder(1) + `
		ORDER BY started_at DESC LIMIT ` + placeholder(2) + ` OFFSET ` + placeholder(3)
	return r.queryExecutions(query, string(status), limit, offset)
}

// FindTimedOut returns running executions whose step deadline passed before
// the cutoff. One indexed scan serves the whole sweep.
func (r *ExecutionRepository) FindTimedOut(cutoff time.Time, limit int) ([]domain.WorkflowExecution, error) {
	query := `SELECT` + executionColumns + `FROM workflow_execution
		WHERE status = '` + string(models.StatusRunning) + `'
		  AND step_deadline IS NOT NULL
		  AND ` + dateBeforeNow("step_deadline", cutoff) + `
		ORDER BY step_deadline ASC
		LIMIT ` + placeholder(1)
	return r.queryExecutions(query, limit)
}

func (r *ExecutionRepository) queryExecutions(query string, args ...any) ([]domain.WorkflowExecution, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []domain.WorkflowExecution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

func scanExecution(row rowScanner) (*domain.WorkflowExecution, error) {
	var exec domain.WorkflowExecution
	var status string
	var completedAt, stepDeadline sql.NullTime
	var currentStepID sql.NullString
	var variablesJSON, stepResultsJSON string

	err := row.Scan(&exec.ID, &exec.WorkflowID, &exec.DocumentID, &status,
		&exec.StartedAt, &completedAt, &currentStepID, &stepDeadline,
		&variablesJSON, &stepResultsJSON, &exec.Version)
	if err != nil {
		return nil, err
	}

	exec.Status = models.ExecutionStatus(status)
	exec.CompletedAt = nullTimePtr(completedAt)
	exec.StepDeadline = nullTimePtr(stepDeadline)
	exec.CurrentStepID = currentStepID.String

	if err := json.Unmarshal([]byte(variablesJSON), &exec.Variables); err != nil {
		return nil, fmt.Errorf("execution %q has corrupt variables: %w", exec.ID, err)
	}
	if err := json.Unmarshal([]byte(stepResultsJSON), &exec.StepResults); err != nil {
		return nil, fmt.Errorf("execution %q has corrupt step results: %w", exec.ID, err)
	}
	return &exec, nil
}

func marshalExecutionState(exec *domain.WorkflowExecution) (string, string, error) {
	variables := exec.Variables
	if variables == nil {
		variables = map[string]any{}
	}
	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return "", "", err
	}
	stepResults := exec.StepResults
	if stepResults == nil {
		stepResults = []domain.StepExecutionResult{}
	}
	stepResultsJSON, err := json.Marshal(stepResults)
	if err != nil {
		return "", "", err
	}
	return string(variablesJSON), string(stepResultsJSON), nil
}
