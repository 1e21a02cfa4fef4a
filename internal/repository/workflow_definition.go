package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/core"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
)

// WorkflowDefinitionRepository stores validated workflow graphs. The step
// graph is serialized as JSON in one column; a stored definition is never
// updated, matching the immutability contract.
type WorkflowDefinitionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewWorkflowDefinitionRepository(db *sql.DB, clock core.Clock) *WorkflowDefinitionRepository {
	return &WorkflowDefinitionRepository{db: db, clock: clock}
}

const definitionColumns = ` id, name, description, enabled, created_at, updated_at, created_by, steps `

// Register validates the definition and stores it. An invalid graph is never
// stored; a duplicate id is rejected the same way.
func (r *WorkflowDefinitionRepository) Register(def *domain.WorkflowDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	var exists int
	query := `SELECT COUNT(1) FROM workflow_definition WHERE id = ` + placeholder(1)
	if err := r.db.QueryRow(query, def.ID).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: definition %q is already registered", domain.ErrValidation, def.ID)
	}

	stepsJSON, err := json.Marshal(def.Steps)
	if err != nil {
		return err
	}
	now := r.clock.Now()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	insert := `
		INSERT INTO workflow_definition (id, name, description, enabled, created_at, updated_at, created_by, steps)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` +
		placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `, ` + placeholder(8) + `)
	`
	_, err = r.db.Exec(insert, def.ID, def.Name, def.Description, def.Enabled,
		formatDateInDatabase(def.CreatedAt), formatDateInDatabase(def.UpdatedAt), def.CreatedBy, string(stepsJSON))
	return err
}

func (r *WorkflowDefinitionRepository) Get(id string) (*domain.WorkflowDefinition, error) {
	query := `SELECT` + definitionColumns + `FROM workflow_definition WHERE id = ` + placeholder(1)
	def, err := scanDefinition(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: workflow definition %q", domain.ErrNotFound, id)
	}
	return def, err
}

func (r *WorkflowDefinitionRepository) List() ([]domain.WorkflowDefinition, error) {
	query := `SELECT` + definitionColumns + `FROM workflow_definition ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []domain.WorkflowDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition
	var createdAt, updatedAt time.Time
	var stepsJSON string
	err := row.Scan(&def.ID, &def.Name, &def.Description, &def.Enabled, &createdAt, &updatedAt, &def.CreatedBy, &stepsJSON)
	if err != nil {
		return nil, err
	}
	def.CreatedAt = createdAt
	def.UpdatedAt = updatedAt
	if err := json.Unmarshal([]byte(stepsJSON), &def.Steps); err != nil {
		return nil, fmt.Errorf("definition %q has corrupt steps: %w", def.ID, err)
	}
	return &def, nil
}
