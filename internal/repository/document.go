package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docuflow/docuflow/pkg/docuflow/core"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// DocumentRepository backs both the document-store and permission-service
// collaborator contracts with the local database. Deployments that keep
// documents elsewhere swap in their own implementations at wiring time.
type DocumentRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewDocumentRepository(db *sql.DB, clock core.Clock) *DocumentRepository {
	return &DocumentRepository{db: db, clock: clock}
}

const documentColumns = ` id, title, file_type, status, owner_id, metadata, created_at, updated_at `

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT` + documentColumns + `FROM document WHERE id = ` + placeholder(1)

	var doc domain.Document
	var status, metadataJSON string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&doc.ID, &doc.Title, &doc.FileType,
		&status, &doc.OwnerID, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("document %q has corrupt metadata: %w", id, err)
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	query := `
		UPDATE document
		SET status = ` + placeholder(1) + `, updated_at = ` + placeholder(2) + `
		WHERE id = ` + placeholder(3) + `
	`
	result, err := r.db.ExecContext(ctx, query, string(status), formatDateInDatabase(r.clock.Now()), id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%w: document %q", domain.ErrNotFound, id)
	}
	return nil
}

// Save inserts a document record. Used by seeding and tests; document CRUD
// proper lives outside the engine.
func (r *DocumentRepository) Save(doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.clock.Now()
	}
	doc.UpdatedAt = r.clock.Now()

	query := `
		INSERT INTO document (id, title, file_type, status, owner_id, metadata, created_at, updated_at)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` +
		placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `, ` + placeholder(8) + `)
	`
	_, err = r.db.Exec(query, doc.ID, doc.Title, doc.FileType, string(doc.Status), doc.OwnerID,
		string(metadataJSON), formatDateInDatabase(doc.CreatedAt), formatDateInDatabase(doc.UpdatedAt))
	return err
}

// GrantAccess records a permission grant for a user on a document.
func (r *DocumentRepository) GrantAccess(perm *domain.DocumentPermission) error {
	if perm.GrantedAt.IsZero() {
		perm.GrantedAt = r.clock.Now()
	}
	query := `
		INSERT INTO document_permission (document_id, user_id, access_level, granted_at, granted_by)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
	`
	_, err := r.db.Exec(query, perm.DocumentID, perm.UserID, string(perm.AccessLevel),
		formatDateInDatabase(perm.GrantedAt), perm.GrantedBy)
	return err
}

// CheckAccess reports whether the user holds at least the required level on
// the document. The document owner implicitly holds owner access.
func (r *DocumentRepository) CheckAccess(ctx context.Context, userID string, documentID string, required models.AccessLevel) (bool, error) {
	var ownerID string
	ownerQuery := `SELECT owner_id FROM document WHERE id = ` + placeholder(1)
	err := r.db.QueryRowContext(ctx, ownerQuery, documentID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: document %q", domain.ErrNotFound, documentID)
	}
	if err != nil {
		return false, err
	}
	if ownerID == userID {
		return true, nil
	}

	query := `SELECT access_level FROM document_permission WHERE document_id = ` + placeholder(1) + ` AND user_id = ` + placeholder(2)
	rows, err := r.db.QueryContext(ctx, query, documentID, userID)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	best := models.AccessNone
	for rows.Next() {
		var level string
		if err := rows.Scan(&level); err != nil {
			return false, err
		}
		if models.AccessLevel(level).Rank() > best.Rank() {
			best = models.AccessLevel(level)
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return best.AtLeast(required), nil
}
