package domain

import (
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// Document is the engine's read view of a stored document. Storage, CRUD and
// content handling live in the document store; the engine only reads metadata
// for guard evaluation and pushes lifecycle status changes.
type Document struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	FileType  string                `json:"fileType"`
	Status    models.DocumentStatus `json:"status"`
	OwnerID   string                `json:"ownerId"`
	Metadata  DocumentMetadata      `json:"metadata"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type DocumentMetadata struct {
	Author       string         `json:"author,omitempty"`
	Description  string         `json:"description,omitempty"`
	Language     string         `json:"language,omitempty"`
	PageCount    int            `json:"pageCount,omitempty"`
	Importance   string         `json:"importance,omitempty"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}

// ConditionFields flattens the document into the field map guard conditions
// evaluate against. Execution variables are merged on top by the engine and
// win on key collision.
func (d *Document) ConditionFields() map[string]any {
	fields := map[string]any{
		"documentId":     d.ID,
		"title":          d.Title,
		"fileType":       d.FileType,
		"documentStatus": string(d.Status),
		"ownerId":        d.OwnerID,
	}
	if d.Metadata.Author != "" {
		fields["author"] = d.Metadata.Author
	}
	if d.Metadata.Language != "" {
		fields["language"] = d.Metadata.Language
	}
	if d.Metadata.PageCount > 0 {
		fields["pageCount"] = d.Metadata.PageCount
	}
	if d.Metadata.Importance != "" {
		fields["importance"] = d.Metadata.Importance
	}
	for k, v := range d.Metadata.CustomFields {
		fields[k] = v
	}
	return fields
}

// DocumentPermission grants a user an access level on one document.
type DocumentPermission struct {
	DocumentID  string             `json:"documentId"`
	UserID      string             `json:"userId"`
	AccessLevel models.AccessLevel `json:"accessLevel"`
	GrantedAt   time.Time          `json:"grantedAt"`
	GrantedBy   string             `json:"grantedBy,omitempty"`
}
