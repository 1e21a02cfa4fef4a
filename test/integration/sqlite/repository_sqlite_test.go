package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

func TestRegisterRoundTripsDefinition(t *testing.T) {
	h := setupHarness(t)

	def := reviewDefinition(nextDefinitionID())
	require.NoError(t, h.definitions.Register(def))

	got, err := h.definitions.Get(def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.Name, got.Name)
	assert.True(t, got.Enabled)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, models.StepApproval, got.Steps[1].Kind)
	assert.Equal(t, "notify", got.Steps[1].NextSteps[0].ToStepID)

	defs, err := h.definitions.List()
	require.NoError(t, err)
	assert.NotEmpty(t, defs)
}

func TestRegisterRejectsInvalidAndDuplicate(t *testing.T) {
	h := setupHarness(t)

	bad := reviewDefinition(nextDefinitionID())
	bad.Steps[0].NextSteps[0].ToStepID = "ghost"
	err := h.definitions.Register(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// The rejected definition is not retrievable.
	_, err = h.definitions.Get(bad.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	good := reviewDefinition(nextDefinitionID())
	require.NoError(t, h.definitions.Register(good))
	err = h.definitions.Register(good)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetDefinitionNotFound(t *testing.T) {
	h := setupHarness(t)

	_, err := h.definitions.Get("wf-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExecutionQueriesByDocumentAndStatus(t *testing.T) {
	h := setupHarness(t)

	def := reviewDefinition(nextDefinitionID())
	require.NoError(t, h.definitions.Register(def))
	h.seedDocument(t, "doc-q", "user-owner")

	id, err := h.engine.Start(t.Context(), def.ID, "doc-q", nil)
	require.NoError(t, err)

	byDoc, err := h.executions.FindByDocument("doc-q")
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.Equal(t, id, byDoc[0].ID)

	running, err := h.executions.FindByStatus(models.StatusRunning, 10, 0)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "approve", running[0].CurrentStepID)

	completed, err := h.executions.FindByStatus(models.StatusCompleted, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestDocumentStatusUpdateAndPermissions(t *testing.T) {
	h := setupHarness(t)
	ctx := t.Context()

	h.seedDocument(t, "doc-p", "user-owner")
	h.grant(t, "doc-p", "user-commenter", models.AccessCommenter)

	require.NoError(t, h.documents.UpdateStatus(ctx, "doc-p", models.DocumentReview))
	doc, err := h.documents.GetDocument(ctx, "doc-p")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentReview, doc.Status)

	err = h.documents.UpdateStatus(ctx, "doc-missing", models.DocumentReview)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := h.documents.CheckAccess(ctx, "user-commenter", "doc-p", models.AccessViewer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.documents.CheckAccess(ctx, "user-commenter", "doc-p", models.AccessEditor)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.documents.CheckAccess(ctx, "user-owner", "doc-p", models.AccessOwner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.documents.CheckAccess(ctx, "user-stranger", "doc-p", models.AccessViewer)
	require.NoError(t, err)
	assert.False(t, ok)
}
