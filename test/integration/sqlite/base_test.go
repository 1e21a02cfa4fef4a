package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/docuflow/docuflow/internal/config"
	"github.com/docuflow/docuflow/internal/engine"
	"github.com/docuflow/docuflow/internal/repository"
	"github.com/docuflow/docuflow/pkg/docuflow"
	"github.com/docuflow/docuflow/pkg/docuflow/core"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// testHarness is a fully wired engine on a throwaway SQLite database.
type testHarness struct {
	db          *sql.DB
	definitions *repository.WorkflowDefinitionRepository
	executions  *repository.ExecutionRepository
	documents   *repository.DocumentRepository
	engine      *engine.ExecutionEngine
	dispatcher  *recordingDispatcher
	processors  map[string]engine.Processor
}

func setupHarness(t *testing.T) *testHarness {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "docuflow-test.db")
	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)
	os.Setenv(config.DATABASE_SQLLITE_FILE_NAME, filename)

	if err := docuflow.RunMigrationsFromEmbed("sqllite3", "sqlite3://"+filename); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := core.NewRealClock()
	h := &testHarness{
		db:          db,
		definitions: repository.NewWorkflowDefinitionRepository(db, clock),
		executions:  repository.NewExecutionRepository(db, clock),
		documents:   repository.NewDocumentRepository(db, clock),
		dispatcher:  &recordingDispatcher{},
		processors:  map[string]engine.Processor{"echo": &echoProcessor{}},
	}
	h.engine = engine.NewExecutionEngine(h.definitions, h.executions, h.documents, h.documents,
		h.dispatcher, h.processors, map[string]engine.StepRunner{}, clock, 60*time.Minute)
	return h
}

func (h *testHarness) seedDocument(t *testing.T, id string, owner string) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:       id,
		Title:    "Invoice 2026-031",
		FileType: "pdf",
		Status:   models.DocumentDraft,
		OwnerID:  owner,
		Metadata: domain.DocumentMetadata{Language: "en", PageCount: 3},
	}
	if err := h.documents.Save(doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func (h *testHarness) grant(t *testing.T, documentID string, userID string, level models.AccessLevel) {
	t.Helper()
	err := h.documents.GrantAccess(&domain.DocumentPermission{
		DocumentID:  documentID,
		UserID:      userID,
		AccessLevel: level,
		GrantedAt:   time.Now(),
		GrantedBy:   "admin",
	})
	if err != nil {
		t.Fatalf("grant access: %v", err)
	}
}

// echoProcessor succeeds and echoes the document title.
type echoProcessor struct{}

func (p *echoProcessor) Process(ctx context.Context, req engine.ProcessorRequest) (*engine.ProcessorResult, error) {
	return &engine.ProcessorResult{
		Success: true,
		Output:  map[string]any{"title": req.Document.Title},
	}, nil
}

type recordingDispatcher struct {
	events []engine.DispatchEvent
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event engine.DispatchEvent) error {
	d.events = append(d.events, event)
	return nil
}

func reviewDefinition(id string) *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{
		ID:      id,
		Name:    "Invoice review",
		Enabled: true,
		Steps: []domain.WorkflowStep{
			{
				ID:     "extract",
				Kind:   models.StepProcessor,
				Config: domain.StepConfig{Processor: "echo", ProcessorType: models.ProcessorExtraction},
				NextSteps: []domain.WorkflowTransition{
					{ToStepID: "approve", Priority: 1},
				},
			},
			{
				ID:     "approve",
				Kind:   models.StepApproval,
				Config: domain.StepConfig{RequiredAccess: models.AccessEditor},
				NextSteps: []domain.WorkflowTransition{
					{ToStepID: "notify", Priority: 1},
				},
			},
			{
				ID:     "notify",
				Kind:   models.StepNotification,
				Config: domain.StepConfig{Channel: "owners"},
			},
		},
	}
}

var definitionCounter int

func nextDefinitionID() string {
	definitionCounter++
	return fmt.Sprintf("wf-int-%d", definitionCounter)
}
