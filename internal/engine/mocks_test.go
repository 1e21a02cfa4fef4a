package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/domain"
	"github.com/docuflow/docuflow/pkg/docuflow/models"
)

// fakeClock hands out a controllable time to the engine and sweeper tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *fakeClock) Sleep(d time.Duration) {}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// MockDefinitionStore implements DefinitionStore for testing
type MockDefinitionStore struct {
	defs map[string]*domain.WorkflowDefinition
}

func NewMockDefinitionStore(defs ...*domain.WorkflowDefinition) *MockDefinitionStore {
	m := &MockDefinitionStore{defs: map[string]*domain.WorkflowDefinition{}}
	for _, def := range defs {
		m.defs[def.ID] = def
	}
	return m
}

func (m *MockDefinitionStore) Register(def *domain.WorkflowDefinition) error {
	m.defs[def.ID] = def
	return nil
}

func (m *MockDefinitionStore) Get(id string) (*domain.WorkflowDefinition, error) {
	def, ok := m.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: workflow %q", domain.ErrNotFound, id)
	}
	return def, nil
}

func (m *MockDefinitionStore) List() ([]domain.WorkflowDefinition, error) {
	out := make([]domain.WorkflowDefinition, 0, len(m.defs))
	for _, def := range m.defs {
		out = append(out, *def)
	}
	return out, nil
}

// MemExecutionStore is an in-memory ExecutionStore honoring the same
// optimistic-concurrency contract as the SQL repository. The Func fields
// override individual calls to inject conflicts and stale reads.
type MemExecutionStore struct {
	mu    sync.Mutex
	execs map[string]*domain.WorkflowExecution

	FindByIDFunc func(id string) (*domain.WorkflowExecution, error)
	SaveFunc     func(exec *domain.WorkflowExecution) error
}

func NewMemExecutionStore() *MemExecutionStore {
	return &MemExecutionStore{execs: map[string]*domain.WorkflowExecution{}}
}

func cloneExecution(e *domain.WorkflowExecution) *domain.WorkflowExecution {
	raw, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	var out domain.WorkflowExecution
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (s *MemExecutionStore) Create(exec *domain.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.execs[exec.ID]; ok {
		return fmt.Errorf("execution %s already exists", exec.ID)
	}
	s.execs[exec.ID] = cloneExecution(exec)
	return nil
}

func (s *MemExecutionStore) Save(exec *domain.WorkflowExecution) error {
	if s.SaveFunc != nil {
		return s.SaveFunc(exec)
	}
	return s.DefaultSave(exec)
}

func (s *MemExecutionStore) DefaultSave(exec *domain.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.execs[exec.ID]
	if !ok {
		return fmt.Errorf("%w: execution %s", domain.ErrNotFound, exec.ID)
	}
	if cur.Version != exec.Version {
		return fmt.Errorf("%w: execution %s was at version %d, tried to save version %d",
			domain.ErrConcurrentModification, exec.ID, cur.Version, exec.Version)
	}
	exec.Version++
	s.execs[exec.ID] = cloneExecution(exec)
	return nil
}

func (s *MemExecutionStore) FindByID(id string) (*domain.WorkflowExecution, error) {
	if s.FindByIDFunc != nil {
		return s.FindByIDFunc(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return nil, fmt.Errorf("%w: execution %s", domain.ErrNotFound, id)
	}
	return cloneExecution(exec), nil
}

func (s *MemExecutionStore) FindByDocument(documentID string) ([]domain.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WorkflowExecution
	for _, exec := range s.execs {
		if exec.DocumentID == documentID {
			out = append(out, *cloneExecution(exec))
		}
	}
	return out, nil
}

func (s *MemExecutionStore) FindByStatus(status models.ExecutionStatus, limit int, offset int) ([]domain.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WorkflowExecution
	for _, exec := range s.execs {
		if exec.Status == status {
			out = append(out, *cloneExecution(exec))
		}
	}
	return out, nil
}

func (s *MemExecutionStore) FindTimedOut(cutoff time.Time, limit int) ([]domain.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WorkflowExecution
	for _, exec := range s.execs {
		if exec.Status == models.StatusRunning && exec.StepDeadline != nil && exec.StepDeadline.Before(cutoff) {
			out = append(out, *cloneExecution(exec))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// MockDocumentStore implements DocumentStore for testing
type MockDocumentStore struct {
	docs map[string]*domain.Document

	UpdateStatusFunc func(id string, status models.DocumentStatus) error
	StatusUpdates    []models.DocumentStatus
}

func NewMockDocumentStore(docs ...*domain.Document) *MockDocumentStore {
	m := &MockDocumentStore{docs: map[string]*domain.Document{}}
	for _, doc := range docs {
		m.docs[doc.ID] = doc
	}
	return m
}

func (m *MockDocumentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

func (m *MockDocumentStore) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(id, status)
	}
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	doc.Status = status
	m.StatusUpdates = append(m.StatusUpdates, status)
	return nil
}

// MockPermissionService implements PermissionService for testing
type MockPermissionService struct {
	CheckAccessFunc func(userID string, documentID string, required models.AccessLevel) (bool, error)
}

func (m *MockPermissionService) CheckAccess(ctx context.Context, userID string, documentID string, required models.AccessLevel) (bool, error) {
	if m.CheckAccessFunc != nil {
		return m.CheckAccessFunc(userID, documentID, required)
	}
	return true, nil
}

// MockDispatcher implements Dispatcher for testing
type MockDispatcher struct {
	DispatchFunc func(event DispatchEvent) error
	Events       []DispatchEvent
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event DispatchEvent) error {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(event)
	}
	m.Events = append(m.Events, event)
	return nil
}

// MockProcessor implements Processor for testing
type MockProcessor struct {
	ProcessFunc func(req ProcessorRequest) (*ProcessorResult, error)
}

func (m *MockProcessor) Process(ctx context.Context, req ProcessorRequest) (*ProcessorResult, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(req)
	}
	return &ProcessorResult{Success: true}, nil
}

// engineFixture wires an engine around the in-memory collaborators.
type engineFixture struct {
	engine      *ExecutionEngine
	definitions *MockDefinitionStore
	executions  *MemExecutionStore
	documents   *MockDocumentStore
	permissions *MockPermissionService
	dispatcher  *MockDispatcher
	clock       *fakeClock
	doc         *domain.Document
}

func newEngineFixture(def *domain.WorkflowDefinition, processors map[string]Processor) *engineFixture {
	doc := &domain.Document{
		ID:       "doc-1",
		Title:    "Quarterly Report",
		FileType: "pdf",
		Status:   models.DocumentDraft,
		OwnerID:  "user-owner",
		Metadata: domain.DocumentMetadata{Language: "en", PageCount: 12},
	}
	f := &engineFixture{
		definitions: NewMockDefinitionStore(def),
		executions:  NewMemExecutionStore(),
		documents:   NewMockDocumentStore(doc),
		permissions: &MockPermissionService{},
		dispatcher:  &MockDispatcher{},
		clock:       newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		doc:         doc,
	}
	if processors == nil {
		processors = map[string]Processor{}
	}
	f.engine = NewExecutionEngine(f.definitions, f.executions, f.documents, f.permissions,
		f.dispatcher, processors, map[string]StepRunner{}, f.clock, 60*time.Minute)
	return f
}

func (f *engineFixture) stored(t interface{ Fatalf(string, ...any) }, id string) *domain.WorkflowExecution {
	exec, err := f.executions.FindByID(id)
	if err != nil {
		t.Fatalf("load execution %s: %v", id, err)
	}
	return exec
}
