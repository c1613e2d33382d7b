package service

import (
	"context"
	"sync"
	"time"

	"github.com/approvia/doa-engine/internal/domain/entity"
	"github.com/approvia/doa-engine/internal/domain/event"
)

// Mock repositories and ports. Each mock returns a sensible default and can
// be overridden per test through its function fields.

type mockMatrixRepo struct {
	createFunc       func(ctx context.Context, matrix *entity.ApprovalMatrix) error
	getByIDFunc      func(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error)
	getActiveFunc    func(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error)
	updateFunc       func(ctx context.Context, matrix *entity.ApprovalMatrix) error
	updateStatusFunc func(ctx context.Context, companyID, id, status string) error
	listFunc         func(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error)
}

func (m *mockMatrixRepo) Create(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, matrix)
	}
	return nil
}

func (m *mockMatrixRepo) GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, companyID, id)
	}
	return nil, nil
}

func (m *mockMatrixRepo) GetActive(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error) {
	if m.getActiveFunc != nil {
		return m.getActiveFunc(ctx, companyID, documentType)
	}
	return nil, nil
}

func (m *mockMatrixRepo) Update(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, matrix)
	}
	return nil
}

func (m *mockMatrixRepo) UpdateStatus(ctx context.Context, companyID, id, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, companyID, id, status)
	}
	return nil
}

func (m *mockMatrixRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, companyID)
	}
	return []*entity.ApprovalMatrix{}, nil
}

type mockWorkflowRepo struct {
	createFunc    func(ctx context.Context, wf *entity.ApprovalWorkflow) error
	getByIDFunc   func(ctx context.Context, companyID, id string) (*entity.ApprovalWorkflow, error)
	getLatestFunc func(ctx context.Context, companyID, entityType, entityID string) (*entity.ApprovalWorkflow, error)
	updateFunc    func(ctx context.Context, wf *entity.ApprovalWorkflow) error
}

func (m *mockWorkflowRepo) Create(ctx context.Context, wf *entity.ApprovalWorkflow) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, wf)
	}
	return nil
}

func (m *mockWorkflowRepo) GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalWorkflow, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, companyID, id)
	}
	return nil, nil
}

func (m *mockWorkflowRepo) GetLatestByDocument(ctx context.Context, companyID, entityType, entityID string) (*entity.ApprovalWorkflow, error) {
	if m.getLatestFunc != nil {
		return m.getLatestFunc(ctx, companyID, entityType, entityID)
	}
	return nil, nil
}

func (m *mockWorkflowRepo) Update(ctx context.Context, wf *entity.ApprovalWorkflow) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, wf)
	}
	wf.Version++
	return nil
}

// mockTaskRepo keeps tasks in a map so tests can inspect the projected
// worklist after an operation.
type mockTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*entity.ApprovalTask

	upsertFunc   func(ctx context.Context, task *entity.ApprovalTask) error
	completeFunc func(ctx context.Context, companyID, id string) error
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*entity.ApprovalTask)}
}

func (m *mockTaskRepo) Upsert(ctx context.Context, task *entity.ApprovalTask) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.tasks[task.ID]; ok {
		existing.Title = task.Title
		existing.Description = task.Description
		existing.Priority = task.Priority
		existing.UpdatedAt = task.UpdatedAt
		return nil
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[id]; ok && task.CompanyID == companyID {
		copied := *task
		return &copied, nil
	}
	return nil, nil
}

func (m *mockTaskRepo) GetByWorkflow(ctx context.Context, companyID, workflowID string) ([]*entity.ApprovalTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalTask
	for _, task := range m.tasks {
		if task.CompanyID == companyID && task.WorkflowID == workflowID {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) ListIncompleteByUser(ctx context.Context, companyID, userID string) ([]*entity.ApprovalTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalTask
	for _, task := range m.tasks {
		if task.CompanyID == companyID && task.UserID == userID && !task.Completed {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) Complete(ctx context.Context, companyID, id string) error {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, companyID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[id]; ok && task.CompanyID == companyID && !task.Completed {
		now := time.Now()
		task.Completed = true
		task.CompletedAt = &now
	}
	return nil
}

func (m *mockTaskRepo) get(id string) *entity.ApprovalTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

type mockDirectory struct {
	getOwnerFunc func(ctx context.Context, companyID string) (string, error)
}

func (m *mockDirectory) GetOwner(ctx context.Context, companyID string) (string, error) {
	if m.getOwnerFunc != nil {
		return m.getOwnerFunc(ctx, companyID)
	}
	return "owner-1", nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) Publish(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) published(eventType event.Type) *event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Type == eventType {
			return evt
		}
	}
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type mockMatrixService struct {
	resolveActiveFunc func(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error)
	getFunc           func(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error)
}

func (m *mockMatrixService) Create(ctx context.Context, matrix *entity.ApprovalMatrix) error { return nil }
func (m *mockMatrixService) Update(ctx context.Context, matrix *entity.ApprovalMatrix) error { return nil }
func (m *mockMatrixService) Archive(ctx context.Context, companyID, id string) error         { return nil }

func (m *mockMatrixService) Get(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, companyID, id)
	}
	return nil, nil
}

func (m *mockMatrixService) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error) {
	return []*entity.ApprovalMatrix{}, nil
}

func (m *mockMatrixService) ResolveActive(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error) {
	if m.resolveActiveFunc != nil {
		return m.resolveActiveFunc(ctx, companyID, documentType)
	}
	return nil, nil
}

type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) warnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.warns)
}
