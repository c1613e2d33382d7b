package port

import (
	"context"

	"github.com/approvia/doa-engine/internal/domain/entity"
)

// MatrixRepository defines persistence operations for ApprovalMatrix
type MatrixRepository interface {
	// Create persists a new matrix
	Create(ctx context.Context, matrix *entity.ApprovalMatrix) error

	// GetByID retrieves a matrix scoped to a company; nil when absent
	GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error)

	// GetActive retrieves the active matrix for a (company, document type)
	// pair; nil when none is configured
	GetActive(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error)

	// Update persists changes to an existing matrix
	Update(ctx context.Context, matrix *entity.ApprovalMatrix) error

	// UpdateStatus changes only the matrix status
	UpdateStatus(ctx context.Context, companyID, id, status string) error

	// ListByCompany retrieves all matrices for a company
	ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error)
}

// WorkflowRepository defines persistence operations for ApprovalWorkflow.
// Update performs a compare-and-swap on the workflow's version and returns
// workflow.ErrWriteConflict when the stored version has moved on.
type WorkflowRepository interface {
	// Create persists a new workflow at version 1
	Create(ctx context.Context, wf *entity.ApprovalWorkflow) error

	// GetByID retrieves a workflow scoped to a company; nil when absent
	GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalWorkflow, error)

	// GetLatestByDocument retrieves the most recently created workflow for a
	// document; nil when the document was never submitted
	GetLatestByDocument(ctx context.Context, companyID, entityType, entityID string) (*entity.ApprovalWorkflow, error)

	// Update writes the workflow guarded by its Version field and increments
	// it on success
	Update(ctx context.Context, wf *entity.ApprovalWorkflow) error
}

// TaskRepository defines persistence operations for ApprovalTask. Task IDs
// are deterministic, so Upsert makes projection idempotent.
type TaskRepository interface {
	// Upsert creates the task or refreshes an existing row with the same ID
	Upsert(ctx context.Context, task *entity.ApprovalTask) error

	// GetByID retrieves a task scoped to a company; nil when absent
	GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalTask, error)

	// GetByWorkflow retrieves all tasks for a workflow
	GetByWorkflow(ctx context.Context, companyID, workflowID string) ([]*entity.ApprovalTask, error)

	// ListIncompleteByUser retrieves the user's open worklist in a company
	ListIncompleteByUser(ctx context.Context, companyID, userID string) ([]*entity.ApprovalTask, error)

	// Complete marks a task completed with the given timestamp; idempotent
	Complete(ctx context.Context, companyID, id string) error
}

// TransactionManager executes a function within a database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
