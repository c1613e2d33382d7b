package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/domain/entity"
	"github.com/approvia/doa-engine/internal/domain/workflow"
	"github.com/approvia/doa-engine/internal/infrastructure/persistence/sqlite"
)

// WorkflowRepository implements port.WorkflowRepository on SQLite.
// Decisions are stored as a JSON column; updates are guarded by a
// compare-and-swap on the version column.
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) port.WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create persists a new workflow at version 1
func (r *WorkflowRepository) Create(ctx context.Context, wf *entity.ApprovalWorkflow) error {
	decisions, err := json.Marshal(wf.Decisions)
	if err != nil {
		return fmt.Errorf("marshal decisions: %w", err)
	}

	query := `
		INSERT INTO approval_workflows (
			id, company_id, entity_type, entity_id, status, current_level,
			matrix_id, initiator_id, decisions, submitted_at, completed_at,
			created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var completedAt sql.NullTime
	if wf.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *wf.CompletedAt, Valid: true}
	}

	wf.Version = 1
	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		wf.ID,
		wf.CompanyID,
		wf.EntityType,
		wf.EntityID,
		wf.Status,
		wf.CurrentLevel,
		wf.MatrixID,
		wf.InitiatorID,
		string(decisions),
		wf.SubmittedAt,
		completedAt,
		wf.CreatedAt,
		wf.UpdatedAt,
		wf.Version,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow",
			zap.String("workflow_id", wf.ID),
			zap.String("company_id", wf.CompanyID),
			zap.Error(err))
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

// GetByID retrieves a workflow scoped to a company
func (r *WorkflowRepository) GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalWorkflow, error) {
	query := selectWorkflow + ` WHERE company_id = ? AND id = ?`
	return r.scanWorkflow(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, companyID, id))
}

// GetLatestByDocument retrieves the most recently created workflow for a document
func (r *WorkflowRepository) GetLatestByDocument(ctx context.Context, companyID, entityType, entityID string) (*entity.ApprovalWorkflow, error) {
	query := selectWorkflow + `
		WHERE company_id = ? AND entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`
	return r.scanWorkflow(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, companyID, entityType, entityID))
}

// Update writes the workflow guarded by its version and increments it.
// Returns workflow.ErrWriteConflict when a concurrent writer got there first.
func (r *WorkflowRepository) Update(ctx context.Context, wf *entity.ApprovalWorkflow) error {
	decisions, err := json.Marshal(wf.Decisions)
	if err != nil {
		return fmt.Errorf("marshal decisions: %w", err)
	}

	query := `
		UPDATE approval_workflows
		SET status = ?, current_level = ?, decisions = ?, completed_at = ?,
			updated_at = ?, version = version + 1
		WHERE company_id = ? AND id = ? AND version = ?
	`

	var completedAt sql.NullTime
	if wf.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *wf.CompletedAt, Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		wf.Status,
		wf.CurrentLevel,
		string(decisions),
		completedAt,
		wf.UpdatedAt,
		wf.CompanyID,
		wf.ID,
		wf.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow",
			zap.String("workflow_id", wf.ID),
			zap.Error(err))
		return fmt.Errorf("update workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: workflow %s at version %d", workflow.ErrWriteConflict, wf.ID, wf.Version)
	}

	wf.Version++
	return nil
}

const selectWorkflow = `
	SELECT id, company_id, entity_type, entity_id, status, current_level,
		matrix_id, initiator_id, decisions, submitted_at, completed_at,
		created_at, updated_at, version
	FROM approval_workflows
`

func (r *WorkflowRepository) scanWorkflow(row *sql.Row) (*entity.ApprovalWorkflow, error) {
	var wf entity.ApprovalWorkflow
	var decisions string
	var completedAt sql.NullTime

	err := row.Scan(
		&wf.ID,
		&wf.CompanyID,
		&wf.EntityType,
		&wf.EntityID,
		&wf.Status,
		&wf.CurrentLevel,
		&wf.MatrixID,
		&wf.InitiatorID,
		&decisions,
		&wf.SubmittedAt,
		&completedAt,
		&wf.CreatedAt,
		&wf.UpdatedAt,
		&wf.Version,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		wf.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(decisions), &wf.Decisions); err != nil {
		return nil, fmt.Errorf("unmarshal decisions: %w", err)
	}
	return &wf, nil
}

// Verify interface compliance
var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
