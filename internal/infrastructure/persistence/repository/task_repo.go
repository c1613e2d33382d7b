package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/domain/entity"
	"github.com/approvia/doa-engine/internal/infrastructure/persistence/sqlite"
)

// TaskRepository implements port.TaskRepository on SQLite. Task IDs are
// deterministic, so Upsert keeps re-run projections convergent: conflicting
// inserts refresh the presentation fields but never reopen completion state.
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// Upsert creates the task or refreshes an existing row with the same ID
func (r *TaskRepository) Upsert(ctx context.Context, task *entity.ApprovalTask) error {
	query := `
		INSERT INTO approval_tasks (
			id, company_id, task_type, user_id, workflow_id, entity_type,
			entity_id, completed, completed_at, title, description, priority,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			priority = excluded.priority,
			updated_at = excluded.updated_at
	`

	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}
	var description sql.NullString
	if task.Description != "" {
		description = sql.NullString{String: task.Description, Valid: true}
	}

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		task.ID,
		task.CompanyID,
		task.TaskType,
		task.UserID,
		task.WorkflowID,
		task.EntityType,
		task.EntityID,
		task.Completed,
		completedAt,
		task.Title,
		description,
		task.Priority,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert task",
			zap.String("task_id", task.ID),
			zap.String("workflow_id", task.WorkflowID),
			zap.Error(err))
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// GetByID retrieves a task scoped to a company
func (r *TaskRepository) GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalTask, error) {
	query := selectTask + ` WHERE company_id = ? AND id = ?`
	task, err := r.scanTask(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, companyID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetByWorkflow retrieves all tasks for a workflow
func (r *TaskRepository) GetByWorkflow(ctx context.Context, companyID, workflowID string) ([]*entity.ApprovalTask, error) {
	query := selectTask + ` WHERE company_id = ? AND workflow_id = ? ORDER BY created_at ASC, id ASC`
	return r.queryTasks(ctx, query, companyID, workflowID)
}

// ListIncompleteByUser retrieves the user's open worklist in a company
func (r *TaskRepository) ListIncompleteByUser(ctx context.Context, companyID, userID string) ([]*entity.ApprovalTask, error) {
	query := selectTask + ` WHERE company_id = ? AND user_id = ? AND completed = 0 ORDER BY created_at DESC`
	return r.queryTasks(ctx, query, companyID, userID)
}

// Complete marks a task completed with the current timestamp. Already
// completed tasks are left untouched, keeping the original completion time.
func (r *TaskRepository) Complete(ctx context.Context, companyID, id string) error {
	query := `
		UPDATE approval_tasks
		SET completed = 1, completed_at = ?, updated_at = ?
		WHERE company_id = ? AND id = ? AND completed = 0
	`
	now := time.Now()
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, now, now, companyID, id)
	if err != nil {
		r.logger.Error("Failed to complete task",
			zap.String("task_id", id),
			zap.Error(err))
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

const selectTask = `
	SELECT id, company_id, task_type, user_id, workflow_id, entity_type,
		entity_id, completed, completed_at, title, description, priority,
		created_at, updated_at
	FROM approval_tasks
`

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalTask, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.ApprovalTask
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) scanTask(row rowScanner) (*entity.ApprovalTask, error) {
	var task entity.ApprovalTask
	var completedAt sql.NullTime
	var description sql.NullString

	err := row.Scan(
		&task.ID,
		&task.CompanyID,
		&task.TaskType,
		&task.UserID,
		&task.WorkflowID,
		&task.EntityType,
		&task.EntityID,
		&task.Completed,
		&completedAt,
		&task.Title,
		&description,
		&task.Priority,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	task.Description = description.String
	return &task, nil
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
