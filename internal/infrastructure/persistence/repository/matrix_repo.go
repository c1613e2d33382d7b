package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/domain/entity"
	"github.com/approvia/doa-engine/internal/infrastructure/persistence/sqlite"
)

// MatrixRepository implements port.MatrixRepository on SQLite. Approval
// blocks are stored as a JSON column; a partial unique index guarantees at
// most one active matrix per (company_id, document_type).
type MatrixRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMatrixRepository creates a new matrix repository
func NewMatrixRepository(db *sql.DB, logger *zap.Logger) port.MatrixRepository {
	return &MatrixRepository{db: db, logger: logger}
}

// Create persists a new matrix
func (r *MatrixRepository) Create(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	blocks, err := json.Marshal(matrix.Blocks)
	if err != nil {
		return fmt.Errorf("marshal approval blocks: %w", err)
	}

	query := `
		INSERT INTO approval_matrices (
			id, company_id, name, description, document_type, status,
			approval_blocks, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var description sql.NullString
	if matrix.Description != "" {
		description = sql.NullString{String: matrix.Description, Valid: true}
	}

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		matrix.ID,
		matrix.CompanyID,
		matrix.Name,
		description,
		matrix.DocumentType,
		matrix.Status,
		string(blocks),
		matrix.CreatedBy,
		matrix.CreatedAt,
		matrix.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create matrix",
			zap.String("matrix_id", matrix.ID),
			zap.String("company_id", matrix.CompanyID),
			zap.Error(err))
		return fmt.Errorf("create matrix: %w", err)
	}
	return nil
}

// GetByID retrieves a matrix scoped to a company
func (r *MatrixRepository) GetByID(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error) {
	query := selectMatrix + ` WHERE company_id = ? AND id = ?`
	return r.scanMatrix(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, companyID, id))
}

// GetActive retrieves the active matrix for a (company, document type) pair
func (r *MatrixRepository) GetActive(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error) {
	query := selectMatrix + ` WHERE company_id = ? AND document_type = ? AND status = ?`
	return r.scanMatrix(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query,
		companyID, documentType, entity.MatrixStatusActive))
}

// Update persists changes to an existing matrix
func (r *MatrixRepository) Update(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	blocks, err := json.Marshal(matrix.Blocks)
	if err != nil {
		return fmt.Errorf("marshal approval blocks: %w", err)
	}

	query := `
		UPDATE approval_matrices
		SET name = ?, description = ?, document_type = ?, status = ?,
			approval_blocks = ?, updated_at = ?
		WHERE company_id = ? AND id = ?
	`

	var description sql.NullString
	if matrix.Description != "" {
		description = sql.NullString{String: matrix.Description, Valid: true}
	}

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		matrix.Name,
		description,
		matrix.DocumentType,
		matrix.Status,
		string(blocks),
		matrix.UpdatedAt,
		matrix.CompanyID,
		matrix.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update matrix",
			zap.String("matrix_id", matrix.ID),
			zap.Error(err))
		return fmt.Errorf("update matrix: %w", err)
	}
	return nil
}

// UpdateStatus changes only the matrix status
func (r *MatrixRepository) UpdateStatus(ctx context.Context, companyID, id, status string) error {
	query := `
		UPDATE approval_matrices
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE company_id = ? AND id = ?
	`
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, companyID, id)
	if err != nil {
		r.logger.Error("Failed to update matrix status",
			zap.String("matrix_id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("update matrix status: %w", err)
	}
	return nil
}

// ListByCompany retrieves all matrices for a company
func (r *MatrixRepository) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error) {
	query := selectMatrix + ` WHERE company_id = ? ORDER BY created_at DESC`
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list matrices: %w", err)
	}
	defer rows.Close()

	var matrices []*entity.ApprovalMatrix
	for rows.Next() {
		matrix, err := r.scanMatrixRow(rows)
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, matrix)
	}
	return matrices, rows.Err()
}

const selectMatrix = `
	SELECT id, company_id, name, description, document_type, status,
		approval_blocks, created_by, created_at, updated_at
	FROM approval_matrices
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *MatrixRepository) scanMatrix(row *sql.Row) (*entity.ApprovalMatrix, error) {
	matrix, err := r.scanMatrixRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return matrix, nil
}

func (r *MatrixRepository) scanMatrixRow(row rowScanner) (*entity.ApprovalMatrix, error) {
	var matrix entity.ApprovalMatrix
	var description sql.NullString
	var blocks string

	err := row.Scan(
		&matrix.ID,
		&matrix.CompanyID,
		&matrix.Name,
		&description,
		&matrix.DocumentType,
		&matrix.Status,
		&blocks,
		&matrix.CreatedBy,
		&matrix.CreatedAt,
		&matrix.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	matrix.Description = description.String
	if err := json.Unmarshal([]byte(blocks), &matrix.Blocks); err != nil {
		return nil, fmt.Errorf("unmarshal approval blocks: %w", err)
	}
	return &matrix, nil
}

// Verify interface compliance
var _ port.MatrixRepository = (*MatrixRepository)(nil)
