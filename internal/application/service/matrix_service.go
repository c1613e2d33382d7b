package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/domain/entity"
	"github.com/approvia/doa-engine/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MatrixService manages approval matrices: administration by company
// admins, and resolution (with default-policy fallback) at submission time.
type MatrixService interface {
	// Create validates and persists a new matrix. Activating a matrix
	// archives any previously active matrix for the same document type.
	Create(ctx context.Context, matrix *entity.ApprovalMatrix) error

	// Update validates and persists changes to an existing matrix
	Update(ctx context.Context, matrix *entity.ApprovalMatrix) error

	// Archive marks a matrix archived; in-flight workflows keep using it
	Archive(ctx context.Context, companyID, id string) error

	// Get retrieves a matrix by ID
	Get(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error)

	// ListByCompany retrieves all matrices for a company
	ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error)

	// ResolveActive returns the active matrix for a (company, document type)
	// pair, creating and persisting the default single-level owner matrix
	// when none is configured.
	ResolveActive(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error)
}

type matrixServiceImpl struct {
	matrixRepo port.MatrixRepository
	directory  port.CompanyDirectory
	txManager  port.TransactionManager
	logger     Logger
}

// NewMatrixService creates a new MatrixService
func NewMatrixService(
	matrixRepo port.MatrixRepository,
	directory port.CompanyDirectory,
	txManager port.TransactionManager,
	logger Logger,
) MatrixService {
	return &matrixServiceImpl{
		matrixRepo: matrixRepo,
		directory:  directory,
		txManager:  txManager,
		logger:     logger,
	}
}

// Create validates and persists a new matrix
func (s *matrixServiceImpl) Create(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	if err := validateMatrix(matrix); err != nil {
		return err
	}

	if matrix.ID == "" {
		matrix.ID = uuid.NewString()
	}
	if matrix.Status == "" {
		matrix.Status = entity.MatrixStatusDraft
	}
	now := time.Now()
	matrix.CreatedAt = now
	matrix.UpdatedAt = now

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if matrix.Status == entity.MatrixStatusActive {
			if err := s.archiveActive(txCtx, matrix.CompanyID, matrix.DocumentType, matrix.ID); err != nil {
				return err
			}
		}
		if err := s.matrixRepo.Create(txCtx, matrix); err != nil {
			return fmt.Errorf("create matrix: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create matrix", "error", err, "company_id", matrix.CompanyID)
		return err
	}

	s.logger.Info("Matrix created",
		"matrix_id", matrix.ID,
		"company_id", matrix.CompanyID,
		"document_type", matrix.DocumentType,
		"status", matrix.Status)
	return nil
}

// Update validates and persists changes to an existing matrix
func (s *matrixServiceImpl) Update(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	if err := validateMatrix(matrix); err != nil {
		return err
	}

	existing, err := s.matrixRepo.GetByID(ctx, matrix.CompanyID, matrix.ID)
	if err != nil {
		return fmt.Errorf("get matrix: %w", err)
	}
	if existing == nil {
		return workflow.ErrMatrixNotFound
	}

	matrix.CreatedAt = existing.CreatedAt
	matrix.CreatedBy = existing.CreatedBy
	matrix.UpdatedAt = time.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if matrix.Status == entity.MatrixStatusActive {
			if err := s.archiveActive(txCtx, matrix.CompanyID, matrix.DocumentType, matrix.ID); err != nil {
				return err
			}
		}
		if err := s.matrixRepo.Update(txCtx, matrix); err != nil {
			return fmt.Errorf("update matrix: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update matrix", "error", err, "matrix_id", matrix.ID)
		return err
	}

	s.logger.Info("Matrix updated", "matrix_id", matrix.ID, "status", matrix.Status)
	return nil
}

// Archive marks a matrix archived
func (s *matrixServiceImpl) Archive(ctx context.Context, companyID, id string) error {
	existing, err := s.matrixRepo.GetByID(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("get matrix: %w", err)
	}
	if existing == nil {
		return workflow.ErrMatrixNotFound
	}

	if err := s.matrixRepo.UpdateStatus(ctx, companyID, id, entity.MatrixStatusArchived); err != nil {
		s.logger.Error("Failed to archive matrix", "error", err, "matrix_id", id)
		return fmt.Errorf("archive matrix: %w", err)
	}

	s.logger.Info("Matrix archived", "matrix_id", id, "company_id", companyID)
	return nil
}

// Get retrieves a matrix by ID
func (s *matrixServiceImpl) Get(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error) {
	matrix, err := s.matrixRepo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("get matrix: %w", err)
	}
	if matrix == nil {
		return nil, workflow.ErrMatrixNotFound
	}
	return matrix, nil
}

// ListByCompany retrieves all matrices for a company
func (s *matrixServiceImpl) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error) {
	matrices, err := s.matrixRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list matrices: %w", err)
	}
	return matrices, nil
}

// ResolveActive returns the active matrix for the pair, falling back to the
// default single-level owner matrix. The fallback is a write disguised as a
// lookup, so it is logged at warn level; after the first call the persisted
// default is found by the regular lookup.
func (s *matrixServiceImpl) ResolveActive(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error) {
	matrix, err := s.matrixRepo.GetActive(ctx, companyID, documentType)
	if err != nil {
		return nil, fmt.Errorf("get active matrix: %w", err)
	}
	if matrix != nil {
		return matrix, nil
	}

	owner, err := s.directory.GetOwner(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("get company owner: %w", err)
	}
	if owner == "" {
		return nil, workflow.ErrNoOwnerFound
	}

	now := time.Now()
	matrix = &entity.ApprovalMatrix{
		ID:           uuid.NewString(),
		CompanyID:    companyID,
		Name:         "Default approval policy",
		Description:  "Single-level sign-off by the company owner",
		DocumentType: documentType,
		Status:       entity.MatrixStatusActive,
		Blocks: []entity.ApprovalBlock{
			{Level: 1, Approvers: []string{owner}, RequiresAll: true},
		},
		CreatedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Warn("No active matrix configured, creating default",
		"company_id", companyID,
		"document_type", documentType,
		"owner", owner)

	if err := s.matrixRepo.Create(ctx, matrix); err != nil {
		// A concurrent resolve may have won the race; the unique index on
		// active (company, document type) rejects the second insert.
		existing, lookupErr := s.matrixRepo.GetActive(ctx, companyID, documentType)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create default matrix: %w", err)
	}

	return matrix, nil
}

// archiveActive archives any active matrix for the pair other than keepID
func (s *matrixServiceImpl) archiveActive(ctx context.Context, companyID, documentType, keepID string) error {
	active, err := s.matrixRepo.GetActive(ctx, companyID, documentType)
	if err != nil {
		return fmt.Errorf("get active matrix: %w", err)
	}
	if active == nil || active.ID == keepID {
		return nil
	}
	if err := s.matrixRepo.UpdateStatus(ctx, companyID, active.ID, entity.MatrixStatusArchived); err != nil {
		return fmt.Errorf("archive previous matrix: %w", err)
	}
	return nil
}

func validateMatrix(matrix *entity.ApprovalMatrix) error {
	if matrix.CompanyID == "" {
		return fmt.Errorf("%w: company id is required", workflow.ErrInvalidMatrix)
	}
	if matrix.Name == "" {
		return fmt.Errorf("%w: name is required", workflow.ErrInvalidMatrix)
	}
	if matrix.DocumentType == "" {
		return fmt.Errorf("%w: document type is required", workflow.ErrInvalidMatrix)
	}
	return workflow.ValidateBlocks(matrix.Blocks)
}
