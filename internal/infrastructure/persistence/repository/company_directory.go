package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/infrastructure/persistence/sqlite"
)

// CompanyDirectory implements port.CompanyDirectory against the
// company_members table maintained by the surrounding application. The
// engine only ever asks one question: who owns the company.
type CompanyDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyDirectory creates a new SQL-backed company directory
func NewCompanyDirectory(db *sql.DB, logger *zap.Logger) port.CompanyDirectory {
	return &CompanyDirectory{db: db, logger: logger}
}

// GetOwner returns the company owner, falling back deterministically to the
// earliest member when no owner role exists. Returns an empty string when
// the company has no members at all.
func (d *CompanyDirectory) GetOwner(ctx context.Context, companyID string) (string, error) {
	query := `
		SELECT user_id FROM company_members
		WHERE company_id = ? AND role = 'owner'
		ORDER BY created_at ASC, user_id ASC
		LIMIT 1
	`
	var userID string
	err := sqlite.ExecutorFrom(ctx, d.db).QueryRowContext(ctx, query, companyID).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("query company owner: %w", err)
	}

	fallback := `
		SELECT user_id FROM company_members
		WHERE company_id = ?
		ORDER BY created_at ASC, user_id ASC
		LIMIT 1
	`
	err = sqlite.ExecutorFrom(ctx, d.db).QueryRowContext(ctx, fallback, companyID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query company members: %w", err)
	}

	d.logger.Warn("Company has no owner role, using earliest member",
		zap.String("company_id", companyID),
		zap.String("user_id", userID))
	return userID, nil
}

// Verify interface compliance
var _ port.CompanyDirectory = (*CompanyDirectory)(nil)
