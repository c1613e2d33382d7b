package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered schema history of the engine. Append only;
// never edit an applied entry.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "approval_matrices",
		SQL: `
			CREATE TABLE IF NOT EXISTS approval_matrices (
				id TEXT PRIMARY KEY,
				company_id TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT,
				document_type TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'draft',
				approval_blocks TEXT NOT NULL,
				created_by TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_matrices_company
				ON approval_matrices(company_id, document_type);
			CREATE UNIQUE INDEX IF NOT EXISTS ux_matrices_active
				ON approval_matrices(company_id, document_type)
				WHERE status = 'active';
		`,
	},
	{
		Version: 2,
		Name:    "approval_workflows",
		SQL: `
			CREATE TABLE IF NOT EXISTS approval_workflows (
				id TEXT PRIMARY KEY,
				company_id TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				current_level INTEGER NOT NULL DEFAULT 1,
				matrix_id TEXT NOT NULL,
				initiator_id TEXT NOT NULL,
				decisions TEXT NOT NULL DEFAULT '[]',
				submitted_at DATETIME NOT NULL,
				completed_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				version INTEGER NOT NULL DEFAULT 1
			);
			CREATE INDEX IF NOT EXISTS idx_workflows_document
				ON approval_workflows(company_id, entity_type, entity_id, created_at);
		`,
	},
	{
		Version: 3,
		Name:    "approval_tasks",
		SQL: `
			CREATE TABLE IF NOT EXISTS approval_tasks (
				id TEXT PRIMARY KEY,
				company_id TEXT NOT NULL,
				task_type TEXT NOT NULL,
				user_id TEXT NOT NULL,
				workflow_id TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				completed INTEGER NOT NULL DEFAULT 0,
				completed_at DATETIME,
				title TEXT NOT NULL,
				description TEXT,
				priority TEXT NOT NULL DEFAULT 'medium',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_tasks_worklist
				ON approval_tasks(company_id, user_id, completed);
			CREATE INDEX IF NOT EXISTS idx_tasks_workflow
				ON approval_tasks(company_id, workflow_id);
		`,
	},
	{
		Version: 4,
		Name:    "company_members",
		SQL: `
			CREATE TABLE IF NOT EXISTS company_members (
				company_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (company_id, user_id)
			);
		`,
	},
}

// Migrator applies pending migrations
type Migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// Run applies all pending migrations in version order
func (m *Migrator) Run() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))
		if err := m.apply(migration); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	m.logger.Info("Database migrations up to date")
	return nil
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(migration.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		migration.Version, migration.Name,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
