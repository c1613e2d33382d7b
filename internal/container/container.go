// Package container wires the approval engine together: database,
// repositories, services, event dispatcher, and the HTTP server.
package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/approvia/doa-engine/internal/application/dispatcher"
	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/application/service"
	"github.com/approvia/doa-engine/internal/config"
	"github.com/approvia/doa-engine/internal/domain/event"
	httpiface "github.com/approvia/doa-engine/internal/interfaces/http"
	"github.com/approvia/doa-engine/internal/infrastructure/persistence/repository"
	"github.com/approvia/doa-engine/internal/infrastructure/persistence/sqlite"
	"github.com/approvia/doa-engine/pkg/database"
)

// Container holds the wired application graph
type Container struct {
	DB              *sql.DB
	TxManager       *sqlite.DB
	MatrixRepo      port.MatrixRepository
	WorkflowRepo    port.WorkflowRepository
	TaskRepo        port.TaskRepository
	Directory       port.CompanyDirectory
	Dispatcher      dispatcher.Dispatcher
	MatrixService   service.MatrixService
	ApprovalService service.ApprovalService
	Server          *httpiface.Server

	logger *zap.Logger
}

// Build constructs the full application graph from configuration. The
// database is opened and migrated before any service is created.
func Build(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.NewMigrator(db, logger).Run(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	txManager := sqlite.NewDB(db, logger)
	serviceLogger := &zapLoggerAdapter{logger: logger}

	matrixRepo := repository.NewMatrixRepository(db, logger)
	workflowRepo := repository.NewWorkflowRepository(db, logger)
	taskRepo := repository.NewTaskRepository(db, logger)
	directory := repository.NewCompanyDirectory(db, logger)

	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(serviceLogger))
	publisher := &dispatcherPublisher{dispatcher: disp}

	matrixService := service.NewMatrixService(matrixRepo, directory, txManager, serviceLogger)
	approvalService := service.NewApprovalService(
		workflowRepo, taskRepo, matrixService, txManager, publisher, serviceLogger)

	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, approvalService, matrixService, serviceLogger)

	return &Container{
		DB:              db,
		TxManager:       txManager,
		MatrixRepo:      matrixRepo,
		WorkflowRepo:    workflowRepo,
		TaskRepo:        taskRepo,
		Directory:       directory,
		Dispatcher:      disp,
		MatrixService:   matrixService,
		ApprovalService: approvalService,
		Server:          server,
		logger:          logger,
	}, nil
}

// Close releases container resources in reverse dependency order
func (c *Container) Close() error {
	if err := c.Dispatcher.Close(); err != nil {
		c.logger.Error("Failed to close dispatcher", zap.Error(err))
	}
	c.logger.Info("Closing database connection")
	return c.DB.Close()
}

// dispatcherPublisher adapts the event dispatcher to port.EventPublisher.
// Events are fanned out asynchronously; subscribers never block or fail the
// operation that produced the event.
type dispatcherPublisher struct {
	dispatcher dispatcher.Dispatcher
}

func (p *dispatcherPublisher) Publish(ctx context.Context, evt *event.Event) {
	p.dispatcher.DispatchAsync(ctx, evt)
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Infow(msg, keysAndValues...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Warnw(msg, keysAndValues...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Errorw(msg, keysAndValues...)
}
