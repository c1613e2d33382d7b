package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/domain/entity"
	"github.com/approvia/doa-engine/internal/domain/event"
	"github.com/approvia/doa-engine/internal/domain/workflow"
)

// writeConflictRetries bounds the internal re-read-and-retry loop on
// optimistic-concurrency failures before surfacing the conflict.
const writeConflictRetries = 3

// Document is the opaque metadata a caller supplies at submission time.
// The engine never reads document content.
type Document struct {
	ID    string
	Type  string
	Title string
}

// ApprovalService is the public entry point of the approval engine
type ApprovalService interface {
	// Submit starts an approval workflow for a document and returns the
	// workflow plus the tasks created for level 1 and the initiator
	Submit(ctx context.Context, companyID string, doc Document, initiatorID string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error)

	// Approve records an approval at the workflow's current level,
	// advancing the level or resolving the workflow when the level
	// completes. Returns any tasks created for a newly opened level.
	Approve(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error)

	// Decline records a decline, which is unconditionally terminal.
	// Comments are mandatory.
	Decline(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, error)

	// CompleteTask acknowledges a task, marking it completed
	CompleteTask(ctx context.Context, companyID, taskID string) error

	// GetWorkflowForDocument returns the most recently created workflow for
	// a document, or nil when the document was never submitted
	GetWorkflowForDocument(ctx context.Context, companyID, documentType, documentID string) (*entity.ApprovalWorkflow, error)

	// GetUserTasks returns the user's incomplete tasks in the company
	GetUserTasks(ctx context.Context, companyID, userID string) ([]*entity.ApprovalTask, error)
}

type approvalServiceImpl struct {
	workflowRepo  port.WorkflowRepository
	taskRepo      port.TaskRepository
	matrixService MatrixService
	txManager     port.TransactionManager
	publisher     port.EventPublisher
	projector     *taskProjector
	logger        Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	workflowRepo port.WorkflowRepository,
	taskRepo port.TaskRepository,
	matrixService MatrixService,
	txManager port.TransactionManager,
	publisher port.EventPublisher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		workflowRepo:  workflowRepo,
		taskRepo:      taskRepo,
		matrixService: matrixService,
		txManager:     txManager,
		publisher:     publisher,
		projector:     newTaskProjector(taskRepo),
		logger:        logger,
	}
}

// Submit starts an approval workflow for a document
func (s *approvalServiceImpl) Submit(ctx context.Context, companyID string, doc Document, initiatorID string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error) {
	if companyID == "" || doc.ID == "" || doc.Type == "" || initiatorID == "" {
		return nil, nil, fmt.Errorf("%w: company id, document id, document type and initiator are required", workflow.ErrInvalidSubmission)
	}

	existing, err := s.workflowRepo.GetLatestByDocument(ctx, companyID, doc.Type, doc.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing workflow: %w", err)
	}
	if existing != nil && existing.Status == entity.WorkflowStatusPending {
		return nil, nil, workflow.ErrWorkflowAlreadyPending
	}

	matrix, err := s.matrixService.ResolveActive(ctx, companyID, doc.Type)
	if err != nil {
		return nil, nil, err
	}
	firstBlock := matrix.BlockAtLevel(1)
	if firstBlock == nil {
		return nil, nil, workflow.ErrEmptyMatrix
	}

	now := time.Now()
	wf := &entity.ApprovalWorkflow{
		ID:           uuid.NewString(),
		CompanyID:    companyID,
		EntityType:   doc.Type,
		EntityID:     doc.ID,
		Status:       entity.WorkflowStatusPending,
		CurrentLevel: 1,
		MatrixID:     matrix.ID,
		InitiatorID:  initiatorID,
		Decisions:    []entity.ApprovalDecision{},
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	var tasks []*entity.ApprovalTask
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.workflowRepo.Create(txCtx, wf); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		tasks, err = s.projector.projectSubmission(txCtx, wf, *firstBlock, doc.Title)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to submit for approval",
			"error", err,
			"company_id", companyID,
			"entity_type", doc.Type,
			"entity_id", doc.ID)
		return nil, nil, err
	}

	s.logger.Info("Workflow submitted",
		"workflow_id", wf.ID,
		"company_id", companyID,
		"entity_type", doc.Type,
		"entity_id", doc.ID,
		"matrix_id", matrix.ID,
		"level1_approvers", len(firstBlock.Approvers))

	s.publish(ctx, event.New(event.TypeWorkflowSubmitted, companyID, wf.ID, map[string]interface{}{
		"entity_type":  doc.Type,
		"entity_id":    doc.ID,
		"initiator_id": initiatorID,
	}))

	return wf, tasks, nil
}

// Approve records an approval at the workflow's current level
func (s *approvalServiceImpl) Approve(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error) {
	var lastErr error
	for attempt := 0; attempt < writeConflictRetries; attempt++ {
		wf, newTasks, err := s.approveOnce(ctx, companyID, workflowID, userID, comments)
		if errors.Is(err, workflow.ErrWriteConflict) {
			lastErr = err
			continue
		}
		return wf, newTasks, err
	}
	s.logger.Error("Approve gave up after write conflicts",
		"workflow_id", workflowID, "user_id", userID)
	return nil, nil, lastErr
}

// approveOnce runs one read-evaluate-write cycle. A write conflict means a
// concurrent decision landed first; the caller retries from a fresh read,
// and the already-decided guard makes a retried self-approval a safe error.
func (s *approvalServiceImpl) approveOnce(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error) {
	wf, matrix, block, err := s.loadPending(ctx, companyID, workflowID, userID)
	if err != nil {
		return nil, nil, err
	}

	if wf.DecisionAt(userID, wf.CurrentLevel) != nil {
		return nil, nil, workflow.ErrAlreadyDecided
	}

	now := time.Now()
	wf.Decisions = append(wf.Decisions, entity.ApprovalDecision{
		UserID:    userID,
		Level:     wf.CurrentLevel,
		Decision:  entity.DecisionApproved,
		Comments:  comments,
		Timestamp: now,
	})
	wf.UpdatedAt = now

	levelComplete := workflow.LevelComplete(*block, wf)
	var nextBlock *entity.ApprovalBlock
	if levelComplete {
		nextBlock = matrix.BlockAtLevel(wf.CurrentLevel + 1)
	}

	machine := workflow.NewLifecycle(workflow.Status(wf.Status))
	trigger := workflow.TriggerApprove
	if levelComplete && nextBlock == nil {
		trigger = workflow.TriggerResolve
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, nil, err
	}

	completedLevel := wf.CurrentLevel
	wf.Status = machine.Status().String()
	if levelComplete && nextBlock != nil {
		wf.CurrentLevel = nextBlock.Level
	}
	if machine.Status().IsTerminal() {
		wf.CompletedAt = &now
	}

	var newTasks []*entity.ApprovalTask
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.workflowRepo.Update(txCtx, wf); err != nil {
			return err
		}
		if !levelComplete {
			return nil
		}
		if err := s.projector.completeLevel(txCtx, wf, *block); err != nil {
			return err
		}
		if nextBlock != nil {
			newTasks, err = s.projector.projectLevelOpen(txCtx, wf, *nextBlock, "")
			return err
		}
		return s.projector.projectOutcome(txCtx, wf, "")
	})
	if err != nil {
		if errors.Is(err, workflow.ErrWriteConflict) {
			return nil, nil, err
		}
		s.logger.Error("Failed to record approval",
			"error", err, "workflow_id", workflowID, "user_id", userID)
		return nil, nil, err
	}

	s.logger.Info("Approval recorded",
		"workflow_id", wf.ID,
		"user_id", userID,
		"level", completedLevel,
		"level_complete", levelComplete,
		"status", wf.Status)

	switch {
	case wf.Status == entity.WorkflowStatusApproved:
		s.publish(ctx, event.New(event.TypeWorkflowApproved, companyID, wf.ID, map[string]interface{}{
			"entity_type": wf.EntityType,
			"entity_id":   wf.EntityID,
		}))
	case levelComplete:
		s.publish(ctx, event.New(event.TypeLevelAdvanced, companyID, wf.ID, map[string]interface{}{
			"from_level": completedLevel,
			"to_level":   wf.CurrentLevel,
		}))
	}

	return wf, newTasks, nil
}

// Decline records a decline; terminal regardless of quorum settings
func (s *approvalServiceImpl) Decline(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, workflow.ErrCommentsRequired
	}

	var lastErr error
	for attempt := 0; attempt < writeConflictRetries; attempt++ {
		wf, err := s.declineOnce(ctx, companyID, workflowID, userID, comments)
		if errors.Is(err, workflow.ErrWriteConflict) {
			lastErr = err
			continue
		}
		return wf, err
	}
	s.logger.Error("Decline gave up after write conflicts",
		"workflow_id", workflowID, "user_id", userID)
	return nil, lastErr
}

func (s *approvalServiceImpl) declineOnce(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, error) {
	wf, _, block, err := s.loadPending(ctx, companyID, workflowID, userID)
	if err != nil {
		return nil, err
	}

	if wf.DecisionAt(userID, wf.CurrentLevel) != nil {
		return nil, workflow.ErrAlreadyDecided
	}

	now := time.Now()
	wf.Decisions = append(wf.Decisions, entity.ApprovalDecision{
		UserID:    userID,
		Level:     wf.CurrentLevel,
		Decision:  entity.DecisionDeclined,
		Comments:  comments,
		Timestamp: now,
	})

	machine := workflow.NewLifecycle(workflow.Status(wf.Status))
	if err := machine.Fire(ctx, workflow.TriggerDecline); err != nil {
		return nil, err
	}
	wf.Status = machine.Status().String()
	wf.CompletedAt = &now
	wf.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.workflowRepo.Update(txCtx, wf); err != nil {
			return err
		}
		if err := s.projector.completeLevel(txCtx, wf, *block); err != nil {
			return err
		}
		return s.projector.projectOutcome(txCtx, wf, comments)
	})
	if err != nil {
		if errors.Is(err, workflow.ErrWriteConflict) {
			return nil, err
		}
		s.logger.Error("Failed to record decline",
			"error", err, "workflow_id", workflowID, "user_id", userID)
		return nil, err
	}

	s.logger.Info("Workflow declined",
		"workflow_id", wf.ID,
		"user_id", userID,
		"level", wf.CurrentLevel)

	s.publish(ctx, event.New(event.TypeWorkflowDeclined, companyID, wf.ID, map[string]interface{}{
		"entity_type": wf.EntityType,
		"entity_id":   wf.EntityID,
		"declined_by": userID,
		"comments":    comments,
	}))

	return wf, nil
}

// CompleteTask acknowledges a task
func (s *approvalServiceImpl) CompleteTask(ctx context.Context, companyID, taskID string) error {
	task, err := s.taskRepo.GetByID(ctx, companyID, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return workflow.ErrTaskNotFound
	}

	if err := s.taskRepo.Complete(ctx, companyID, taskID); err != nil {
		s.logger.Error("Failed to complete task", "error", err, "task_id", taskID)
		return fmt.Errorf("complete task: %w", err)
	}

	s.logger.Info("Task completed", "task_id", taskID, "company_id", companyID)

	s.publish(ctx, event.New(event.TypeTaskCompleted, companyID, task.WorkflowID, map[string]interface{}{
		"task_id":   taskID,
		"task_type": task.TaskType,
		"user_id":   task.UserID,
	}))
	return nil
}

// GetWorkflowForDocument returns the most recently created workflow for a document
func (s *approvalServiceImpl) GetWorkflowForDocument(ctx context.Context, companyID, documentType, documentID string) (*entity.ApprovalWorkflow, error) {
	wf, err := s.workflowRepo.GetLatestByDocument(ctx, companyID, documentType, documentID)
	if err != nil {
		return nil, fmt.Errorf("get workflow for document: %w", err)
	}
	return wf, nil
}

// GetUserTasks returns the user's incomplete tasks in the company
func (s *approvalServiceImpl) GetUserTasks(ctx context.Context, companyID, userID string) ([]*entity.ApprovalTask, error) {
	tasks, err := s.taskRepo.ListIncompleteByUser(ctx, companyID, userID)
	if err != nil {
		return nil, fmt.Errorf("list user tasks: %w", err)
	}
	return tasks, nil
}

// loadPending runs preconditions 1-4 shared by approve and decline: the
// workflow exists, is pending, its matrix has a block at the current level,
// and the user is an approver of that block.
func (s *approvalServiceImpl) loadPending(ctx context.Context, companyID, workflowID, userID string) (*entity.ApprovalWorkflow, *entity.ApprovalMatrix, *entity.ApprovalBlock, error) {
	wf, err := s.workflowRepo.GetByID(ctx, companyID, workflowID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get workflow: %w", err)
	}
	if wf == nil {
		return nil, nil, nil, workflow.ErrWorkflowNotFound
	}
	if wf.Status != entity.WorkflowStatusPending {
		return nil, nil, nil, workflow.ErrWorkflowNotPending
	}

	matrix, err := s.matrixService.Get(ctx, companyID, wf.MatrixID)
	if err != nil {
		return nil, nil, nil, err
	}

	block := matrix.BlockAtLevel(wf.CurrentLevel)
	if block == nil {
		// The workflow references a level its matrix does not define: a
		// data-integrity bug, surfaced loudly and never retried.
		s.logger.Error("Workflow level missing from matrix",
			"workflow_id", wf.ID,
			"matrix_id", matrix.ID,
			"current_level", wf.CurrentLevel)
		return nil, nil, nil, workflow.ErrInvalidApprovalLevel
	}

	if !block.HasApprover(userID) {
		return nil, nil, nil, workflow.ErrNotAuthorized
	}

	return wf, matrix, block, nil
}

// publish emits a domain event; failures never affect the operation
func (s *approvalServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, evt)
}
