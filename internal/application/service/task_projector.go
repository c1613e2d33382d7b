package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/approvia/doa-engine/internal/application/port"
	"github.com/approvia/doa-engine/internal/domain/entity"
)

// taskNamespace seeds the deterministic task IDs. Never change it: task
// identity across projection re-runs depends on it.
var taskNamespace = uuid.MustParse("8f3c1d6a-2b54-4e8f-9c07-5a1e4d2b9f36")

// taskProjector derives and maintains the human worklist from workflow
// transitions. It is the only writer of tasks; every write is an upsert on
// a deterministic ID, so projection can be re-run safely after a crash
// between the workflow write and the task write.
type taskProjector struct {
	taskRepo port.TaskRepository
}

func newTaskProjector(taskRepo port.TaskRepository) *taskProjector {
	return &taskProjector{taskRepo: taskRepo}
}

// approvalTaskID derives the ID of an approver's level task
func approvalTaskID(workflowID string, level int, userID string) string {
	return uuid.NewSHA1(taskNamespace, []byte(fmt.Sprintf("%s:%d:%s", workflowID, level, userID))).String()
}

// initiatorTaskID derives the ID of the initiator's response task
func initiatorTaskID(workflowID string) string {
	return uuid.NewSHA1(taskNamespace, []byte(workflowID+":initiator")).String()
}

// projectSubmission creates the initiator's pending task and one request
// task per level-1 approver. Returns the created tasks.
func (p *taskProjector) projectSubmission(ctx context.Context, wf *entity.ApprovalWorkflow, block entity.ApprovalBlock, documentTitle string) ([]*entity.ApprovalTask, error) {
	now := time.Now()

	initiator := &entity.ApprovalTask{
		ID:          initiatorTaskID(wf.ID),
		CompanyID:   wf.CompanyID,
		TaskType:    entity.TaskTypeApprovalResponse,
		UserID:      wf.InitiatorID,
		WorkflowID:  wf.ID,
		EntityType:  wf.EntityType,
		EntityID:    wf.EntityID,
		Title:       "Approval pending",
		Description: fmt.Sprintf("%q has been submitted for approval", documentTitle),
		Priority:    entity.PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.taskRepo.Upsert(ctx, initiator); err != nil {
		return nil, fmt.Errorf("upsert initiator task: %w", err)
	}

	tasks := []*entity.ApprovalTask{initiator}
	requests, err := p.projectLevelOpen(ctx, wf, block, documentTitle)
	if err != nil {
		return nil, err
	}
	return append(tasks, requests...), nil
}

// projectLevelOpen creates one request task per approver of the block
func (p *taskProjector) projectLevelOpen(ctx context.Context, wf *entity.ApprovalWorkflow, block entity.ApprovalBlock, documentTitle string) ([]*entity.ApprovalTask, error) {
	now := time.Now()
	title := "Approval required"
	description := fmt.Sprintf("Level %d approval for %s %s", block.Level, wf.EntityType, wf.EntityID)
	if documentTitle != "" {
		description = fmt.Sprintf("Level %d approval for %q", block.Level, documentTitle)
	}

	tasks := make([]*entity.ApprovalTask, 0, len(block.Approvers))
	for _, approver := range block.Approvers {
		task := &entity.ApprovalTask{
			ID:          approvalTaskID(wf.ID, block.Level, approver),
			CompanyID:   wf.CompanyID,
			TaskType:    entity.TaskTypeApprovalRequest,
			UserID:      approver,
			WorkflowID:  wf.ID,
			EntityType:  wf.EntityType,
			EntityID:    wf.EntityID,
			Title:       title,
			Description: description,
			Priority:    entity.PriorityMedium,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := p.taskRepo.Upsert(ctx, task); err != nil {
			return nil, fmt.Errorf("upsert approval task for %s: %w", approver, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// completeLevel marks every approver's task at the level completed,
// including approvers who never acted (minApprovals quorum reached).
func (p *taskProjector) completeLevel(ctx context.Context, wf *entity.ApprovalWorkflow, block entity.ApprovalBlock) error {
	for _, approver := range block.Approvers {
		id := approvalTaskID(wf.ID, block.Level, approver)
		if err := p.taskRepo.Complete(ctx, wf.CompanyID, id); err != nil {
			return fmt.Errorf("complete level task for %s: %w", approver, err)
		}
	}
	return nil
}

// projectOutcome rewrites the initiator's task into the terminal
// notification. It stays incomplete until the initiator acknowledges it.
func (p *taskProjector) projectOutcome(ctx context.Context, wf *entity.ApprovalWorkflow, comments string) error {
	now := time.Now()
	task := &entity.ApprovalTask{
		ID:         initiatorTaskID(wf.ID),
		CompanyID:  wf.CompanyID,
		TaskType:   entity.TaskTypeApprovalResponse,
		UserID:     wf.InitiatorID,
		WorkflowID: wf.ID,
		EntityType: wf.EntityType,
		EntityID:   wf.EntityID,
		CreatedAt:  wf.SubmittedAt,
		UpdatedAt:  now,
	}

	switch wf.Status {
	case entity.WorkflowStatusApproved:
		task.Title = "Approved"
		task.Description = fmt.Sprintf("Your %s %s has been approved", wf.EntityType, wf.EntityID)
		task.Priority = entity.PriorityMedium
	case entity.WorkflowStatusDeclined:
		task.Title = "Declined"
		task.Description = fmt.Sprintf("Your %s %s was declined: %s", wf.EntityType, wf.EntityID, comments)
		task.Priority = entity.PriorityHigh
	default:
		return fmt.Errorf("cannot project outcome for status %s", wf.Status)
	}

	if err := p.taskRepo.Upsert(ctx, task); err != nil {
		return fmt.Errorf("upsert outcome task: %w", err)
	}
	return nil
}
