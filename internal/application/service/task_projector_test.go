package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/approvia/doa-engine/internal/domain/entity"
)

func TestTaskIDs_Deterministic(t *testing.T) {
	assert.Equal(t,
		approvalTaskID("wf-1", 1, "alice"),
		approvalTaskID("wf-1", 1, "alice"),
		"same inputs must derive the same ID")

	ids := map[string]bool{
		approvalTaskID("wf-1", 1, "alice"): true,
		approvalTaskID("wf-1", 2, "alice"): true,
		approvalTaskID("wf-1", 1, "bob"):   true,
		approvalTaskID("wf-2", 1, "alice"): true,
		initiatorTaskID("wf-1"):            true,
		initiatorTaskID("wf-2"):            true,
	}
	assert.Len(t, ids, 6, "distinct inputs must derive distinct IDs")
}

func projectorWorkflow() *entity.ApprovalWorkflow {
	now := time.Now()
	return &entity.ApprovalWorkflow{
		ID:           "wf-1",
		CompanyID:    "company-1",
		EntityType:   entity.DocumentTypeOrgChart,
		EntityID:     "doc-1",
		Status:       entity.WorkflowStatusPending,
		CurrentLevel: 1,
		InitiatorID:  "dave",
		SubmittedAt:  now,
	}
}

func TestTaskProjector_ProjectSubmission(t *testing.T) {
	repo := newMockTaskRepo()
	projector := newTaskProjector(repo)
	wf := projectorWorkflow()
	block := entity.ApprovalBlock{Level: 1, Approvers: []string{"alice", "bob"}, RequiresAll: true}

	tasks, err := projector.projectSubmission(context.Background(), wf, block, "Org chart 2026")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	initiator := tasks[0]
	assert.Equal(t, initiatorTaskID(wf.ID), initiator.ID)
	assert.Equal(t, entity.TaskTypeApprovalResponse, initiator.TaskType)
	assert.Equal(t, "dave", initiator.UserID)
	assert.Contains(t, initiator.Description, "Org chart 2026")

	for i, approver := range block.Approvers {
		task := tasks[i+1]
		assert.Equal(t, approvalTaskID(wf.ID, 1, approver), task.ID)
		assert.Equal(t, entity.TaskTypeApprovalRequest, task.TaskType)
		assert.Equal(t, approver, task.UserID)
		assert.Equal(t, entity.PriorityMedium, task.Priority)
		assert.False(t, task.Completed)
	}
}

func TestTaskProjector_ProjectSubmissionIdempotent(t *testing.T) {
	repo := newMockTaskRepo()
	projector := newTaskProjector(repo)
	wf := projectorWorkflow()
	block := entity.ApprovalBlock{Level: 1, Approvers: []string{"alice"}}

	_, err := projector.projectSubmission(context.Background(), wf, block, "")
	require.NoError(t, err)
	_, err = projector.projectSubmission(context.Background(), wf, block, "")
	require.NoError(t, err)

	tasks, err := repo.GetByWorkflow(context.Background(), wf.CompanyID, wf.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2, "re-running projection must not duplicate tasks")
}

func TestTaskProjector_CompleteLevel(t *testing.T) {
	repo := newMockTaskRepo()
	projector := newTaskProjector(repo)
	wf := projectorWorkflow()
	block := entity.ApprovalBlock{Level: 1, Approvers: []string{"alice", "bob"}, MinApprovals: 1}

	_, err := projector.projectLevelOpen(context.Background(), wf, block, "")
	require.NoError(t, err)
	require.NoError(t, projector.completeLevel(context.Background(), wf, block))

	for _, approver := range block.Approvers {
		task := repo.get(approvalTaskID(wf.ID, 1, approver))
		require.NotNil(t, task, approver)
		assert.True(t, task.Completed, approver)
		assert.NotNil(t, task.CompletedAt, approver)
	}
}

func TestTaskProjector_ProjectOutcome(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		comments     string
		wantTitle    string
		wantPriority string
	}{
		{
			name:         "approved outcome",
			status:       entity.WorkflowStatusApproved,
			wantTitle:    "Approved",
			wantPriority: entity.PriorityMedium,
		},
		{
			name:         "declined outcome carries comments",
			status:       entity.WorkflowStatusDeclined,
			comments:     "missing budget line",
			wantTitle:    "Declined",
			wantPriority: entity.PriorityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockTaskRepo()
			projector := newTaskProjector(repo)
			wf := projectorWorkflow()

			_, err := projector.projectSubmission(context.Background(), wf,
				entity.ApprovalBlock{Level: 1, Approvers: []string{"alice"}}, "")
			require.NoError(t, err)

			wf.Status = tt.status
			require.NoError(t, projector.projectOutcome(context.Background(), wf, tt.comments))

			task := repo.get(initiatorTaskID(wf.ID))
			require.NotNil(t, task)
			assert.Equal(t, tt.wantTitle, task.Title)
			assert.Equal(t, tt.wantPriority, task.Priority)
			if tt.comments != "" {
				assert.Contains(t, task.Description, tt.comments)
			}
			assert.False(t, task.Completed, "outcome stays open until acknowledged")
		})
	}
}

func TestTaskProjector_ProjectOutcomeRejectsPending(t *testing.T) {
	projector := newTaskProjector(newMockTaskRepo())
	wf := projectorWorkflow()

	err := projector.projectOutcome(context.Background(), wf, "")
	assert.Error(t, err)
}
