package entity

import "time"

// ApprovalTask is a human worklist entry: either a request for an approver
// to act at the workflow's current level, or a response notification for
// the initiator (pending while the workflow runs, rewritten to a terminal
// message once it resolves).
//
// Task IDs are deterministic, derived from (workflow, level, user) for
// approval requests and from the workflow for the initiator task, so task
// projection can be re-run safely after a partial failure.
type ApprovalTask struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	TaskType    string     `json:"task_type"`
	UserID      string     `json:"user_id"`
	WorkflowID  string     `json:"workflow_id"`
	EntityType  string     `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
