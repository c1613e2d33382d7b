package entity

import "time"

// ApprovalWorkflow is one running instance of a matrix applied to one
// concrete document. Version is the optimistic-concurrency revision; every
// update must supply the version it read.
type ApprovalWorkflow struct {
	ID           string             `json:"id"`
	CompanyID    string             `json:"company_id"`
	EntityType   string             `json:"entity_type"`
	EntityID     string             `json:"entity_id"`
	Status       string             `json:"status"`
	CurrentLevel int                `json:"current_level"`
	MatrixID     string             `json:"matrix_id"`
	InitiatorID  string             `json:"initiator_id"`
	Decisions    []ApprovalDecision `json:"decisions"`
	SubmittedAt  time.Time          `json:"submitted_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Version      int64              `json:"version"`
}

// ApprovalDecision is an immutable record of one approver's action at one
// level. Decisions are append-only; a workflow never holds two decisions
// for the same (UserID, Level).
type ApprovalDecision struct {
	UserID    string    `json:"user_id"`
	Level     int       `json:"level"`
	Decision  string    `json:"decision"`
	Comments  string    `json:"comments,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DecisionAt returns the decision recorded by userID at the given level,
// or nil if the user has not acted at that level.
func (w *ApprovalWorkflow) DecisionAt(userID string, level int) *ApprovalDecision {
	for i := range w.Decisions {
		if w.Decisions[i].UserID == userID && w.Decisions[i].Level == level {
			return &w.Decisions[i]
		}
	}
	return nil
}

// ApprovalsAtLevel counts the approved decisions recorded at the given level.
func (w *ApprovalWorkflow) ApprovalsAtLevel(level int) int {
	n := 0
	for _, d := range w.Decisions {
		if d.Level == level && d.Decision == DecisionApproved {
			n++
		}
	}
	return n
}
