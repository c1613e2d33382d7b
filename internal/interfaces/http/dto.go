package http

import (
	"encoding/json"
	"fmt"

	"github.com/approvia/doa-engine/internal/domain/entity"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ApproverRef normalizes the duck-typed approver values legacy clients
// send: either a bare user-id string or a {type, value, label} object. The
// engine only ever sees the resolved identity string.
type ApproverRef struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// UnmarshalJSON accepts both the string and object forms
func (a *ApproverRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Type = "user"
		a.Value = s
		return nil
	}

	type plain ApproverRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("approver must be a string or an object: %w", err)
	}
	if p.Type == "" {
		p.Type = "user"
	}
	*a = ApproverRef(p)
	if a.Value == "" {
		return fmt.Errorf("approver value is required")
	}
	return nil
}

// BlockRequest is one approval level in a matrix payload
type BlockRequest struct {
	Level        int           `json:"level"`
	Approvers    []ApproverRef `json:"approvers"`
	RequiresAll  bool          `json:"requires_all"`
	MinApprovals int           `json:"min_approvals,omitempty"`
}

// MatrixRequest is the create/update payload for a matrix
type MatrixRequest struct {
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	DocumentType   string         `json:"document_type"`
	Status         string         `json:"status,omitempty"`
	ApprovalBlocks []BlockRequest `json:"approval_blocks"`
	CreatedBy      string         `json:"created_by,omitempty"`
}

// ToEntity converts the payload into the engine's matrix model. Approvers
// within a block are deduplicated in order: the string and object forms of
// the same identity must collapse to one entry.
func (r MatrixRequest) ToEntity(companyID string) *entity.ApprovalMatrix {
	blocks := make([]entity.ApprovalBlock, 0, len(r.ApprovalBlocks))
	for _, b := range r.ApprovalBlocks {
		approvers := make([]string, 0, len(b.Approvers))
		seen := make(map[string]bool, len(b.Approvers))
		for _, a := range b.Approvers {
			if seen[a.Value] {
				continue
			}
			seen[a.Value] = true
			approvers = append(approvers, a.Value)
		}
		blocks = append(blocks, entity.ApprovalBlock{
			Level:        b.Level,
			Approvers:    approvers,
			RequiresAll:  b.RequiresAll,
			MinApprovals: b.MinApprovals,
		})
	}
	return &entity.ApprovalMatrix{
		CompanyID:    companyID,
		Name:         r.Name,
		Description:  r.Description,
		DocumentType: r.DocumentType,
		Status:       r.Status,
		Blocks:       blocks,
		CreatedBy:    r.CreatedBy,
	}
}

// SubmitRequest starts an approval workflow for a document
type SubmitRequest struct {
	DocumentID    string `json:"document_id" binding:"required"`
	DocumentType  string `json:"document_type" binding:"required"`
	DocumentTitle string `json:"document_title"`
	InitiatorID   string `json:"initiator_id" binding:"required"`
}

// DecisionRequest carries an approve/decline action
type DecisionRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Comments string `json:"comments"`
}

// SubmitResponse returns the created workflow and its initial tasks
type SubmitResponse struct {
	Workflow *entity.ApprovalWorkflow `json:"workflow"`
	Tasks    []*entity.ApprovalTask   `json:"tasks"`
}

// DecisionResponse returns the updated workflow and any newly opened tasks
type DecisionResponse struct {
	Workflow *entity.ApprovalWorkflow `json:"workflow"`
	NewTasks []*entity.ApprovalTask   `json:"new_tasks,omitempty"`
}
