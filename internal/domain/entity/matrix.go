package entity

import "time"

// ApprovalMatrix is a company-scoped delegation-of-authority policy: the
// ordered list of approval blocks a document of the given type must pass
// before it becomes effective.
type ApprovalMatrix struct {
	ID           string          `json:"id"`
	CompanyID    string          `json:"company_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	DocumentType string          `json:"document_type"`
	Status       string          `json:"status"`
	Blocks       []ApprovalBlock `json:"approval_blocks"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ApprovalBlock is one level of required sign-off within a matrix.
// When RequiresAll is false, MinApprovals approvals complete the level;
// a zero MinApprovals is treated as 1.
type ApprovalBlock struct {
	Level        int      `json:"level"`
	Approvers    []string `json:"approvers"`
	RequiresAll  bool     `json:"requires_all"`
	MinApprovals int      `json:"min_approvals,omitempty"`
}

// EffectiveMinApprovals returns the number of approvals needed to complete
// this block.
func (b ApprovalBlock) EffectiveMinApprovals() int {
	if b.RequiresAll {
		return len(b.Approvers)
	}
	if b.MinApprovals < 1 {
		return 1
	}
	return b.MinApprovals
}

// HasApprover reports whether userID is listed in this block.
func (b ApprovalBlock) HasApprover(userID string) bool {
	for _, a := range b.Approvers {
		if a == userID {
			return true
		}
	}
	return false
}

// BlockAtLevel returns the approval block configured for the given level,
// or nil if the matrix has no such level.
func (m *ApprovalMatrix) BlockAtLevel(level int) *ApprovalBlock {
	for i := range m.Blocks {
		if m.Blocks[i].Level == level {
			return &m.Blocks[i]
		}
	}
	return nil
}

// MaxLevel returns the highest configured level, 0 for an empty matrix.
func (m *ApprovalMatrix) MaxLevel() int {
	max := 0
	for _, b := range m.Blocks {
		if b.Level > max {
			max = b.Level
		}
	}
	return max
}
