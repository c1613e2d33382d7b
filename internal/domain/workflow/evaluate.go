package workflow

import "github.com/approvia/doa-engine/internal/domain/entity"

// LevelComplete reports whether the approvals recorded on the workflow
// satisfy the block's completion rule: every listed approver when
// RequiresAll, otherwise at least the block's effective minimum.
func LevelComplete(block entity.ApprovalBlock, wf *entity.ApprovalWorkflow) bool {
	approvals := wf.ApprovalsAtLevel(block.Level)
	if block.RequiresAll {
		return approvals == len(block.Approvers)
	}
	return approvals >= block.EffectiveMinApprovals()
}

// ValidateBlocks checks the structural invariants of a matrix's approval
// blocks: at least one block, levels unique and contiguous starting at 1,
// every block with at least one approver, approvers distinct and non-empty
// within a block, and MinApprovals within bounds.
func ValidateBlocks(blocks []entity.ApprovalBlock) error {
	if len(blocks) == 0 {
		return ErrEmptyMatrix
	}
	seen := make(map[int]bool, len(blocks))
	for _, b := range blocks {
		if b.Level < 1 {
			return ErrInvalidMatrix
		}
		if seen[b.Level] {
			return ErrInvalidMatrix
		}
		seen[b.Level] = true
		if len(b.Approvers) == 0 {
			return ErrInvalidMatrix
		}
		// A repeated approver would make a requires-all level impossible to
		// complete: each user gets one decision per level, so approvals can
		// never reach len(Approvers).
		approvers := make(map[string]bool, len(b.Approvers))
		for _, a := range b.Approvers {
			if a == "" || approvers[a] {
				return ErrInvalidMatrix
			}
			approvers[a] = true
		}
		if b.MinApprovals > len(b.Approvers) {
			return ErrInvalidMatrix
		}
	}
	for level := 1; level <= len(blocks); level++ {
		if !seen[level] {
			return ErrInvalidMatrix
		}
	}
	return nil
}
