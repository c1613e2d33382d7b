package workflow

import "errors"

var (
	// ErrMatrixNotFound is returned when no matrix exists for a lookup
	ErrMatrixNotFound = errors.New("approval matrix not found")

	// ErrEmptyMatrix is returned when a matrix has no approval blocks
	ErrEmptyMatrix = errors.New("approval matrix has no approval blocks")

	// ErrInvalidMatrix is returned when matrix blocks fail structural validation
	ErrInvalidMatrix = errors.New("invalid approval matrix")

	// ErrNoOwnerFound is returned when a company has no owner to build a default matrix from
	ErrNoOwnerFound = errors.New("no company owner found")

	// ErrInvalidSubmission is returned when a submission is missing required
	// identifiers
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrWorkflowNotFound is returned when a workflow lookup misses
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowNotPending is returned when acting on a resolved workflow
	ErrWorkflowNotPending = errors.New("workflow is not pending")

	// ErrWorkflowAlreadyPending is returned when submitting a document that
	// already has a pending workflow
	ErrWorkflowAlreadyPending = errors.New("workflow already pending for document")

	// ErrInvalidApprovalLevel indicates the workflow and its matrix disagree
	// on levels; a data-integrity bug, never retried
	ErrInvalidApprovalLevel = errors.New("invalid approval level")

	// ErrNotAuthorized is returned when the user is not an approver at the
	// workflow's current level
	ErrNotAuthorized = errors.New("user not authorized at current approval level")

	// ErrAlreadyDecided is returned when the user already has a decision at
	// the current level
	ErrAlreadyDecided = errors.New("user already decided at current level")

	// ErrCommentsRequired is returned when declining without comments
	ErrCommentsRequired = errors.New("comments are required to decline")

	// ErrTaskNotFound is returned when a task lookup misses
	ErrTaskNotFound = errors.New("task not found")

	// ErrWriteConflict is returned when an optimistic-concurrency check fails
	ErrWriteConflict = errors.New("write conflict")

	// ErrInvalidTransition is returned when a status transition is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrGuardFailed is returned when a transition guard rejects the trigger
	ErrGuardFailed = errors.New("guard condition failed")
)
