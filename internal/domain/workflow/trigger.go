package workflow

// Trigger represents an action that can cause a status transition
type Trigger string

const (
	// TriggerApprove records an approval that leaves the workflow pending,
	// either because the level is incomplete or because a further level opens.
	TriggerApprove Trigger = "approve"

	// TriggerResolve records the approval that completes the final level.
	TriggerResolve Trigger = "resolve"

	// TriggerDecline terminates the workflow from any pending level.
	TriggerDecline Trigger = "decline"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
