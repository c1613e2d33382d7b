package workflow

// NewLifecycle builds the approval lifecycle machine:
//
//	pending --approve--> pending   (level incomplete, or a further level opens)
//	pending --resolve--> approved  (final level complete)
//	pending --decline--> declined  (terminal from any level)
//
// approved and declined are terminal and permit nothing.
func NewLifecycle(initial Status) Machine {
	b := NewBuilder()

	b.Configure(StatusPending).
		Permit(TriggerApprove, StatusPending).
		Permit(TriggerResolve, StatusApproved).
		Permit(TriggerDecline, StatusDeclined)

	return b.Build(initial)
}
