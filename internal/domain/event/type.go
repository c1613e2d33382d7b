package event

// Type identifies the type of domain event
type Type string

const (
	TypeWorkflowSubmitted Type = "workflow.submitted"
	TypeLevelAdvanced     Type = "workflow.level_advanced"
	TypeWorkflowApproved  Type = "workflow.approved"
	TypeWorkflowDeclined  Type = "workflow.declined"
	TypeTaskCompleted     Type = "task.completed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowSubmitted,
		TypeLevelAdvanced,
		TypeWorkflowApproved,
		TypeWorkflowDeclined,
		TypeTaskCompleted:
		return true
	default:
		return false
	}
}
