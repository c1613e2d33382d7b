package workflow

// Status represents a workflow status in the approval lifecycle
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

var validStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusDeclined: true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved: true,
	StatusDeclined: true,
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a valid workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}
