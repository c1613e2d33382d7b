package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event emitted by the approval engine after a
// durable state change. Subscribers (notification, audit) are external; the
// engine never depends on one being present.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	CompanyID  string                 `json:"company_id"`
	WorkflowID string                 `json:"workflow_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// New creates a domain event with a generated ID and current timestamp
func New(eventType Type, companyID, workflowID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CompanyID:  companyID,
		WorkflowID: workflowID,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
}

// PayloadString retrieves a string value from the payload
func (e *Event) PayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// PayloadInt retrieves an int value from the payload
func (e *Event) PayloadInt(key string) int {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
