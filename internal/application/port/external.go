package port

import (
	"context"

	"github.com/approvia/doa-engine/internal/domain/event"
)

// CompanyDirectory answers ownership questions about a company. The engine
// only needs the owner when building a default matrix; membership management
// itself lives in the surrounding application.
type CompanyDirectory interface {
	// GetOwner returns the canonical owner of the company, or an empty
	// string when the company has no associated user at all.
	GetOwner(ctx context.Context, companyID string) (string, error)
}

// EventPublisher publishes domain events after durable state changes.
// Publishing must never fail the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event)
}
