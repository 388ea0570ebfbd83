package notify

import "context"

// Event is the payload fanned out to downstream observers on booking and
// schedule transitions. Delivery mechanics past the publish boundary are out
// of scope for the engines.
type Event struct {
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	BookingID *string `json:"booking_id,omitempty"`
	CompanyID *string `json:"company_id,omitempty"`
}

// Publisher fans out events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards events. Used in tests and redis-less deployments.
type NoopPublisher struct{}

// Publish discards the event
func (NoopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
