// Package events defines the domain events emitted when interns and
// contacts change.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	InternSignedUp      Type = "intern.signed_up"
	ReferralCredited    Type = "referral.credited"
	InternAmountUpdated Type = "intern.amount_updated"
	InternDeleted       Type = "intern.deleted"
	ContactReceived     Type = "contact.received"
)

type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	SubjectID  string         `json:"subjectId"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(t Type, subjectID string, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		SubjectID:  subjectID,
		Data:       data,
	}
}

// Publisher delivers events to a broker. Delivery is best effort: callers
// log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Handler consumes one event. Returning an error does not stop delivery of
// later events.
type Handler func(ctx context.Context, event Event) error

// Local hands events straight to a Handler in the publishing process.
type Local struct {
	Handler Handler
}

func (l Local) Publish(ctx context.Context, event Event) error {
	return l.Handler(ctx, event)
}

func (Local) Close() error { return nil }

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
