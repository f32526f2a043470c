package activity

import (
	"context"
	"time"

	"intern-service/internal/events"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entry is one recorded domain event. EventID is unique so redelivered
// events are stored once.
type Entry struct {
	bun.BaseModel `bun:"table:activity_log,alias:al"`

	ID         int64          `bun:"id,pk,autoincrement" json:"id"`
	EventID    uuid.UUID      `bun:"event_id,type:uuid,unique,notnull" json:"eventId"`
	Type       events.Type    `bun:"type,notnull" json:"type"`
	SubjectID  string         `bun:"subject_id" json:"subjectId"`
	Data       map[string]any `bun:"data,type:jsonb" json:"data,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurredAt"`
	RecordedAt time.Time      `bun:"recorded_at,nullzero,notnull,default:current_timestamp" json:"recordedAt"`
}

var _ bun.BeforeAppendModelHook = (*Entry)(nil)

func (e *Entry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	return nil
}

func newEntry(event events.Event) *Entry {
	return &Entry{
		EventID:    event.ID,
		Type:       event.Type,
		SubjectID:  event.SubjectID,
		Data:       event.Data,
		OccurredAt: event.OccurredAt,
	}
}
