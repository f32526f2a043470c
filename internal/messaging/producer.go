package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"intern-service/internal/events"

	"github.com/nats-io/nats.go"
)

// Producer publishes domain events to NATS on "<subject>.<event type>".
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewProducer(url string, subject string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url, nats.Name("intern-service"))
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
	}, nil
}

func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.ErrorContext(ctx, "failed to send event to NATS", "error", err, "subject", subject)
		return err
	}

	p.logger.DebugContext(ctx, "event sent to NATS", "subject", subject, "event_id", event.ID)
	return nil
}

func (p *Producer) Subject(t events.Type) string {
	return p.subject + "." + string(t)
}

// Close flushes pending messages before closing the connection.
func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
