package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"intern-service/internal/events"

	"github.com/nats-io/nats.go"
)

// Consumer delivers every event published under subject to a handler.
// Consumers sharing a queue group split the stream between them.
type Consumer struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	queue   string
	handler events.Handler
	logger  *slog.Logger
}

func NewConsumer(url, subject, queue string, handler events.Handler, logger *slog.Logger) (*Consumer, error) {
	nc, err := nats.Connect(url, nats.Name(queue))
	if err != nil {
		return nil, err
	}

	return &Consumer{
		conn:    nc,
		subject: subject,
		queue:   queue,
		handler: handler,
		logger:  logger,
	}, nil
}

// Start subscribes and blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.Subscribe(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// Subscribe registers the subscription and returns once the server has it.
func (c *Consumer) Subscribe(ctx context.Context) error {
	sub, err := c.conn.QueueSubscribe(c.subject+".>", c.queue, func(msg *nats.Msg) {
		var event events.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Error("failed to unmarshal event", "subject", msg.Subject, "error", err)
			return
		}

		if err := c.handler(ctx, event); err != nil {
			c.logger.Error("failed to handle event", "event_id", event.ID, "type", event.Type, "error", err)
			return
		}

		c.logger.Debug("event handled", "subject", msg.Subject, "event_id", event.ID)
	})
	if err != nil {
		return err
	}

	c.sub = sub
	if err := c.conn.Flush(); err != nil {
		return err
	}
	c.logger.Info("NATS consumer started", "subject", c.subject+".>", "queue", c.queue)
	return nil
}

func (c *Consumer) Close() error {
	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	c.conn.Close()
	return nil
}

func (c *Consumer) HealthCheck() error {
	if c.conn == nil {
		return nats.ErrConnectionClosed
	}
	if !c.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}
