package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"intern-service/internal/events"

	"github.com/IBM/sarama"
)

type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	handler  *ConsumerGroupHandler
	logger   *slog.Logger
}

func NewConsumer(brokers []string, topic, group string, handler events.Handler, logger *slog.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, group, config)
	if err != nil {
		return nil, err
	}

	logger.Info("kafka consumer initialized", "brokers", brokers, "topic", topic, "group", group)

	return &Consumer{
		consumer: consumerGroup,
		topic:    topic,
		handler:  &ConsumerGroupHandler{Handler: handler, Logger: logger},
		logger:   logger,
	}, nil
}

// Start consumes until ctx is done, rejoining the group after rebalances.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		if err := c.consumer.Consume(ctx, []string{c.topic}, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("error consuming events", "error", err)
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// ConsumerGroupHandler decodes each record as an events.Event. Records that
// cannot be decoded or handled are still marked so they are not replayed.
type ConsumerGroupHandler struct {
	Handler events.Handler
	Logger  *slog.Logger
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var event events.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			h.Logger.Error("failed to unmarshal event",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			session.MarkMessage(msg, "")
			continue
		}

		if err := h.Handler(session.Context(), event); err != nil {
			h.Logger.Error("failed to handle event", "event_id", event.ID, "type", event.Type, "error", err)
		}

		session.MarkMessage(msg, "")
	}

	return nil
}
