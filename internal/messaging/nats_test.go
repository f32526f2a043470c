package messaging_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"intern-service/internal/events"
	"intern-service/internal/messaging"
	"intern-service/testing/testnats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSIntegration(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	defer natsContainer.Cleanup(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	producer, err := messaging.NewProducer(natsContainer.URL, "interns.events", logger)
	require.NoError(t, err)
	defer producer.Close()

	t.Run("Publish_UsesTypedSubject", func(t *testing.T) {
		conn := natsContainer.Connect(t)
		sub, err := conn.SubscribeSync("interns.events.>")
		require.NoError(t, err)
		require.NoError(t, conn.Flush())

		event := events.New(events.InternSignedUp, "intern-1", map[string]any{"referred": true})
		require.NoError(t, producer.Publish(context.Background(), event))

		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, "interns.events.intern.signed_up", msg.Subject)

		var got events.Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, events.InternSignedUp, got.Type)
		assert.Equal(t, "intern-1", got.SubjectID)
		assert.Equal(t, true, got.Data["referred"])
	})

	t.Run("Publish_ContactSubject", func(t *testing.T) {
		conn := natsContainer.Connect(t)
		sub, err := conn.SubscribeSync("interns.events.contact.received")
		require.NoError(t, err)
		require.NoError(t, conn.Flush())

		require.NoError(t, producer.Publish(context.Background(), events.New(events.ContactReceived, "c-1", nil)))

		_, err = sub.NextMsg(2 * time.Second)
		require.NoError(t, err)
	})

	t.Run("Consumer_ReceivesPublishedEvents", func(t *testing.T) {
		var (
			mu       sync.Mutex
			received []events.Event
		)
		handler := func(ctx context.Context, event events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, event)
			return nil
		}

		consumer, err := messaging.NewConsumer(natsContainer.URL, "interns.events", "activity-test", handler, logger)
		require.NoError(t, err)
		defer consumer.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, consumer.Subscribe(ctx))
		require.NoError(t, consumer.HealthCheck())

		signedUp := events.New(events.InternSignedUp, "intern-2", nil)
		credited := events.New(events.ReferralCredited, "intern-1", map[string]any{"bonus": 500.0})
		require.NoError(t, producer.Publish(ctx, signedUp))
		require.NoError(t, producer.Publish(ctx, credited))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(received) == 2
		}, 2*time.Second, 20*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		ids := []any{received[0].ID, received[1].ID}
		assert.ElementsMatch(t, ids, []any{signedUp.ID, credited.ID})
	})

	t.Run("Consumer_SkipsMalformedPayloads", func(t *testing.T) {
		calls := make(chan events.Event, 4)
		handler := func(ctx context.Context, event events.Event) error {
			calls <- event
			return nil
		}

		consumer, err := messaging.NewConsumer(natsContainer.URL, "interns.malformed", "activity-test", handler, logger)
		require.NoError(t, err)
		defer consumer.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, consumer.Subscribe(ctx))

		conn := natsContainer.Connect(t)
		require.NoError(t, conn.Publish("interns.malformed.contact.received", []byte("not json")))

		valid := events.New(events.ContactReceived, "c-2", nil)
		data, err := json.Marshal(valid)
		require.NoError(t, err)
		require.NoError(t, conn.Publish("interns.malformed.contact.received", data))
		require.NoError(t, conn.Flush())

		select {
		case got := <-calls:
			assert.Equal(t, valid.ID, got.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("valid event was not delivered")
		}
		assert.Empty(t, calls)
	})
}
