//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/geostack-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/geostack-pipeline/internal/config"
	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

const outcomeTopic = "test-run-outcomes"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startKafka runs a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker addresses")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp",
		fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// outcomeMessage is a deserialized message read from the outcome topic.
type outcomeMessage struct {
	Key     string
	Headers map[string]string
	Payload map[string]any
}

func readOutcome(ctx context.Context, t *testing.T, consumer *kafkago.Reader) outcomeMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from outcome topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload), "unmarshal outcome event")

	return outcomeMessage{Key: string(msg.Key), Headers: headers, Payload: payload}
}

// TestPublishOutcomeRoundTrip verifies that published unit outcomes arrive on
// the topic with the expected key, headers, and JSON body.
func TestPublishOutcomeRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, outcomeTopic)

	cfg := config.KafkaConfig{
		Enabled:      true,
		Brokers:      []string{broker},
		OutcomeTopic: outcomeTopic,
	}
	pub := kafkaadapter.NewPublisher(cfg, "run1234", discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	date := time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)
	ok := domain.Succeeded(domain.Band{
		Surface: domain.Surface{
			Provenance: domain.Provenance{
				Variable: "pm2_5",
				Date:     date,
				Method:   domain.MethodKriging,
				Points:   42,
			},
		},
		Description: "pm2_5 - 2024-04-26",
	}, 1500*time.Millisecond)
	skipped := domain.Skipped("no2", date, 3,
		&domain.InsufficientDataError{Points: 3, Min: 10})
	failed := domain.Failed("pm2_5", time.Time{}, 42,
		errors.New("stack write refused"), 10*time.Millisecond)

	require.NoError(t, pub.PublishOutcome(ctx, ok))
	require.NoError(t, pub.PublishOutcome(ctx, skipped))
	require.NoError(t, pub.PublishOutcome(ctx, failed))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{broker},
		Topic:   outcomeTopic,
		GroupID: fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
	})
	t.Cleanup(func() { _ = consumer.Close() })

	first := readOutcome(ctx, t, consumer)
	assert.Equal(t, "pm2_5|2024-04-26", first.Key)
	assert.Equal(t, string(domain.UnitSuccess), first.Headers["state"])
	assert.Equal(t, "pm2_5", first.Headers["variable"])
	assert.Equal(t, "run1234", first.Headers["run_id"])
	assert.Equal(t, "run1234", first.Payload["run_id"])
	assert.Equal(t, string(domain.UnitSuccess), first.Payload["state"])
	assert.NotEmpty(t, first.Payload["emitted_at"])

	second := readOutcome(ctx, t, consumer)
	assert.Equal(t, "no2|2024-04-26", second.Key)
	assert.Equal(t, string(domain.UnitInsufficientData), second.Headers["state"])
	assert.Contains(t, second.Payload["reason"], "insufficient data")

	third := readOutcome(ctx, t, consumer)
	assert.Equal(t, "pm2_5|all", third.Key)
	assert.Equal(t, string(domain.UnitFailed), third.Headers["state"])
	assert.Equal(t, "stack write refused", third.Payload["reason"])
}
