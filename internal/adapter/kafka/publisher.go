// Package kafka publishes unit outcome events so external monitors can
// follow a run live. Publishing is optional; the pipeline works identically
// with a nil publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/geostack-pipeline/internal/config"
	"github.com/couchcryptid/geostack-pipeline/internal/domain"
)

// Publisher produces outcome events to a Kafka topic.
// It implements pipeline.OutcomePublisher.
type Publisher struct {
	writer *kafkago.Writer
	runID  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured outcome topic.
func NewPublisher(cfg config.KafkaConfig, runID string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.OutcomeTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, runID: runID, logger: logger}
}

// PublishOutcome serializes one terminal unit outcome and writes it to the
// outcome topic. The message key is "variable|date" so a compacted topic
// retains the latest state per unit.
func (p *Publisher) PublishOutcome(ctx context.Context, o domain.UnitOutcome) error {
	msg, err := serializeOutcome(p.runID, o)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// outcomeEvent is the wire form of a unit outcome.
type outcomeEvent struct {
	RunID string `json:"run_id"`
	domain.UnitOutcome
	EmittedAt time.Time `json:"emitted_at"`
}

// serializeOutcome marshals a unit outcome into a Kafka message.
func serializeOutcome(runID string, o domain.UnitOutcome) (kafkago.Message, error) {
	evt := outcomeEvent{RunID: runID, UnitOutcome: o, EmittedAt: domain.Now()}
	data, err := json.Marshal(evt)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outcome event: %w", err)
	}

	key := o.Variable + "|" + "all"
	if !o.Date.IsZero() {
		key = o.Variable + "|" + o.Date.Format("2006-01-02")
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "state", Value: []byte(o.State)},
			{Key: "variable", Value: []byte(o.Variable)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
