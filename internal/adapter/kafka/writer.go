package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/covid-data-tracker/internal/config"
	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

// Writer publishes cleaned observations to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Write publishes every observation in a single WriteMessages call. Messages are
// keyed by iso_code|date so a location's rows land on one partition in order.
func (w *Writer) Write(ctx context.Context, batch domain.Batch) error {
	if len(batch.Observations) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Observations))
	for i := range batch.Observations {
		msg, err := serializeToMessage(batch.Observations[i], batch.RunID, batch.ProcessedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish observations: %w", err)
	}
	w.logger.Info("observations published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message.
func serializeToMessage(o domain.Observation, runID string, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(o.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location", Value: []byte(o.Location)},
			{Key: "run_id", Value: []byte(runID)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
