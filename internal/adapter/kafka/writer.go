package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/air-quality-unifier/internal/config"
	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// Writer publishes unified hours to a Kafka topic, one message per hour.
// It implements pipeline.Publisher.
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

func (w *Writer) Name() string { return "kafka" }

// Publish serializes every record and writes them in a single
// WriteMessages call. Records are keyed by hour so reruns land on the same
// partition.
func (w *Writer) Publish(ctx context.Context, run domain.Run) error {
	if len(run.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(run.Records))
	for i := range run.Records {
		msg, err := serializeToMessage(run.ID, run.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("hours published", "topic", w.writer.Topic, "messages", len(msgs), "run_id", run.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a UnifiedRecord into a Kafka message.
func serializeToMessage(runID string, r domain.UnifiedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize unified record: %w", err)
	}
	hour := r.Time.UTC().Format(time.RFC3339)
	return kafkago.Message{
		Key:   []byte(hour),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "no_data", Value: []byte(strconv.FormatBool(r.NoDataFlag))},
		},
	}, nil
}
