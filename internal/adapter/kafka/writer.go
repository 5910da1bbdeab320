package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-records/internal/config"
	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces observation reports to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
// Reports are keyed by station and time, so the hash balancer keeps every
// station's reports on one partition in order.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes a batch of observation reports in a
// single WriteMessages call. Every message of the batch carries the same
// batch_id header.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.ObservationReport) error {
	if len(reports) == 0 {
		return nil
	}
	batchID := uuid.Must(uuid.NewV7()).String()
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i], batchID)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("reports written", "count", len(msgs), "topic", w.writer.Topic, "batch_id", batchID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an ObservationReport into a Kafka message.
func serializeToMessage(report domain.ObservationReport, batchID string) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(domain.ReportKey(report)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(strconv.Itoa(report.StationID))},
			{Key: "local_day", Value: []byte(report.LocalDay)},
			{Key: "synthesized", Value: []byte(strconv.Itoa(report.Synthesized))},
			{Key: "processed_at", Value: []byte(report.ProcessedAt.Format(time.RFC3339))},
			{Key: "batch_id", Value: []byte(batchID)},
		},
	}, nil
}
