package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/config"
	"github.com/TravisH0301/weather-analysis/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// ReportWriter publishes run reports to a Kafka topic for the alerting
// consumer. It implements pipeline.Reporter.
type ReportWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewReportWriter creates a Kafka producer for the configured report topic.
func NewReportWriter(cfg *config.Config, logger *slog.Logger) *ReportWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &ReportWriter{writer: w, logger: logger}
}

// Publish writes one report keyed by its run id.
func (w *ReportWriter) Publish(ctx context.Context, report domain.RunReport) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run report %s: %w", report.RunID, err)
	}
	w.logger.Debug("run report published", "run_id", report.RunID, "topic", w.writer.Topic)
	return nil
}

func (w *ReportWriter) Close() error {
	return w.writer.Close()
}

// serializeReport marshals a RunReport into a Kafka message.
func serializeReport(report domain.RunReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(report.Status)},
			{Key: "finished_at", Value: []byte(report.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
