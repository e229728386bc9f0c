// Package kafka publishes harvested reports for the downstream archive
// ingest pipeline.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces dated reports to the report topic.
// It implements harvest.ReportPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured report topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishReports serializes and publishes a station's dated reports in a
// single WriteMessages call.
func (p *Publisher) PublishReports(ctx context.Context, kind domain.ReportKind, station string, reports []domain.DatedReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i, r := range reports {
		msg, err := serializeToMessage(kind, station, r)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// reportMessage is the wire form of one harvested report.
type reportMessage struct {
	Station    string `json:"station"`
	ReportType string `json:"report_type"`
	Date       string `json:"date"`
	Raw        string `json:"raw"`
}

// serializeToMessage marshals a dated report into a Kafka message keyed by
// station so one station's reports stay on one partition.
func serializeToMessage(kind domain.ReportKind, station string, r domain.DatedReport) (kafkago.Message, error) {
	data, err := json.Marshal(reportMessage{
		Station:    station,
		ReportType: kind.String(),
		Date:       r.Date.String(),
		Raw:        r.Raw,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(station),
		Value: data,
		Time:  r.Date.Time(),
		Headers: []kafkago.Header{
			{Key: "report_type", Value: []byte(kind.String())},
			{Key: "report_date", Value: []byte(r.Date.String())},
		},
	}, nil
}
