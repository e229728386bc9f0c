//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/aviation-history/internal/adapter/kafka"
	"github.com/couchcryptid/aviation-history/internal/config"
	"github.com/couchcryptid/aviation-history/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testReportTopic = "test-raw-reports"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
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

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPublisherRoundTrip verifies the harvest publisher against real Kafka:
// published reports come back with the station key, the report headers, and
// an intact JSON payload.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaReportTopic: testReportTopic,
	}

	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	date := domain.Date{Year: 2023, Month: time.January, Day: 5}
	reports := []domain.DatedReport{
		{Date: date, Raw: "KJFK 050051Z 28009KT 10SM FEW055"},
		{Date: date, Raw: "KJFK 051851Z 30012KT 10SM CLR"},
	}
	require.NoError(t, publisher.PublishReports(ctx, domain.KindMETAR, "KJFK", reports))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReportTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range reports {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read message %d from report topic", i)

		assert.Equal(t, []byte("KJFK"), msg.Key)
		assert.Equal(t, date.Time(), msg.Time.UTC())

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "metar", headers["report_type"])
		assert.Equal(t, "2023-01-05", headers["report_date"])

		var payload struct {
			Station    string `json:"station"`
			ReportType string `json:"report_type"`
			Date       string `json:"date"`
			Raw        string `json:"raw"`
		}
		require.NoError(t, json.Unmarshal(msg.Value, &payload))
		assert.Equal(t, "KJFK", payload.Station)
		assert.Equal(t, "metar", payload.ReportType)
		assert.Equal(t, "2023-01-05", payload.Date)
		assert.Equal(t, want.Raw, payload.Raw)
	}
}
