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

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/incident-map-etl/internal/adapter/kafka"
	"github.com/couchcryptid/incident-map-etl/internal/domain"
)

const testSummaryTopic = "test-location-summaries"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic via the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic")
}

// summaryMessage holds a deserialized message read from the summary topic.
type summaryMessage struct {
	Summary domain.LocationSummary
	Key     string
	Headers map[string]string
}

// readSummary reads a single message from the consumer and deserializes it.
func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) summaryMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from summary topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var summary domain.LocationSummary
	require.NoError(t, json.Unmarshal(msg.Value, &summary), "unmarshal summary message")

	return summaryMessage{
		Summary: summary,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// TestPublisherRoundTrip verifies the publisher produces one message per
// location, keyed by postal code, with category and generated_at headers.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	summaries := []domain.LocationSummary{
		{
			PostalCode: "75201",
			Coordinate: domain.Coordinate{Lat: 32.7812, Lon: -96.7969},
			Category:   domain.PropertyCrimeCategory,
			Total:      17,
			CountsByType: map[string]int{
				"BURGLARY OF MOTOR VEHICLE": 12,
				"THEFT OF PROPERTY":         5,
			},
		},
		{
			PostalCode: "75214",
			Coordinate: domain.Coordinate{Lat: 32.8249, Lon: -96.7480},
			Category:   domain.PropertyCrimeCategory,
			Total:      3,
			CountsByType: map[string]int{
				"ROBBERY OF INDIVIDUAL": 3,
			},
		},
	}

	publisher := kafka.NewPublisher([]string{broker}, testSummaryTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishSummaries(ctx, summaries))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]summaryMessage, len(summaries))
	for len(received) < len(summaries) {
		sm := readSummary(ctx, t, consumer)
		received[sm.Key] = sm
	}

	for _, want := range summaries {
		sm, ok := received[want.PostalCode]
		require.True(t, ok, "missing message for %s", want.PostalCode)

		assert.Equal(t, want, sm.Summary)
		assert.Equal(t, domain.PropertyCrimeCategory, sm.Headers["category"])

		_, err := time.Parse(time.RFC3339, sm.Headers["generated_at"])
		assert.NoError(t, err, "invalid generated_at format")
	}
}

// TestPublisherEmptyBatch verifies that an empty summary slice is a no-op and
// produces nothing on the topic.
func TestPublisherEmptyBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	publisher := kafka.NewPublisher([]string{broker}, testSummaryTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishSummaries(ctx, nil))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message on summary topic")
}
