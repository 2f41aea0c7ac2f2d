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

	"github.com/couchcryptid/hazard-proximity-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-proximity-service/internal/alerting"
	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
	"github.com/couchcryptid/hazard-proximity-service/internal/observability"
)

const testAlertsTopic = "test-hazard-alerts"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-broker Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
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
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// publishedAlert holds a deserialized message read from the alerts topic.
type publishedAlert struct {
	Alert   domain.Alert
	Key     string
	Headers map[string]string
}

func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedAlert {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alerts topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var alert domain.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &alert), "unmarshal alert message")

	return publishedAlert{Alert: alert, Key: string(msg.Key), Headers: headers}
}

var testPolygon = geo.Ring{
	{Lon: 144.90, Lat: -37.79},
	{Lon: 144.92, Lat: -37.80},
	{Lon: 144.90, Lat: -37.81},
}

// TestAlertsReachKafka verifies the engine-to-sink path end to end: alerts
// emitted by the engine land on the alerts topic with the hazard id as the
// message key and the classification headers set.
func TestAlertsReachKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertsTopic)

	writer := kafka.NewWriter([]string{broker}, testAlertsTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	settle := 50 * time.Millisecond
	engine := alerting.New(discardLogger(), observability.NewMetricsForTesting(),
		alerting.WithSink(writer),
		alerting.WithSettleDelay(settle),
	)

	existing := domain.HazardEvent{
		ID:       "fire-existing",
		FeedType: domain.FeedTypeWarning,
		Title:    "Grassfire",
		Updated:  "2026-02-10T02:00:00Z",
		Polygon:  testPolygon,
	}
	require.Empty(t, engine.Evaluate(ctx, []domain.HazardEvent{existing}, nil), "seeding tick")
	time.Sleep(2 * settle)

	fresh := domain.HazardEvent{
		ID:           "fire-new",
		FeedType:     domain.FeedTypeWarning,
		Title:        "Grassfire - Diggers Rest",
		Action:       "Shelter In Place Now",
		LocationText: "Diggers Rest",
		Updated:      "2026-02-10T03:00:00Z",
		Polygon:      testPolygon,
	}
	emitted := engine.Evaluate(ctx, []domain.HazardEvent{existing, fresh}, nil)
	require.Len(t, emitted, 1)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertsTopic,
		GroupID:     fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readAlert(ctx, t, consumer)
	assert.Equal(t, "fire-new", got.Key)
	assert.Equal(t, emitted[0].ID, got.Alert.ID)
	assert.Equal(t, domain.AlertTypeNewWarning, got.Alert.Type)
	assert.Equal(t, domain.SeverityCritical, got.Alert.Severity)
	assert.Contains(t, got.Alert.Title, "Shelter In Place Now")

	assert.Equal(t, domain.AlertTypeNewWarning, got.Headers["alert_type"])
	assert.Equal(t, domain.SeverityCritical, got.Headers["severity"])
	_, err := time.Parse(time.RFC3339, got.Headers["emitted_at"])
	assert.NoError(t, err, "emitted_at should be valid RFC3339")
}

// TestAlertOrderingPerHazard verifies that successive alerts for the same
// hazard arrive in emission order, which the hazard-keyed messages and the
// single partition guarantee.
func TestAlertOrderingPerHazard(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertsTopic)

	writer := kafka.NewWriter([]string{broker}, testAlertsTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	settle := 50 * time.Millisecond
	engine := alerting.New(discardLogger(), observability.NewMetricsForTesting(),
		alerting.WithSink(writer),
		alerting.WithSettleDelay(settle),
	)

	h := domain.HazardEvent{
		ID:       "flood-1",
		FeedType: domain.FeedTypeWarning,
		Title:    "Flood Warning",
		Action:   "Leave Immediately",
		Updated:  "2026-02-10T02:00:00Z",
		Polygon:  testPolygon,
	}
	require.Empty(t, engine.Evaluate(ctx, []domain.HazardEvent{h}, nil))
	time.Sleep(2 * settle)

	// Two successive updates to the same hazard.
	h.Updated = "2026-02-10T03:00:00Z"
	first := engine.Evaluate(ctx, []domain.HazardEvent{h}, nil)
	require.Len(t, first, 1)

	h.Updated = "2026-02-10T04:00:00Z"
	second := engine.Evaluate(ctx, []domain.HazardEvent{h}, nil)
	require.Len(t, second, 1)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertsTopic,
		GroupID:     fmt.Sprintf("test-ordering-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	a := readAlert(ctx, t, consumer)
	b := readAlert(ctx, t, consumer)
	assert.Equal(t, first[0].ID, a.Alert.ID)
	assert.Equal(t, second[0].ID, b.Alert.ID)
	assert.Equal(t, "flood-1", a.Key)
	assert.Equal(t, "flood-1", b.Key)
}
