//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/storm-front-detection/internal/adapter/kafka"
	"github.com/couchcryptid/storm-front-detection/internal/config"
	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/observability"
	"github.com/couchcryptid/storm-front-detection/internal/pipeline"
	"github.com/couchcryptid/storm-front-detection/internal/synth"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testSourceTopic = "test-gridded-fields"
	testSinkTopic   = "test-detected-fronts"
	kafkaImage      = "confluentinc/confluent-local:7.5.0"
)

var baseTime = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the test and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("front-detection-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	require.NoError(t, kafka.WaitForBrokers(ctx, brokers, 30*time.Second, discardLogger()))
	return brokers[0]
}

func createTopic(ctx context.Context, t *testing.T, broker string, topics ...string) {
	t.Helper()
	require.NoError(t, kafka.EnsureTopics(ctx, broker, 1, topics...))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

// snapshotPayload encodes the synthetic frontal zone, cut to 60 degrees of
// longitude around the wind shift passage, as a source message.
func snapshotPayload(t *testing.T, id string, validTime time.Time, withPrior bool) []byte {
	t.Helper()
	o := synth.DefaultOptions()
	o.Lons = synth.Axis(-30, 2.5, 25)
	s := synth.FrontalZone(o)
	f := fronts.Fields{Lat: s.Lat, Lon: s.Lon, Theta: s.Theta, H850: s.H850, U: s.U, V: s.V}
	if withPrior {
		f.UPrior, f.VPrior = s.UPrior, s.VPrior
	}
	payload, err := json.Marshal(domain.NewSnapshot(id, validTime, f))
	require.NoError(t, err)
	return payload
}

func newProducer(t *testing.T, broker string) *kafkago.Writer {
	t.Helper()
	w := &kafkago.Writer{
		Addr:       kafkago.TCP(broker),
		Topic:      testSourceTopic,
		BatchBytes: 64 << 20,
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func newSinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
		MaxBytes:    64 << 20,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func newTransformer() *pipeline.FrontTransformer {
	detectors, _ := fronts.DefaultRegistry(fronts.DefaultThermalParams(), fronts.DefaultWindShiftParams()).
		Select([]fronts.Method{fronts.MethodThermal, fronts.MethodWindShift})
	return pipeline.NewTransformer(detectors, nil, discardLogger(), observability.NewMetricsForTesting())
}

// sinkMessage holds a deserialized message read from the sink topic.
type sinkMessage struct {
	Event   domain.FrontEvent
	Key     string
	Headers map[string]string
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.FrontEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal sink message")

	return sinkMessage{Event: event, Key: string(msg.Key), Headers: headers}
}
