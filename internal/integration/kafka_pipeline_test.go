//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/storm-front-detection/internal/adapter/kafka"
	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/observability"
	"github.com/couchcryptid/storm-front-detection/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKafkaReaderWriter round-trips one snapshot through the Kafka adapters
// and the transformer.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(ctx, t, broker, testSourceTopic, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payload := snapshotPayload(t, "merra2-2024042600", baseTime, true)
	require.NoError(t, newProducer(t, broker).WriteMessages(ctx, kafkago.Message{
		Key:   []byte("merra2-2024042600"),
		Value: payload,
		Time:  baseTime,
	}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for len(batch) == 0 {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for snapshot from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("merra2-2024042600"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	event, err := newTransformer().Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.FrontEvent{event}))

	msg := readSink(ctx, t, newSinkConsumer(t, broker))
	assert.Equal(t, event.ID, msg.Key)
	assert.Equal(t, "merra2-2024042600", msg.Headers["snapshot_id"])
	assert.Equal(t, "thermal,wind_shift", msg.Headers["methods"])
	_, err = time.Parse(time.RFC3339, msg.Headers["processed_at"])
	require.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, event.ID, msg.Event.ID)
	require.Len(t, msg.Event.Results, 2)
	assert.Equal(t, 63, msg.Event.Results[1].ColdCells)
}

// TestPipelineEndToEnd runs the full pipeline against a real broker.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(ctx, t, broker, testSourceTopic, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	const snapshots = 4
	msgs := make([]kafkago.Message, 0, snapshots)
	for i := 0; i < snapshots; i++ {
		validTime := baseTime.Add(time.Duration(i) * 3 * time.Hour)
		id := "merra2-" + validTime.Format("2006010215")
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(id),
			Value: snapshotPayload(t, id, validTime, i%2 == 0),
			Time:  validTime,
		})
	}
	require.NoError(t, newProducer(t, broker).WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(), writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	received := make(map[string]sinkMessage, snapshots)
	for len(received) < snapshots {
		msg := readSink(ctx, t, consumer)
		received[msg.Event.SnapshotID] = msg
	}

	pipelineCancel()
	require.NoError(t, <-errCh)
	require.NoError(t, p.CheckReadiness(ctx))

	for i := 0; i < snapshots; i++ {
		validTime := baseTime.Add(time.Duration(i) * 3 * time.Hour)
		msg, ok := received["merra2-"+validTime.Format("2006010215")]
		require.True(t, ok, "snapshot %d missing from sink", i)
		assert.True(t, msg.Event.ValidTime.Equal(validTime))

		if i%2 == 0 {
			assert.Equal(t, "thermal,wind_shift", msg.Headers["methods"])
			assert.Empty(t, msg.Event.Skipped)
		} else {
			assert.Equal(t, "thermal", msg.Headers["methods"])
			assert.Equal(t, []string{"wind_shift"}, msg.Event.Skipped)
		}
		thermal := msg.Event.Results[0]
		assert.Equal(t, "thermal", thermal.Method)
		assert.Positive(t, thermal.WarmCells+thermal.ColdCells)
	}
}

// TestPipelineTransformError verifies that poison messages are skipped and the
// pipeline keeps processing.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(ctx, t, broker, testSourceTopic, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	// Coordinates only: no configured method has its inputs.
	bare := domain.Snapshot{ID: "bare", ValidTime: baseTime, Rows: 1, Cols: 2, Lat: domain.Values{40, 40}, Lon: domain.Values{0, 1}}
	barePayload, err := json.Marshal(bare)
	require.NoError(t, err)

	require.NoError(t, newProducer(t, broker).WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{"), Time: baseTime},
		kafkago.Message{Key: []byte("bare"), Value: barePayload, Time: baseTime},
		kafkago.Message{Key: []byte("good"), Value: snapshotPayload(t, "good", baseTime, true), Time: baseTime},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(), writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	msg := readSink(ctx, t, consumer)
	assert.Equal(t, "good", msg.Event.SnapshotID)

	// Only the valid snapshot should reach the sink.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.TransformErrors), 0)
}
