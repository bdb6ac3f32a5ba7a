package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/observability"
	"github.com/couchcryptid/storm-front-detection/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.FrontEvent, error) {
	if m.err != nil {
		return domain.FrontEvent{}, m.err
	}
	return domain.FrontEvent{ID: string(raw.Key), SnapshotID: string(raw.Key)}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.FrontEvent
	failures int
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.FrontEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) events() []domain.FrontEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.FrontEvent(nil), m.loaded...)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func rawEvent(key string, commit func(context.Context) error) domain.RawEvent {
	return domain.RawEvent{
		Key:    []byte(key),
		Value:  []byte(`{}`),
		Topic:  "gridded-fields",
		Commit: commit,
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{rawEvent("snap-1", nil), rawEvent("snap-2", nil)},
	}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.events()
	require.Len(t, loaded, 2)
	assert.Equal(t, "snap-1", loaded[0].SnapshotID)
	assert.Equal(t, "snap-2", loaded[1].SnapshotID)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.events())
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var commits atomic.Int32
	commit := func(context.Context) error {
		commits.Add(1)
		return nil
	}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent("bad", commit)}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad snapshot")}, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.events())
	assert.Equal(t, int32(1), commits.Load(), "poison snapshots are committed")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var loadedAtCommit int
	ldr := &mockLoader{}
	commit := func(context.Context) error {
		loadedAtCommit = len(ldr.events())
		return nil
	}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent("snap-1", commit)}}}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, 1, loadedAtCommit)
}

func TestPipeline_Run_CommitErrorIsNotFatal(t *testing.T) {
	commit := func(context.Context) error { return errors.New("rebalance in progress") }
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{rawEvent("snap-1", commit)},
		{rawEvent("snap-2", nil)},
	}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Len(t, ldr.events(), 2)
}

func TestPipeline_Run_LoadErrorRetries(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{rawEvent("snap-1", nil)},
		{rawEvent("snap-1", nil)},
	}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, time.Second)

	loaded := ldr.events()
	require.Len(t, loaded, 1, "redelivered snapshot is loaded after the backoff")
	assert.Equal(t, "snap-1", loaded[0].SnapshotID)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorStopsOnCancel(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker unavailable")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(done)
		assert.NoError(t, p.Run(ctx))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop while backing off")
	}
	assert.Empty(t, ldr.events())
}
