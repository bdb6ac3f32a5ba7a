package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/observability"
	"github.com/couchcryptid/storm-front-detection/internal/terrain"
	"gonum.org/v1/gonum/mat"
)

// ErrNoApplicableMethod is returned when a snapshot lacks the inputs of every
// configured method.
var ErrNoApplicableMethod = errors.New("no detection method has its inputs")

// TerrainFilter clears front cells above MaxElevation meters.
type TerrainFilter struct {
	Provider     terrain.Provider
	MaxElevation float64
}

// FrontTransformer implements Transformer by running the configured
// detectors on each snapshot, with an optional terrain filter.
type FrontTransformer struct {
	detectors []fronts.Detector
	terrain   *TerrainFilter
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewTransformer creates a FrontTransformer. Pass a nil filter to disable
// terrain filtering.
func NewTransformer(detectors []fronts.Detector, filter *TerrainFilter, logger *slog.Logger, metrics *observability.Metrics) *FrontTransformer {
	return &FrontTransformer{
		detectors: detectors,
		terrain:   filter,
		logger:    logger,
		metrics:   metrics,
	}
}

func (t *FrontTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.FrontEvent, error) {
	snap, err := domain.ParseSnapshot(raw)
	if err != nil {
		return domain.FrontEvent{}, err
	}
	fields, err := snap.Fields()
	if err != nil {
		return domain.FrontEvent{}, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}

	var (
		results   []domain.MethodResult
		skipped   []string
		elevation *mat.Dense
		fetched   bool
	)
	for _, d := range t.detectors {
		method := string(d.Method())
		if err := d.Requires(fields); err != nil {
			t.logger.Debug("method skipped", "snapshot_id", snap.ID, "method", method, "reason", err)
			t.metrics.MethodsSkipped.WithLabelValues(method).Inc()
			skipped = append(skipped, method)
			continue
		}

		start := time.Now()
		det, err := d.Detect(fields)
		if err != nil {
			return domain.FrontEvent{}, fmt.Errorf("snapshot %s: detect %s: %w", snap.ID, method, err)
		}
		t.metrics.DetectionDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

		masked := 0
		if t.terrain != nil {
			if !fetched {
				elevation, fetched = t.elevation(ctx, snap.ID, fields), true
			}
			if elevation != nil {
				if det, masked, err = terrain.FilterDetection(det, elevation, t.terrain.MaxElevation); err != nil {
					return domain.FrontEvent{}, fmt.Errorf("snapshot %s: terrain filter: %w", snap.ID, err)
				}
				t.metrics.TerrainMasked.Add(float64(masked))
			}
		}

		result := domain.Summarize(det, fields.Lat, fields.Lon)
		result.TerrainMasked = masked
		t.metrics.FrontCells.WithLabelValues(method, domain.KindWarm).Add(float64(result.WarmCells))
		t.metrics.FrontCells.WithLabelValues(method, domain.KindCold).Add(float64(result.ColdCells))
		results = append(results, result)
	}

	if len(results) == 0 {
		return domain.FrontEvent{}, fmt.Errorf("snapshot %s: %w: skipped %s", snap.ID, ErrNoApplicableMethod, strings.Join(skipped, ", "))
	}

	event := domain.NewFrontEvent(snap, results, skipped)
	t.logger.Debug("fronts detected", "snapshot_id", snap.ID, "event_id", event.ID, "methods", event.MethodNames())
	return event, nil
}

// elevation fetches the terrain grid for the snapshot. A lookup failure
// disables the filter for this snapshot rather than dropping it.
func (t *FrontTransformer) elevation(ctx context.Context, snapshotID string, f fronts.Fields) *mat.Dense {
	w, err := terrain.WindowOf(f.Lat, f.Lon)
	if err != nil {
		t.logger.Warn("terrain window unavailable", "snapshot_id", snapshotID, "error", err)
		return nil
	}
	grid, err := t.terrain.Provider.Elevation(ctx, w)
	if err != nil {
		t.logger.Warn("terrain lookup failed, skipping filter", "snapshot_id", snapshotID, "window", w.String(), "error", err)
		return nil
	}
	return grid
}
