package domain

import (
	"strings"
	"time"

	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// idNamespace scopes front event IDs to this service.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/couchcryptid/storm-front-detection"))

// Summarize turns a detection into a MethodResult, listing every flagged cell
// with its coordinates. Warm cells come before cold ones, each in row-major
// order.
func Summarize(det fronts.Detection, lat, lon mat.Matrix) MethodResult {
	r := MethodResult{Method: string(det.Method)}
	if det.Warm != nil {
		r.Warm = ValuesOf(det.Warm)
		r.Cells = append(r.Cells, flaggedCells(det.Warm, lat, lon, KindWarm)...)
		r.WarmCells = len(r.Cells)
	}
	if det.Cold != nil {
		r.Cold = ValuesOf(det.Cold)
		cold := flaggedCells(det.Cold, lat, lon, KindCold)
		r.Cells = append(r.Cells, cold...)
		r.ColdCells = len(cold)
	}
	if r.Cells == nil {
		r.Cells = []FrontCell{}
	}
	return r
}

func flaggedCells(mask, lat, lon mat.Matrix, kind string) []FrontCell {
	var out []FrontCell
	rows, cols := mask.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if mask.At(i, j) != 1 {
				continue
			}
			out = append(out, FrontCell{Row: i, Col: j, Lat: lat.At(i, j), Lon: lon.At(i, j), Kind: kind})
		}
	}
	return out
}

// NewFrontEvent assembles the event for a snapshot. The ID is a name-based
// UUID of the snapshot ID, valid time and method list, so replaying a
// snapshot through the same methods yields the same ID.
func NewFrontEvent(s Snapshot, results []MethodResult, skipped []string) FrontEvent {
	e := FrontEvent{
		SnapshotID:  s.ID,
		ValidTime:   s.ValidTime,
		Rows:        s.Rows,
		Cols:        s.Cols,
		Results:     results,
		Skipped:     skipped,
		ProcessedAt: clock.Now(),
	}
	e.ID = generateID(s.ID, s.ValidTime, e.MethodNames())
	return e
}

func generateID(snapshotID string, validTime time.Time, methods []string) string {
	name := snapshotID + "|" + validTime.UTC().Format(time.RFC3339) + "|" + strings.Join(methods, ",")
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
