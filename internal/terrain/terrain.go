// Package terrain supplies surface elevation for a detection grid and clears
// front cells over high ground, where 850 hPa fields sit near or below the
// surface and thermal gradients are unreliable.
package terrain

import (
	"context"
	"fmt"

	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxElevation is the elevation in meters above which front cells are
// cleared.
const DefaultMaxElevation = 500.0

// Window identifies a detection grid by its corner coordinates and shape.
// First is the (0, 0) cell and Last the (Rows-1, Cols-1) cell.
type Window struct {
	Rows, Cols         int
	FirstLat, FirstLon float64
	LastLat, LastLon   float64
}

// WindowOf returns the window covered by a coordinate mesh.
func WindowOf(lat, lon mat.Matrix) (Window, error) {
	if err := geodesy.CheckShape(lat, lon); err != nil {
		return Window{}, err
	}
	r, c := lat.Dims()
	return Window{
		Rows:     r,
		Cols:     c,
		FirstLat: lat.At(0, 0),
		FirstLon: lon.At(0, 0),
		LastLat:  lat.At(r-1, c-1),
		LastLon:  lon.At(r-1, c-1),
	}, nil
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d[%.4f,%.4f:%.4f,%.4f]", w.Rows, w.Cols, w.FirstLat, w.FirstLon, w.LastLat, w.LastLon)
}

// Provider returns surface elevation in meters on the window's grid.
type Provider interface {
	Elevation(ctx context.Context, w Window) (*mat.Dense, error)
}

// Filter clears flagged cells whose elevation exceeds maxElevation and returns
// the filtered mask and the number of cells cleared. Cells with missing
// elevation are left as they are. The input mask is not modified.
func Filter(mask, elevation mat.Matrix, maxElevation float64) (*mat.Dense, int, error) {
	if err := geodesy.CheckShape(mask, elevation); err != nil {
		return nil, 0, err
	}
	out := mat.DenseCopyOf(mask)
	cleared := 0
	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if out.At(i, j) != 1 {
				continue
			}
			if h := elevation.At(i, j); h > maxElevation {
				out.Set(i, j, 0)
				cleared++
			}
		}
	}
	return out, cleared, nil
}

// FilterDetection applies Filter to the warm and cold masks of det and
// returns the total number of cells cleared.
func FilterDetection(det fronts.Detection, elevation mat.Matrix, maxElevation float64) (fronts.Detection, int, error) {
	total := 0
	for _, mask := range []**mat.Dense{&det.Warm, &det.Cold} {
		if *mask == nil {
			continue
		}
		filtered, n, err := Filter(*mask, elevation, maxElevation)
		if err != nil {
			return det, 0, err
		}
		*mask = filtered
		total += n
	}
	return det, total, nil
}
