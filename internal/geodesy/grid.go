// Package geodesy does calculus on latitude/longitude grids over a sphere:
// neighbor shifts with periodic longitude, great-circle spacing, and the
// gradient, divergence and smoothing operators built on them. Missing cells
// are NaN throughout.
package geodesy

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Missing marks a cell with no value. It is NaN, so ordinary arithmetic
// propagates it and every comparison against it is false.
var Missing = math.NaN()

var (
	// ErrShapeMismatch is returned when two grids that must align cell for
	// cell have different dimensions.
	ErrShapeMismatch = errors.New("grid shape mismatch")

	// ErrEmptyGrid is returned for grids with zero rows or columns.
	ErrEmptyGrid = errors.New("empty grid")
)

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// CheckShape returns ErrShapeMismatch unless every grid has the same
// dimensions as the first one.
func CheckShape(grids ...mat.Matrix) error {
	if len(grids) == 0 {
		return nil
	}
	r, c := grids[0].Dims()
	if r == 0 || c == 0 {
		return ErrEmptyGrid
	}
	for i, g := range grids[1:] {
		gr, gc := g.Dims()
		if gr != r || gc != c {
			return fmt.Errorf("%w: grid %d is %dx%d, want %dx%d", ErrShapeMismatch, i+1, gr, gc, r, c)
		}
	}
	return nil
}

// Full returns a rows x cols grid with every cell set to v.
func Full(rows, cols int, v float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(rows, cols, data)
}

// Meshgrid expands 1-D latitude and longitude axes into coordinate grids of
// shape (len(lats), len(lons)).
func Meshgrid(lats, lons []float64) (lat, lon *mat.Dense) {
	rows, cols := len(lats), len(lons)
	la := make([]float64, rows*cols)
	lo := make([]float64, rows*cols)
	for i := range lats {
		for j := range lons {
			la[i*cols+j] = lats[i]
			lo[i*cols+j] = lons[j]
		}
	}
	return mat.NewDense(rows, cols, la), mat.NewDense(rows, cols, lo)
}

// Compact returns a densely packed copy of m, so that callers can index the
// backing slice as i*cols+j.
func Compact(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m)
}

// Values returns the row-major cell values of m. For packed grids this is the
// backing slice itself; strided views are copied first.
func Values(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols {
		raw = mat.DenseCopyOf(m).RawMatrix()
	}
	return raw.Data[:raw.Rows*raw.Cols]
}

// Apply builds a new grid by evaluating fn cell by cell over grids of equal
// shape. fn receives the values of each input at the same cell.
func Apply(fn func(v ...float64) float64, grids ...*mat.Dense) (*mat.Dense, error) {
	ms := make([]mat.Matrix, len(grids))
	for i, g := range grids {
		ms[i] = g
	}
	if err := CheckShape(ms...); err != nil {
		return nil, err
	}
	r, c := grids[0].Dims()
	in := make([][]float64, len(grids))
	for i, g := range grids {
		in[i] = Values(g)
	}
	out := make([]float64, r*c)
	args := make([]float64, len(grids))
	for k := range out {
		for i := range in {
			args[i] = in[i][k]
		}
		out[k] = fn(args...)
	}
	return mat.NewDense(r, c, out), nil
}
