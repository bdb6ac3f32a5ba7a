package geodesy

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gradient computes the geodesic gradient of field over the lat/lon grid on a
// sphere of EarthRadius. See Mesh.Gradient for the difference scheme.
func Gradient(lat, lon, field *mat.Dense) (dx, dy *mat.Dense, err error) {
	m, err := NewMesh(lat, lon, EarthRadius)
	if err != nil {
		return nil, nil, err
	}
	return m.Gradient(field)
}

// Divergence computes ∂vx/∂x + ∂vy/∂y over the lat/lon grid.
func Divergence(lat, lon, vx, vy *mat.Dense) (*mat.Dense, error) {
	m, err := NewMesh(lat, lon, EarthRadius)
	if err != nil {
		return nil, err
	}
	return m.Divergence(vx, vy)
}

// Magnitude returns the cell-wise Euclidean norm of a vector field.
func Magnitude(gx, gy *mat.Dense) (*mat.Dense, error) {
	return Apply(func(v ...float64) float64 {
		return math.Hypot(v[0], v[1])
	}, gx, gy)
}

// Smooth applies a five-point weighted mean iterations times. Each pass reads
// only the previous pass. The center is weighted by centerWeight and each of
// the four neighbors by 1; missing neighbors are left out of both the sum and
// the normalizing weight. Missing centers stay missing, and a cell whose valid
// weight is zero keeps its value.
//
// Rows do not wrap; columns do.
func Smooth(field mat.Matrix, iterations int, centerWeight float64) *mat.Dense {
	out := Compact(field)
	rows, cols := out.Dims()
	for it := 0; it < iterations; it++ {
		nb := Shift(out, 1)
		c := Values(out)
		up, down := Values(nb.Up), Values(nb.Down)
		left, right := Values(nb.Left), Values(nb.Right)

		next := make([]float64, len(c))
		for k, v := range c {
			if IsMissing(v) {
				next[k] = Missing
				continue
			}
			sum, weight := v*centerWeight, centerWeight
			for _, n := range [4]float64{up[k], down[k], left[k], right[k]} {
				if !IsMissing(n) {
					sum += n
					weight++
				}
			}
			if weight == 0 {
				next[k] = v
				continue
			}
			next[k] = sum / weight
		}
		out = mat.NewDense(rows, cols, next)
	}
	return out
}
