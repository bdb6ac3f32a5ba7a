package geodesy

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Neighbors holds a grid shifted by a fixed offset in each of the four
// index directions. For a source grid f and offset k:
//
//	Up[i][j]    = f[i-k][j]          (first k rows missing)
//	Down[i][j]  = f[i+k][j]          (last k rows missing)
//	Left[i][j]  = f[i][(j+k) % cols] (columns wrap)
//	Right[i][j] = f[i][(j-k) % cols] (columns wrap)
//
// Rows never wrap; columns always do because longitude is periodic.
type Neighbors struct {
	Up, Down, Left, Right *mat.Dense
}

// Shift returns the four neighbor grids of f at the given offset.
func Shift(f mat.Matrix, offset int) Neighbors {
	src := Values(Compact(f))
	rows, cols := f.Dims()

	up := make([]float64, rows*cols)
	down := make([]float64, rows*cols)
	left := make([]float64, rows*cols)
	right := make([]float64, rows*cols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			k := i*cols + j

			if i-offset >= 0 && i-offset < rows {
				up[k] = src[(i-offset)*cols+j]
			} else {
				up[k] = Missing
			}
			if i+offset >= 0 && i+offset < rows {
				down[k] = src[(i+offset)*cols+j]
			} else {
				down[k] = Missing
			}

			left[k] = src[i*cols+wrap(j+offset, cols)]
			right[k] = src[i*cols+wrap(j-offset, cols)]
		}
	}

	return Neighbors{
		Up:    mat.NewDense(rows, cols, up),
		Down:  mat.NewDense(rows, cols, down),
		Left:  mat.NewDense(rows, cols, left),
		Right: mat.NewDense(rows, cols, right),
	}
}

// ShiftLongitude shifts a longitude grid like Shift and then removes the
// date-line jump from the wrapped columns: cells of Left that came around
// from the first columns get +360 and cells of Right that came around from
// the last columns get -360. Distances computed from the result are then
// continuous across the seam.
func ShiftLongitude(lon mat.Matrix, offset int) Neighbors {
	n := Shift(lon, offset)
	rows, cols := lon.Dims()
	if offset <= 0 {
		return n
	}
	left, right := Values(n.Left), Values(n.Right)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j+offset >= cols {
				left[i*cols+j] += 360
			}
			if j-offset < 0 {
				right[i*cols+j] -= 360
			}
		}
	}
	return n
}

// UnwrapLongitude returns lon with the date-line jumps removed along each
// row: every step between adjacent valid columns is reduced to [-180, 180),
// so 170, 178, -180, -178 becomes 170, 178, 180, 182. The first valid column
// of each row keeps its value and missing cells stay missing. Continuous
// axes come back unchanged.
func UnwrapLongitude(lon mat.Matrix) *mat.Dense {
	out := Compact(lon)
	rows, cols := out.Dims()
	v := Values(out)
	for i := 0; i < rows; i++ {
		row := v[i*cols : (i+1)*cols]
		prevRaw, prev := Missing, Missing
		for j, x := range row {
			if IsMissing(x) {
				continue
			}
			if !IsMissing(prevRaw) {
				row[j] = prev + longitudeStep(x-prevRaw)
			}
			prevRaw, prev = x, row[j]
		}
	}
	return out
}

// longitudeStep reduces a longitude difference to [-180, 180).
func longitudeStep(d float64) float64 {
	return math.Mod(math.Mod(d+180, 360)+360, 360) - 180
}

func wrap(j, n int) int {
	j %= n
	if j < 0 {
		j += n
	}
	return j
}
