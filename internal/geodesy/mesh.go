package geodesy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mesh is a latitude/longitude grid on a sphere together with the distances
// from every cell to its four index neighbors. Building a Mesh once lets the
// derivative operators reuse the spacings across fields.
//
// Rows index latitude and columns index longitude. Columns are periodic: the
// first and last column are treated as neighbors, with the date-line jump
// removed before measuring. Lon holds the longitudes unwrapped along each row
// (see UnwrapLongitude), so a grid labelled 170..180, -178.. is measured as
// 170..180, 182..
type Mesh struct {
	Lat, Lon *mat.Dense
	Radius   float64

	rows, cols int

	// Distance from each cell to the neighbor in that direction.
	toUp, toDown, toLeft, toRight []float64
	// Distance between the two opposite neighbors of each cell.
	spanY, spanX []float64
}

// NewMesh binds lat and lon (degrees) to a sphere of the given radius in
// meters. A non-positive radius selects EarthRadius.
func NewMesh(lat, lon *mat.Dense, radius float64) (*Mesh, error) {
	if err := CheckShape(lat, lon); err != nil {
		return nil, fmt.Errorf("mesh coordinates: %w", err)
	}
	if radius <= 0 {
		radius = EarthRadius
	}
	rows, cols := lat.Dims()
	m := &Mesh{
		Lat:    Compact(lat),
		Lon:    UnwrapLongitude(lon),
		Radius: radius,
		rows:   rows,
		cols:   cols,
	}

	latN := Shift(m.Lat, 1)
	lonN := ShiftLongitude(m.Lon, 1)

	la, lo := Values(m.Lat), Values(m.Lon)
	upLat, upLon := Values(latN.Up), Values(lonN.Up)
	downLat, downLon := Values(latN.Down), Values(lonN.Down)
	leftLat, leftLon := Values(latN.Left), Values(lonN.Left)
	rightLat, rightLon := Values(latN.Right), Values(lonN.Right)

	n := rows * cols
	m.toUp = make([]float64, n)
	m.toDown = make([]float64, n)
	m.toLeft = make([]float64, n)
	m.toRight = make([]float64, n)
	m.spanY = make([]float64, n)
	m.spanX = make([]float64, n)
	for k := 0; k < n; k++ {
		m.toUp[k] = Distance(upLat[k], upLon[k], la[k], lo[k], radius)
		m.toDown[k] = Distance(la[k], lo[k], downLat[k], downLon[k], radius)
		m.toRight[k] = Distance(rightLat[k], rightLon[k], la[k], lo[k], radius)
		m.toLeft[k] = Distance(la[k], lo[k], leftLat[k], leftLon[k], radius)
		m.spanY[k] = Distance(upLat[k], upLon[k], downLat[k], downLon[k], radius)
		m.spanX[k] = Distance(leftLat[k], leftLon[k], rightLat[k], rightLon[k], radius)
	}
	return m, nil
}

// Dims returns the number of rows and columns of the mesh.
func (m *Mesh) Dims() (rows, cols int) { return m.rows, m.cols }

// Orientation reports how the index directions relate to the compass: east is
// +1 when longitude increases with the column index and north is +1 when
// latitude increases with the row index; otherwise -1. Multiplying dx by east
// and dy by north turns index-frame derivatives into eastward and northward
// ones. Axes with a single cell report +1.
func (m *Mesh) Orientation() (east, north float64) {
	east, north = 1, 1
	if m.cols > 1 {
		if longitudeStep(m.Lon.At(0, 1)-m.Lon.At(0, 0)) < 0 {
			east = -1
		}
	}
	if m.rows > 1 && m.Lat.At(1, 0) < m.Lat.At(0, 0) {
		north = -1
	}
	return east, north
}

// Spans returns, per cell, the distance between its left and right neighbors
// and between its up and down neighbors. Cells on the first and last row have
// a missing vertical span.
func (m *Mesh) Spans() (x, y *mat.Dense) {
	sx := make([]float64, len(m.spanX))
	sy := make([]float64, len(m.spanY))
	copy(sx, m.spanX)
	copy(sy, m.spanY)
	return mat.NewDense(m.rows, m.cols, sx), mat.NewDense(m.rows, m.cols, sy)
}

// Gradient returns the partial derivatives of field per meter along the
// column (dx) and row (dy) directions. dx points toward increasing column
// index and dy toward increasing row index.
//
// Interior cells use the distance-weighted centered difference
// (f[next]-f[prev]) / (dist(prev,c)+dist(c,next)). When exactly one side is
// unavailable, because the cell is on the first or last row or the neighbor is
// missing, the one-sided difference toward the other side is used. A missing
// center yields a missing derivative.
func (m *Mesh) Gradient(field mat.Matrix) (dx, dy *mat.Dense, err error) {
	if err := CheckShape(m.Lat, field); err != nil {
		return nil, nil, fmt.Errorf("gradient: %w", err)
	}
	f := Compact(field)
	nb := Shift(f, 1)
	c := Values(f)
	up, down := Values(nb.Up), Values(nb.Down)
	left, right := Values(nb.Left), Values(nb.Right)

	gx := make([]float64, len(c))
	gy := make([]float64, len(c))
	for k := range c {
		gx[k] = derivative(c[k], right[k], left[k], m.toRight[k], m.toLeft[k])
		gy[k] = derivative(c[k], up[k], down[k], m.toUp[k], m.toDown[k])
	}
	return mat.NewDense(m.rows, m.cols, gx), mat.NewDense(m.rows, m.cols, gy), nil
}

// Divergence returns ∂vx/∂x + ∂vy/∂y.
func (m *Mesh) Divergence(vx, vy mat.Matrix) (*mat.Dense, error) {
	dxx, _, err := m.Gradient(vx)
	if err != nil {
		return nil, fmt.Errorf("divergence x: %w", err)
	}
	_, dyy, err := m.Gradient(vy)
	if err != nil {
		return nil, fmt.Errorf("divergence y: %w", err)
	}
	var out mat.Dense
	out.Add(dxx, dyy)
	return &out, nil
}

func derivative(c, prev, next, dPrev, dNext float64) float64 {
	if IsMissing(c) {
		return Missing
	}
	back := !IsMissing(prev) && !IsMissing(dPrev)
	fwd := !IsMissing(next) && !IsMissing(dNext)
	switch {
	case back && fwd:
		return (next - prev) / (dPrev + dNext)
	case fwd:
		return (next - c) / dNext
	case back:
		return (c - prev) / dPrev
	default:
		return Missing
	}
}
