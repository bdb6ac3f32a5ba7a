package fronts

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-front-detection/internal/contour"
	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
)

// ThermalResult holds the output of the thermal front parameter method.
type ThermalResult struct {
	// Warm and Cold are front masks: 1 on a front, 0 elsewhere, missing
	// where the cell's own inputs are missing.
	Warm, Cold *mat.Dense
	// TotalDivergence is the front locator whose zero contour marks the
	// front lines.
	TotalDivergence *mat.Dense
}

// Thermal locates warm and cold fronts from potential temperature theta and
// the 850 hPa geopotential height h850 on the lat/lon grid.
//
// Candidate front lines are the zero contour of the divergence of ∇|∇θ|
// resolved on its mean local axis, kept where both masking parameters exceed
// their thresholds. Each candidate cell is then classed by the sign of the
// geostrophic thermal advection: warm where positive, cold where negative.
func Thermal(lat, lon, theta, h850 *mat.Dense, p ThermalParams) (ThermalResult, error) {
	if err := geodesy.CheckShape(lat, lon, theta, h850); err != nil {
		return ThermalResult{}, fmt.Errorf("thermal: %w", err)
	}
	mesh, err := geodesy.NewMesh(lat, lon, p.Radius)
	if err != nil {
		return ThermalResult{}, fmt.Errorf("thermal: %w", err)
	}

	gx, gy, err := mesh.Gradient(theta)
	if err != nil {
		return ThermalResult{}, fmt.Errorf("thermal gradient: %w", err)
	}
	gNorm, err := geodesy.Magnitude(gx, gy)
	if err != nil {
		return ThermalResult{}, err
	}
	mux, muy, err := mesh.Gradient(gNorm)
	if err != nil {
		return ThermalResult{}, fmt.Errorf("thermal gradient magnitude: %w", err)
	}
	absMu, err := geodesy.Magnitude(mux, muy)
	if err != nil {
		return ThermalResult{}, err
	}

	eligible, err := maskingParameters(gx, gy, gNorm, mux, muy, absMu, p)
	if err != nil {
		return ThermalResult{}, err
	}

	beta := betaMean(mux, muy, absMu)
	totDiv := totalDivergence(mesh, mux, muy, beta)

	zc, err := contour.ZeroContourMask(mesh.Lat, mesh.Lon, totDiv)
	if err != nil {
		return ThermalResult{}, fmt.Errorf("thermal zero contour: %w", err)
	}

	gta, err := geostrophicAdvection(mesh, h850, gx, gy, p)
	if err != nil {
		return ThermalResult{}, err
	}

	rows, cols := mesh.Dims()
	warm := mat.NewDense(rows, cols, nil)
	cold := mat.NewDense(rows, cols, nil)
	valid := inputsPresent(lat, lon, theta, h850)
	z, ok, adv := geodesy.Values(zc), geodesy.Values(eligible), geodesy.Values(gta)
	w, c := geodesy.Values(warm), geodesy.Values(cold)
	for k := range z {
		if !valid[k] {
			w[k], c[k] = geodesy.Missing, geodesy.Missing
			continue
		}
		if z[k] != 1 || ok[k] != 1 {
			continue
		}
		if adv[k] > 0 {
			w[k] = 1
		}
		if adv[k] < 0 {
			c[k] = 1
		}
	}

	return ThermalResult{Warm: warm, Cold: cold, TotalDivergence: totDiv}, nil
}

// maskingParameters returns 1 where m1 > K1 and m2 > K2, with
//
//	m1 = -S(∇|∇θ| · ∇θ) / |∇θ|
//	m2 = |∇θ| + Length/√2 · |∇|∇θ||
//
// and S the five-point smoother.
func maskingParameters(gx, gy, gNorm, mux, muy, absMu *mat.Dense, p ThermalParams) (*mat.Dense, error) {
	product, err := geodesy.Apply(func(v ...float64) float64 {
		return v[0]*v[1] + v[2]*v[3]
	}, mux, gx, muy, gy)
	if err != nil {
		return nil, err
	}
	smoothed := geodesy.Smooth(product, p.SmoothIterations, p.SmoothCenterWeight)

	scale := p.Length / math.Sqrt2
	return geodesy.Apply(func(v ...float64) float64 {
		m1 := -v[0] / v[1]
		m2 := v[1] + scale*v[2]
		if m1 > p.K1 && m2 > p.K2 {
			return 1
		}
		return 0
	}, smoothed, gNorm, absMu)
}

// betaMean is the magnitude-weighted mean axis of ∇|∇θ| over each cell and
// its four neighbors. Axes are averaged on doubled angles so that opposite
// vectors reinforce. Missing neighbors are skipped; a missing center is
// missing.
func betaMean(mux, muy, absMu *mat.Dense) *mat.Dense {
	rows, cols := absMu.Dims()
	ang := make([]float64, rows*cols)
	x, y := geodesy.Values(mux), geodesy.Values(muy)
	for k := range ang {
		ang[k] = math.Atan2(y[k], x[k])
	}
	angles := mat.NewDense(rows, cols, ang)

	an, mn := geodesy.Shift(angles, 1), geodesy.Shift(absMu, 1)
	stackA := [5][]float64{ang, geodesy.Values(an.Up), geodesy.Values(an.Down), geodesy.Values(an.Right), geodesy.Values(an.Left)}
	stackM := [5][]float64{geodesy.Values(absMu), geodesy.Values(mn.Up), geodesy.Values(mn.Down), geodesy.Values(mn.Right), geodesy.Values(mn.Left)}

	out := make([]float64, rows*cols)
	for k := range out {
		if geodesy.IsMissing(stackA[0][k]) || geodesy.IsMissing(stackM[0][k]) {
			out[k] = geodesy.Missing
			continue
		}
		var sp, sq float64
		for s := range stackA {
			a, m := stackA[s][k], stackM[s][k]
			if geodesy.IsMissing(a) || geodesy.IsMissing(m) {
				continue
			}
			sp += m * math.Cos(2*a)
			sq += m * math.Sin(2*a)
		}
		out[k] = math.Atan2(sq, sp) / 2
	}
	return mat.NewDense(rows, cols, out)
}

// totalDivergence resolves the neighbors of ∇|∇θ| onto the local axis beta
// and takes the centered divergence of the resolved component across each
// cell.
func totalDivergence(mesh *geodesy.Mesh, mux, muy, beta *mat.Dense) *mat.Dense {
	nx, ny := geodesy.Shift(mux, 1), geodesy.Shift(muy, 1)
	spanX, spanY := mesh.Spans()

	upX, upY := geodesy.Values(nx.Up), geodesy.Values(ny.Up)
	downX, downY := geodesy.Values(nx.Down), geodesy.Values(ny.Down)
	leftX, leftY := geodesy.Values(nx.Left), geodesy.Values(ny.Left)
	rightX, rightY := geodesy.Values(nx.Right), geodesy.Values(ny.Right)
	b, sx, sy := geodesy.Values(beta), geodesy.Values(spanX), geodesy.Values(spanY)

	rows, cols := mesh.Dims()
	out := make([]float64, rows*cols)
	for k := range out {
		cb, sb := math.Cos(b[k]), math.Sin(b[k])
		up := upX[k]*cb + upY[k]*sb
		down := downX[k]*cb + downY[k]*sb
		lt := leftX[k]*cb + leftY[k]*sb
		rt := rightX[k]*cb + rightY[k]*sb
		out[k] = (down-up)*sb/sy[k] + (lt-rt)*cb/sx[k]
	}
	return mat.NewDense(rows, cols, out)
}

// geostrophicAdvection returns -(V·∇θ) with V the geostrophic wind derived
// from h850:
//
//	u = -(g/f) ∂H/∂north,  v = (g/f) ∂H/∂east,  f = 2Ω sin φ
//
// g/f is missing outside the configured latitude band.
func geostrophicAdvection(mesh *geodesy.Mesh, h850, gx, gy *mat.Dense, p ThermalParams) (*mat.Dense, error) {
	hx, hy, err := mesh.Gradient(h850)
	if err != nil {
		return nil, fmt.Errorf("geopotential gradient: %w", err)
	}
	east, north := mesh.Orientation()
	return geodesy.Apply(func(v ...float64) float64 {
		lat := v[0]
		if math.Abs(lat) > p.MaxLatitude || math.Abs(lat) < p.MinLatitude {
			return geodesy.Missing
		}
		factor := p.Gravity / (2 * p.Omega * math.Sin(lat*math.Pi/180))
		dHdEast, dHdNorth := east*v[1], north*v[2]
		dTdEast, dTdNorth := east*v[3], north*v[4]
		u := -factor * dHdNorth
		w := factor * dHdEast
		return -(u*dTdEast + w*dTdNorth)
	}, mesh.Lat, hx, hy, gx, gy)
}

// inputsPresent reports, per cell, whether every grid has a value there.
func inputsPresent(grids ...*mat.Dense) []bool {
	r, c := grids[0].Dims()
	ok := make([]bool, r*c)
	for k := range ok {
		ok[k] = true
	}
	for _, g := range grids {
		for k, v := range geodesy.Values(g) {
			if geodesy.IsMissing(v) {
				ok[k] = false
			}
		}
	}
	return ok
}
