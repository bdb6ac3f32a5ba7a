// Package plot renders a gridded field as a heat map with detected front
// cells overlaid.
package plot

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default image size.
const (
	Width  = 12 * vg.Inch
	Height = 6 * vg.Inch
)

var (
	warmColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	coldColor = color.RGBA{R: 30, G: 60, B: 220, A: 255}
)

// Render draws field on the lat/lon mesh with front cells as markers. The
// mesh must be regular: latitude constant along rows, longitude along columns.
func Render(lat, lon, field mat.Matrix, cells []domain.FrontCell, title string) (*gonumplot.Plot, error) {
	if err := geodesy.CheckShape(lat, lon, field); err != nil {
		return nil, err
	}

	p := gonumplot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude (°)"
	p.Y.Label.Text = "Latitude (°)"

	g := newGrid(lat, lon, field)
	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	hm.NaN = color.Transparent
	p.Add(hm)

	for _, layer := range []struct {
		kind  string
		color color.Color
		shape draw.GlyphDrawer
	}{
		{domain.KindWarm, warmColor, draw.CircleGlyph{}},
		{domain.KindCold, coldColor, draw.TriangleGlyph{}},
	} {
		pts := make(plotter.XYs, 0, len(cells))
		for _, c := range cells {
			if c.Kind == layer.kind {
				pts = append(pts, plotter.XY{X: c.Lon, Y: c.Lat})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("%s front markers: %w", layer.kind, err)
		}
		s.GlyphStyle.Color = layer.color
		s.GlyphStyle.Shape = layer.shape
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(layer.kind, s)
	}
	return p, nil
}

// WritePNG encodes the plot as a PNG.
func WritePNG(p *gonumplot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the plot to a PNG file.
func SavePNG(p *gonumplot.Plot, path string) error {
	return p.Save(Width, Height, path)
}

// grid adapts a lat/lon mesh to plotter.GridXYZ with increasing axes.
type grid struct {
	xs, ys   []float64
	z        *mat.Dense
	min, max float64
}

func newGrid(lat, lon, field mat.Matrix) *grid {
	rows, cols := field.Dims()
	g := &grid{
		xs: make([]float64, cols),
		ys: make([]float64, rows),
		z:  mat.NewDense(rows, cols, nil),
	}
	flipRows := rows > 1 && lat.At(rows-1, 0) < lat.At(0, 0)
	flipCols := cols > 1 && lon.At(0, cols-1) < lon.At(0, 0)
	for i := 0; i < rows; i++ {
		si := i
		if flipRows {
			si = rows - 1 - i
		}
		g.ys[i] = lat.At(si, 0)
		for j := 0; j < cols; j++ {
			sj := j
			if flipCols {
				sj = cols - 1 - j
			}
			if i == 0 {
				g.xs[j] = lon.At(0, sj)
			}
			g.z.Set(i, j, field.At(si, sj))
		}
	}

	g.min, g.max = math.Inf(1), math.Inf(-1)
	for _, v := range g.z.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		g.min = math.Min(g.min, v)
		g.max = math.Max(g.max, v)
	}
	switch {
	case g.min > g.max:
		g.min, g.max = 0, 1
	case g.min == g.max:
		g.max = g.min + 1
	}
	return g
}

func (g *grid) Dims() (c, r int)   { return len(g.xs), len(g.ys) }
func (g *grid) Z(c, r int) float64 { return g.z.At(r, c) }
func (g *grid) X(c int) float64    { return g.xs[c] }
func (g *grid) Y(r int) float64    { return g.ys[r] }
func (g *grid) Min() float64       { return g.min }
func (g *grid) Max() float64       { return g.max }
