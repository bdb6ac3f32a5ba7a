package plot

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestNewGridOrientsAxes(t *testing.T) {
	lat, lon := geodesy.Meshgrid([]float64{50, 40, 30}, []float64{10, 0})
	field := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, math.NaN()})

	g := newGrid(lat, lon, field)
	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 3, r)
	assert.Equal(t, []float64{30, 40, 50}, g.ys)
	assert.Equal(t, []float64{0, 10}, g.xs)
	assert.True(t, math.IsNaN(g.Z(0, 0)), "south-west corner comes from the last source cell")
	assert.InDelta(t, 2, g.Z(0, 2), 0)
	assert.InDelta(t, 1, g.Min(), 0)
	assert.InDelta(t, 5, g.Max(), 0)
}

func TestNewGridDegenerateRange(t *testing.T) {
	lat, lon := geodesy.Meshgrid([]float64{0, 1}, []float64{0, 1})

	constant := newGrid(lat, lon, geodesy.Full(2, 2, 3))
	assert.InDelta(t, 3, constant.Min(), 0)
	assert.InDelta(t, 4, constant.Max(), 0)

	empty := newGrid(lat, lon, geodesy.Full(2, 2, math.NaN()))
	assert.InDelta(t, 0, empty.Min(), 0)
	assert.InDelta(t, 1, empty.Max(), 0)
}

func TestRenderPNG(t *testing.T) {
	lat, lon := geodesy.Meshgrid([]float64{30, 35, 40, 45}, []float64{-10, -5, 0, 5, 10})
	field, err := geodesy.Apply(func(v ...float64) float64 { return v[0] - v[1] }, lat, lon)
	require.NoError(t, err)
	cells := []domain.FrontCell{
		{Row: 1, Col: 2, Lat: 35, Lon: 0, Kind: domain.KindWarm},
		{Row: 2, Col: 3, Lat: 40, Lon: 5, Kind: domain.KindCold},
	}

	p, err := Render(lat, lon, field, cells, "total divergence")
	require.NoError(t, err)
	assert.Equal(t, "total divergence", p.Title.Text)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	path := filepath.Join(t.TempDir(), "fronts.png")
	require.NoError(t, SavePNG(p, path))
	assert.FileExists(t, path)
}

func TestRenderShapeMismatch(t *testing.T) {
	lat, lon := geodesy.Meshgrid([]float64{0, 1}, []float64{0, 1})
	_, err := Render(lat, lon, mat.NewDense(3, 3, nil), nil, "")
	require.ErrorIs(t, err, geodesy.ErrShapeMismatch)
}
