package netcdf

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/storm-front-detection/internal/terrain"
	"gonum.org/v1/gonum/mat"
)

// Gravity converts surface geopotential (m²/s²) to elevation (m).
const Gravity = 9.8

// VarSurfaceGeopotential is the surface geopotential variable of a MERRA-2
// constants file.
const VarSurfaceGeopotential = "PHIS"

// terrainRecord is the PHIS record used when the file carries more than one
// along its leading dimension.
const terrainRecord = 1

// coordTolerance is how far, in degrees, a grid corner may sit from a file
// coordinate and still match it.
const coordTolerance = 1e-6

// ErrWindowOutside is returned when a window's corners are not grid points of
// the terrain file.
var ErrWindowOutside = errors.New("window corners not on terrain grid")

// TerrainFile serves elevation windows cut from a surface geopotential file.
// The whole field is loaded once; windows must start and end on file grid
// points and share its spacing.
type TerrainFile struct {
	lats, lons []float64
	elevation  *mat.Dense
}

// OpenTerrain loads PHIS from path and converts it to meters. Files with
// several records along the leading dimension are read at the second one;
// single-record files at the first.
func OpenTerrain(path string) (*TerrainFile, error) {
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	record := 0
	if dims := d.cdf.Header.Lengths(VarSurfaceGeopotential); len(dims) > 2 && dims[0] > terrainRecord {
		record = terrainRecord
	}
	phis, err := d.Record(VarSurfaceGeopotential, record)
	if err != nil {
		return nil, err
	}
	phis.Scale(1/Gravity, phis)
	return &TerrainFile{lats: d.Lats, lons: d.Lons, elevation: phis}, nil
}

// Elevation implements terrain.Provider.
func (t *TerrainFile) Elevation(ctx context.Context, w terrain.Window) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i0, ok0 := index(t.lats, w.FirstLat)
	i1, ok1 := index(t.lats, w.LastLat)
	j0, ok2 := index(t.lons, w.FirstLon)
	j1, ok3 := index(t.lons, w.LastLon)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: %s", ErrWindowOutside, w)
	}
	if i1-i0+1 != w.Rows || j1-j0+1 != w.Cols {
		return nil, fmt.Errorf("%w: %s spans %dx%d file cells", ErrWindowOutside, w, i1-i0+1, j1-j0+1)
	}
	return mat.DenseCopyOf(t.elevation.Slice(i0, i1+1, j0, j1+1)), nil
}

func index(axis []float64, v float64) (int, bool) {
	for i, a := range axis {
		if math.Abs(a-v) <= coordTolerance {
			return i, true
		}
	}
	return 0, false
}
