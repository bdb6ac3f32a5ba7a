package contour

import (
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
)

// Rasterize marks every grid cell that contains at least one polyline vertex.
//
// Cells are binned on the latitude axis lat[:,0] and the longitude axis
// lon[0,:]. Bin edges sit halfway between adjacent centers and half a spacing
// beyond the first and last center; latitude edges are clamped to [-90, 90].
// Axes may ascend or descend. The longitude axis is unwrapped first and vertex
// longitudes are moved by whole turns into its range, so grids that cross the
// date line bin the same as their continuous relabelling. Bins are half-open
// on their upper edge except the last one, which is closed. Vertices outside
// every bin are ignored.
//
// Grids with fewer than two rows or columns have no spacing to bin on and
// produce an all-zero mask.
func Rasterize(lat, lon *mat.Dense, lines []Polyline) (*mat.Dense, error) {
	if err := geodesy.CheckShape(lat, lon); err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	rows, cols := lat.Dims()
	mask := mat.NewDense(rows, cols, nil)
	if rows < 2 || cols < 2 {
		return mask, nil
	}

	latBins := newBins(mat.Col(nil, 0, lat), true)
	lonBins := newBins(mat.Row(nil, 0, geodesy.UnwrapLongitude(lon)), false)
	lonBins.periodic = true
	for _, l := range lines {
		for _, p := range l.Points {
			i, ok := latBins.find(p.Lat)
			if !ok {
				continue
			}
			j, ok := lonBins.find(p.Lon)
			if !ok {
				continue
			}
			mask.Set(i, j, 1)
		}
	}
	return mask, nil
}

// ZeroContourMask rasterizes the level-0 isolines of field. A field without a
// sign change yields an all-zero mask.
func ZeroContourMask(lat, lon, field *mat.Dense) (*mat.Dense, error) {
	lines, err := Isolines(lat, lon, field, 0)
	if err != nil {
		return nil, err
	}
	return Rasterize(lat, lon, lines)
}

// bins holds ascending edges; reversed is set when the axis descends so that
// found indices are mapped back to the original cell order. Values on a
// periodic axis are taken modulo 360 from the first edge.
type bins struct {
	edges    []float64
	reversed bool
	periodic bool
}

func newBins(centers []float64, clampLat bool) bins {
	n := len(centers)
	edges := make([]float64, n+1)
	edges[0] = centers[0] - (centers[1]-centers[0])/2
	for k := 1; k < n; k++ {
		edges[k] = (centers[k-1] + centers[k]) / 2
	}
	edges[n] = centers[n-1] + (centers[n-1]-centers[n-2])/2
	if clampLat {
		for k, e := range edges {
			edges[k] = max(-90, min(90, e))
		}
	}

	b := bins{edges: edges}
	if edges[n] < edges[0] {
		b.reversed = true
		for l, r := 0, n; l < r; l, r = l+1, r-1 {
			edges[l], edges[r] = edges[r], edges[l]
		}
	}
	return b
}

func (b bins) find(v float64) (int, bool) {
	n := len(b.edges) - 1
	if b.periodic && (v < b.edges[0] || v > b.edges[n]) {
		v = b.edges[0] + math.Mod(math.Mod(v-b.edges[0], 360)+360, 360)
	}
	if geodesy.IsMissing(v) || v < b.edges[0] || v > b.edges[n] {
		return 0, false
	}
	k := sort.Search(n+1, func(i int) bool { return b.edges[i] > v }) - 1
	if k == n {
		k = n - 1
	}
	if b.reversed {
		k = n - 1 - k
	}
	return k, true
}
