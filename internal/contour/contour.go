// Package contour traces isolines through gridded fields and rasterizes them
// back onto the grid the field came from.
package contour

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
)

// Point is a contour vertex in grid coordinates.
type Point struct {
	Lat, Lon float64
}

// Polyline is a chain of contour vertices. A closed polyline repeats its first
// point at the end.
type Polyline struct {
	Points []Point
	Closed bool
}

// Square edges.
const (
	top = iota
	right
	bottom
	left
)

// segments lists the edge pairs crossed by the level for each corner case.
// Corner bits: top-left 8, top-right 4, bottom-right 2, bottom-left 1.
// Saddles (5 and 10) are resolved separately.
var segments = [16][][2]int{
	1:  {{left, bottom}},
	2:  {{bottom, right}},
	3:  {{left, right}},
	4:  {{top, right}},
	6:  {{top, bottom}},
	7:  {{top, left}},
	8:  {{top, left}},
	9:  {{top, bottom}},
	11: {{top, right}},
	12: {{left, right}},
	13: {{bottom, right}},
	14: {{left, bottom}},
}

// Isolines traces the level set z == level with marching squares. Vertices
// are placed by linear interpolation of lat and lon along the crossed cell
// edge. A corner counts as above the level when z > level. Squares with a
// missing corner are skipped, and saddle squares are split according to the
// mean of their four corners.
//
// Longitudes are unwrapped along each row before interpolation, so on a grid
// that crosses the date line vertices past the seam lie beyond ±180.
//
// Segments are joined into polylines: chains that end at the grid border or
// at a skipped square come first, then closed loops.
func Isolines(lat, lon, z *mat.Dense, level float64) ([]Polyline, error) {
	if err := geodesy.CheckShape(lat, lon, z); err != nil {
		return nil, fmt.Errorf("isolines: %w", err)
	}
	rows, cols := z.Dims()
	t := tracer{
		lat:   geodesy.Values(geodesy.Compact(lat)),
		lon:   geodesy.Values(geodesy.UnwrapLongitude(lon)),
		z:     geodesy.Values(geodesy.Compact(z)),
		cols:  cols,
		level: level,
		links: make(map[int][]int),
	}

	for i := 0; i+1 < rows; i++ {
		for j := 0; j+1 < cols; j++ {
			t.square(i, j)
		}
	}
	return t.stitch(), nil
}

type tracer struct {
	lat, lon, z []float64
	cols        int
	level       float64

	// links maps an edge key to the edges it is joined to by a segment.
	links map[int][]int
}

func (t *tracer) square(i, j int) {
	tl := i*t.cols + j
	tr := tl + 1
	bl := tl + t.cols
	br := bl + 1

	zs := [4]float64{t.z[tl], t.z[tr], t.z[br], t.z[bl]}
	for _, v := range zs {
		if geodesy.IsMissing(v) {
			return
		}
	}

	c := 0
	if zs[0] > t.level {
		c |= 8
	}
	if zs[1] > t.level {
		c |= 4
	}
	if zs[2] > t.level {
		c |= 2
	}
	if zs[3] > t.level {
		c |= 1
	}

	pairs := segments[c]
	if c == 5 || c == 10 {
		centerAbove := (zs[0]+zs[1]+zs[2]+zs[3])/4 > t.level
		// With the center above, the below corners are cut off; otherwise
		// the above corners are.
		if (c == 5) == centerAbove {
			pairs = [][2]int{{top, left}, {bottom, right}}
		} else {
			pairs = [][2]int{{top, right}, {left, bottom}}
		}
	}

	keys := [4]int{
		top:    hEdge(tl),
		bottom: hEdge(bl),
		left:   vEdge(tl),
		right:  vEdge(tr),
	}
	for _, p := range pairs {
		a, b := keys[p[0]], keys[p[1]]
		t.links[a] = append(t.links[a], b)
		t.links[b] = append(t.links[b], a)
	}
}

// Edge keys encode the edge's first cell and its orientation.
func hEdge(k int) int { return 2 * k }
func vEdge(k int) int { return 2*k + 1 }

// vertex interpolates the level crossing along an edge.
func (t *tracer) vertex(key int) Point {
	p := key / 2
	q := p + 1
	if key%2 == 1 {
		q = p + t.cols
	}
	f := (t.level - t.z[p]) / (t.z[q] - t.z[p])
	return Point{
		Lat: t.lat[p] + f*(t.lat[q]-t.lat[p]),
		Lon: t.lon[p] + f*(t.lon[q]-t.lon[p]),
	}
}

func (t *tracer) stitch() []Polyline {
	keys := make([]int, 0, len(t.links))
	for k := range t.links {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	visited := make(map[int]bool, len(keys))
	var lines []Polyline

	for _, k := range keys {
		if !visited[k] && len(t.links[k]) == 1 {
			lines = append(lines, Polyline{Points: t.walk(k, visited)})
		}
	}
	for _, k := range keys {
		if !visited[k] {
			pts := t.walk(k, visited)
			pts = append(pts, pts[0])
			lines = append(lines, Polyline{Points: pts, Closed: true})
		}
	}
	return lines
}

func (t *tracer) walk(start int, visited map[int]bool) []Point {
	var pts []Point
	for k, ok := start, true; ok; {
		visited[k] = true
		pts = append(pts, t.vertex(k))
		ok = false
		for _, n := range t.links[k] {
			if !visited[n] {
				k, ok = n, true
				break
			}
		}
	}
	return pts
}
