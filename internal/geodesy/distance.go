package geodesy

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// EarthRadius is the sphere radius, in meters, used when no radius is given.
const EarthRadius = 6378206.4

const degToRad = math.Pi / 180

// Distance returns the great-circle distance in meters between two points
// given in degrees, on a sphere of the given radius.
//
// The spherical law of cosines is evaluated in the form
// cos(φ0-φ1) - cos φ0 cos φ1 (1 - cos Δλ), which is exactly symmetric in its
// arguments and exactly 1 for identical points. The cosine is clamped to
// [-1, 1] before the arc cosine.
func Distance(lat0, lon0, lat1, lon1, radius float64) float64 {
	p0, p1 := lat0*degToRad, lat1*degToRad
	dl := (lon1 - lon0) * degToRad
	cosc := math.Cos(p0-p1) - math.Cos(p0)*math.Cos(p1)*(1-math.Cos(dl))
	cosc = math.Max(-1, math.Min(1, cosc))
	return math.Acos(cosc) * radius
}

// GreatCircleDistance returns the cell-wise distance in meters between two
// coordinate grids, using EarthRadius.
func GreatCircleDistance(lat0, lon0, lat1, lon1 *mat.Dense) (*mat.Dense, error) {
	return Apply(func(v ...float64) float64 {
		return Distance(v[0], v[1], v[2], v[3], EarthRadius)
	}, lat0, lon0, lat1, lon1)
}
