// Package synth builds synthetic gridded fields with a known frontal zone.
// It backs the genmock command and the detector tests.
package synth

import (
	"math"

	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
)

// Options shapes a zonal frontal zone on a regular lat/lon grid.
//
// Potential temperature falls by 2*ThetaContrast across a tanh profile of
// half-width FrontWidth degrees centered on FrontLatitude. The 850 hPa height
// carries one sinusoidal wave around the globe, so the geostrophic wind is
// southerly over one half of the longitudes and northerly over the other.
// Winds are westerly everywhere; inside the passage box around PassageLon the
// meridional wind flips from PriorMeridional to CurrentMeridional.
type Options struct {
	Lats, Lons []float64

	FrontLatitude float64
	FrontWidth    float64
	ThetaMean     float64
	ThetaContrast float64

	HeightMean float64
	HeightWave float64

	// PressureLevel, in hPa, of the generated temperature field.
	PressureLevel float64

	Westerly          float64
	PriorMeridional   float64
	CurrentMeridional float64
	PassageLon        float64
	PassageWidth      float64
}

// DefaultOptions returns a 1° by 2.5° mid-latitude band around a front at 45°N.
func DefaultOptions() Options {
	return Options{
		Lats:              Axis(25, 1, 41),
		Lons:              Axis(-180, 2.5, 144),
		FrontLatitude:     45,
		FrontWidth:        3,
		ThetaMean:         290,
		ThetaContrast:     10,
		HeightMean:        1500,
		HeightWave:        50,
		PressureLevel:     850,
		Westerly:          8,
		PriorMeridional:   2,
		CurrentMeridional: -6,
		PassageLon:        0,
		PassageWidth:      20,
	}
}

// Fields are the generated grids.
type Fields struct {
	Lat, Lon    *mat.Dense
	Theta       *mat.Dense
	Temperature *mat.Dense
	H850        *mat.Dense

	U, V           *mat.Dense
	UPrior, VPrior *mat.Dense
}

// Axis returns n evenly spaced values starting at start.
func Axis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// FrontalZone generates the fields described by o.
func FrontalZone(o Options) Fields {
	lat, lon := geodesy.Meshgrid(o.Lats, o.Lons)
	rows, cols := lat.Dims()

	f := Fields{
		Lat:         lat,
		Lon:         lon,
		Theta:       mat.NewDense(rows, cols, nil),
		Temperature: mat.NewDense(rows, cols, nil),
		H850:        mat.NewDense(rows, cols, nil),
		U:           geodesy.Full(rows, cols, o.Westerly),
		UPrior:      geodesy.Full(rows, cols, o.Westerly),
		V:           geodesy.Full(rows, cols, o.PriorMeridional),
		VPrior:      geodesy.Full(rows, cols, o.PriorMeridional),
	}

	exner := math.Pow(o.PressureLevel/1000, 2.0/7.0)
	for i, la := range o.Lats {
		for j, lo := range o.Lons {
			theta := o.ThetaMean - o.ThetaContrast*math.Tanh((la-o.FrontLatitude)/o.FrontWidth)
			f.Theta.Set(i, j, theta)
			f.Temperature.Set(i, j, theta*exner)
			f.H850.Set(i, j, o.HeightMean+o.HeightWave*math.Sin(lo*math.Pi/180))

			if math.Abs(la-o.FrontLatitude) <= o.FrontWidth && math.Abs(lo-o.PassageLon) <= o.PassageWidth/2 {
				f.V.Set(i, j, o.CurrentMeridional)
			}
		}
	}
	return f
}

// LinearGradient generates the same grid with theta falling uniformly by
// kPerDegree toward the pole and no passage. No front should be found in it.
func LinearGradient(o Options, kPerDegree float64) Fields {
	o.PassageWidth = -1
	f := FrontalZone(o)
	for i, la := range o.Lats {
		for j := range o.Lons {
			theta := o.ThetaMean - kPerDegree*(la-o.FrontLatitude)
			f.Theta.Set(i, j, theta)
		}
	}
	f.Temperature, _ = geodesy.Apply(func(v ...float64) float64 {
		return v[0] * math.Pow(o.PressureLevel/1000, 2.0/7.0)
	}, f.Theta)
	return f
}
