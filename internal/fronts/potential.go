package fronts

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
)

// ReferencePressure is the pressure, in hPa, potential temperature is
// referenced to.
const ReferencePressure = 1000.0

// kappa is R/cp for dry air.
const kappa = 2.0 / 7.0

// PotentialTemperature returns θ = T·(1000/P)^(2/7) cell by cell, with T in
// kelvin and P in hPa.
func PotentialTemperature(temperature, pressure *mat.Dense) (*mat.Dense, error) {
	theta, err := geodesy.Apply(func(v ...float64) float64 {
		return v[0] * math.Pow(ReferencePressure/v[1], kappa)
	}, temperature, pressure)
	if err != nil {
		return nil, fmt.Errorf("potential temperature: %w", err)
	}
	return theta, nil
}

// PotentialTemperatureAtLevel is PotentialTemperature for a field on a single
// pressure level given in hPa.
func PotentialTemperatureAtLevel(temperature *mat.Dense, level float64) (*mat.Dense, error) {
	if err := geodesy.CheckShape(temperature); err != nil {
		return nil, fmt.Errorf("potential temperature: %w", err)
	}
	r, c := temperature.Dims()
	return PotentialTemperature(temperature, geodesy.Full(r, c, level))
}
