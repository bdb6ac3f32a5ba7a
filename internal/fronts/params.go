package fronts

import "github.com/couchcryptid/storm-front-detection/internal/geodesy"

// ThermalParams holds the constants of the thermal front parameter method.
// Gradients are per meter, so K1 is in K/m² and K2 in K/m.
type ThermalParams struct {
	// K1 is the lower bound on the smoothed front locator m1.
	K1 float64
	// K2 is the lower bound on the combined gradient m2.
	K2 float64
	// Length scales |∇|∇θ|| into m2, in meters.
	Length float64

	SmoothIterations   int
	SmoothCenterWeight float64

	// Geostrophic wind constants: rotation rate (rad/s), gravity (m/s²) and
	// the absolute latitude band, in degrees, where the Coriolis factor is
	// trusted.
	Omega       float64
	Gravity     float64
	MinLatitude float64
	MaxLatitude float64

	// Radius of the sphere in meters.
	Radius float64
}

// DefaultThermalParams returns the published thresholds.
func DefaultThermalParams() ThermalParams {
	return ThermalParams{
		K1:                 0.33e-10,
		K2:                 1.49e-5,
		Length:             100e3,
		SmoothIterations:   1,
		SmoothCenterWeight: 1,
		Omega:              7.3e-5,
		Gravity:            9.8,
		MinLatitude:        20,
		MaxLatitude:        70,
		Radius:             geodesy.EarthRadius,
	}
}

// WindShiftParams holds the constants of the wind shift method.
type WindShiftParams struct {
	// Threshold is the minimum change in meridional wind speed, m/s.
	Threshold float64
	// MaxLatitude excludes polar cells, degrees.
	MaxLatitude float64
}

// DefaultWindShiftParams returns the published thresholds.
func DefaultWindShiftParams() WindShiftParams {
	return WindShiftParams{
		Threshold:   2.0,
		MaxLatitude: 80,
	}
}
