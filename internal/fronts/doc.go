// Package fronts detects atmospheric fronts on regular latitude/longitude
// grids.
//
// # Methods
//
// Thermal front parameter ([Thermal], after Hewson 1998):
//
//	Fronts lie where the gradient of the magnitude of the potential
//	temperature gradient, ∇|∇θ|, stops changing along its own axis. That
//	locator is the divergence of ∇|∇θ| resolved onto its five-point mean
//	axis; its zero contour is rasterized back onto the grid. Two masking
//	parameters keep only strong, sharpening gradients:
//
//	  m1 = -S(∇|∇θ| · ∇θ) / |∇θ|          > K1 (0.33e-10 K/m²)
//	  m2 = |∇θ| + (100 km / √2) |∇|∇θ||   > K2 (1.49e-5 K/m)
//
//	S is one pass of the five-point smoother. Front cells with positive
//	850 hPa geostrophic thermal advection are warm fronts, negative ones cold.
//	The Coriolis factor is only trusted between 20° and 70° of latitude;
//	outside that band no front is classed.
//
// Wind shift ([WindShift], after Simmonds et al. 2012):
//
//	A cold front passed a cell between two time steps when the 850 hPa wind
//	stayed westerly, the meridional component reversed to point toward the
//	equator, and its speed changed by more than 2 m/s. Cells at or poleward
//	of 80° are ignored.
//
// # Units
//
// Coordinates are in degrees. Gradients are per meter along great circles on
// a sphere of [geodesy.EarthRadius], so thresholds are in field units per
// meter. Potential temperature is derived from temperature in kelvin and
// pressure in hPa ([PotentialTemperature]).
//
// # Missing Values
//
// Missing cells are NaN. They propagate through the arithmetic, and every
// comparison against them is false, so a missing intermediate never flags a
// front. Output masks are NaN only where the cell's own inputs are missing.
//
// # Detectors
//
// [Detector] wraps each method behind a common interface taking [Fields], and
// [Registry] resolves them by [Method] name so that callers can run any
// configured subset.
package fronts
