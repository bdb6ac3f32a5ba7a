package fronts

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"gonum.org/v1/gonum/mat"
)

// WindShiftResult holds the output of the wind shift method.
type WindShiftResult struct {
	// Cold is 1 where a cold front passed between the two time steps, 0
	// elsewhere and missing where any input at the cell is missing.
	Cold *mat.Dense
}

// WindShift flags cold front passages from the change in 850 hPa wind
// between a prior and the current time step. A cell is flagged when the
// zonal wind is westerly at both steps, the meridional wind turns toward the
// equator (southward in the northern hemisphere, northward in the southern),
// its sign flips, its speed changes by more than the threshold, and the cell
// lies equatorward of the latitude limit.
func WindShift(lat, lon, uPrior, vPrior, u, v *mat.Dense, p WindShiftParams) (WindShiftResult, error) {
	if err := geodesy.CheckShape(lat, lon, uPrior, vPrior, u, v); err != nil {
		return WindShiftResult{}, fmt.Errorf("wind shift: %w", err)
	}
	cold, err := geodesy.Apply(func(x ...float64) float64 {
		for _, val := range x {
			if geodesy.IsMissing(val) {
				return geodesy.Missing
			}
		}
		la, up, vp, uc, vc := x[0], x[2], x[3], x[4], x[5]
		magDiff := math.Abs(math.Abs(vc) - math.Abs(vp))
		equatorward := (vc > 0 && la < 0) || (vc < 0 && la > 0)
		if uc > 0 && up > 0 && equatorward && vc*vp < 0 && magDiff > p.Threshold && math.Abs(la) < p.MaxLatitude {
			return 1
		}
		return 0
	}, lat, lon, uPrior, vPrior, u, v)
	if err != nil {
		return WindShiftResult{}, err
	}
	return WindShiftResult{Cold: cold}, nil
}
