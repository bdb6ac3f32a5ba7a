package fronts

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Method names a front detection method.
type Method string

const (
	MethodThermal   Method = "thermal"
	MethodWindShift Method = "wind_shift"
)

var (
	// ErrUnknownMethod is returned when a method name has no detector.
	ErrUnknownMethod = errors.New("unknown front detection method")

	// ErrMissingField is returned when a detector's required input grid is
	// absent.
	ErrMissingField = errors.New("missing input field")
)

// Fields carries the gridded inputs a detector may read. Grids a method does
// not use may be nil.
type Fields struct {
	Lat, Lon *mat.Dense

	// Theta is potential temperature in K and H850 the 850 hPa geopotential
	// height in m.
	Theta, H850 *mat.Dense

	// 850 hPa wind components in m/s at the current and prior time step.
	U, V           *mat.Dense
	UPrior, VPrior *mat.Dense
}

// Detection is the result of running one method. Warm is nil for methods that
// only detect cold fronts; Diagnostic is the method's continuous locator
// field when it has one.
type Detection struct {
	Method     Method
	Warm, Cold *mat.Dense
	Diagnostic *mat.Dense
}

// Detector runs one front detection method.
type Detector interface {
	Method() Method
	// Requires reports whether every input the method needs is present.
	Requires(f Fields) error
	Detect(f Fields) (Detection, error)
}

// ThermalDetector runs Thermal with fixed parameters.
type ThermalDetector struct {
	Params ThermalParams
}

func (ThermalDetector) Method() Method { return MethodThermal }

func (ThermalDetector) Requires(f Fields) error {
	return requireGrids(map[string]*mat.Dense{"lat": f.Lat, "lon": f.Lon, "theta": f.Theta, "h850": f.H850})
}

func (d ThermalDetector) Detect(f Fields) (Detection, error) {
	if err := d.Requires(f); err != nil {
		return Detection{}, err
	}
	r, err := Thermal(f.Lat, f.Lon, f.Theta, f.H850, d.Params)
	if err != nil {
		return Detection{}, err
	}
	return Detection{Method: MethodThermal, Warm: r.Warm, Cold: r.Cold, Diagnostic: r.TotalDivergence}, nil
}

// WindShiftDetector runs WindShift with fixed parameters.
type WindShiftDetector struct {
	Params WindShiftParams
}

func (WindShiftDetector) Method() Method { return MethodWindShift }

func (WindShiftDetector) Requires(f Fields) error {
	return requireGrids(map[string]*mat.Dense{
		"lat": f.Lat, "lon": f.Lon, "u": f.U, "v": f.V, "u_prior": f.UPrior, "v_prior": f.VPrior,
	})
}

func (d WindShiftDetector) Detect(f Fields) (Detection, error) {
	if err := d.Requires(f); err != nil {
		return Detection{}, err
	}
	r, err := WindShift(f.Lat, f.Lon, f.UPrior, f.VPrior, f.U, f.V, d.Params)
	if err != nil {
		return Detection{}, err
	}
	return Detection{Method: MethodWindShift, Cold: r.Cold}, nil
}

func requireGrids(grids map[string]*mat.Dense) error {
	var missing []string
	for name, g := range grids {
		if g == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
}

// Registry resolves method names to detectors.
type Registry struct {
	detectors map[Method]Detector
}

// NewRegistry returns a registry holding the given detectors. A later
// detector for the same method replaces an earlier one.
func NewRegistry(detectors ...Detector) *Registry {
	r := &Registry{detectors: make(map[Method]Detector, len(detectors))}
	for _, d := range detectors {
		r.detectors[d.Method()] = d
	}
	return r
}

// DefaultRegistry returns a registry with both methods.
func DefaultRegistry(tp ThermalParams, wp WindShiftParams) *Registry {
	return NewRegistry(ThermalDetector{Params: tp}, WindShiftDetector{Params: wp})
}

// Lookup returns the detector for m.
func (r *Registry) Lookup(m Method) (Detector, error) {
	d, ok := r.detectors[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	return d, nil
}

// Select returns the detectors for methods, in order.
func (r *Registry) Select(methods []Method) ([]Detector, error) {
	out := make([]Detector, 0, len(methods))
	for _, m := range methods {
		d, err := r.Lookup(m)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Methods lists the registered methods in name order.
func (r *Registry) Methods() []Method {
	out := make([]Method, 0, len(r.detectors))
	for m := range r.detectors {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseMethods splits a comma-separated list of method names. Blank entries
// are ignored and duplicates collapsed; unknown names are an error.
func ParseMethods(s string) ([]Method, error) {
	seen := make(map[Method]bool)
	var out []Method
	for _, part := range strings.Split(s, ",") {
		m := Method(strings.TrimSpace(part))
		if m == "" || seen[m] {
			continue
		}
		switch m {
		case MethodThermal, MethodWindShift:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
		}
		seen[m] = true
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, errors.New("no front detection methods given")
	}
	return out, nil
}
