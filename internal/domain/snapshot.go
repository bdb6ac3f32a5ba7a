package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidSnapshot is returned for snapshots that cannot be gridded.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// ParseSnapshot decodes a RawEvent's value into a Snapshot and validates it.
func ParseSnapshot(raw RawEvent) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw.Value, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	s.RawPayload = raw.Value
	return s, nil
}

// NewSnapshot flattens detector fields into a Snapshot. Nil grids stay
// absent.
func NewSnapshot(id string, validTime time.Time, f fronts.Fields) Snapshot {
	rows, cols := f.Lat.Dims()
	values := func(m *mat.Dense) Values {
		if m == nil {
			return nil
		}
		return ValuesOf(m)
	}
	return Snapshot{
		ID:        id,
		ValidTime: validTime,
		Rows:      rows,
		Cols:      cols,
		Lat:       values(f.Lat),
		Lon:       values(f.Lon),
		Theta:     values(f.Theta),
		H850:      values(f.H850),
		U850:      values(f.U),
		V850:      values(f.V),
		U850Prior: values(f.UPrior),
		V850Prior: values(f.VPrior),
	}
}

// Validate checks that the snapshot has an ID, a non-empty shape, complete
// coordinates, and that every grid present matches the shape.
func (s Snapshot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSnapshot)
	}
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("%w: shape %dx%d", ErrInvalidSnapshot, s.Rows, s.Cols)
	}
	n := s.Rows * s.Cols
	for _, g := range s.grids() {
		if g.values == nil && !g.required {
			continue
		}
		if len(g.values) != n {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidSnapshot, g.name, len(g.values), n)
		}
	}
	for _, g := range []struct {
		name   string
		values Values
	}{{"lat", s.Lat}, {"lon", s.Lon}} {
		for i, v := range g.values {
			if math.IsNaN(v) {
				return fmt.Errorf("%w: %s is missing at cell %d", ErrInvalidSnapshot, g.name, i)
			}
		}
	}
	if s.Temperature != nil && s.Theta == nil && s.Pressure == nil && s.PressureLevel == nil {
		return fmt.Errorf("%w: temperature needs pressure or pressure_level", ErrInvalidSnapshot)
	}
	return nil
}

type namedGrid struct {
	name     string
	values   Values
	required bool
}

func (s Snapshot) grids() []namedGrid {
	return []namedGrid{
		{"lat", s.Lat, true},
		{"lon", s.Lon, true},
		{"theta", s.Theta, false},
		{"temperature", s.Temperature, false},
		{"pressure", s.Pressure, false},
		{"h850", s.H850, false},
		{"u850", s.U850, false},
		{"v850", s.V850, false},
		{"u850_prior", s.U850Prior, false},
		{"v850_prior", s.V850Prior, false},
	}
}

// Fields converts the snapshot's grids into detector inputs. Absent grids stay
// nil. Theta is derived from temperature when it is not given directly.
func (s Snapshot) Fields() (fronts.Fields, error) {
	f := fronts.Fields{
		Lat:    s.dense(s.Lat),
		Lon:    s.dense(s.Lon),
		Theta:  s.dense(s.Theta),
		H850:   s.dense(s.H850),
		U:      s.dense(s.U850),
		V:      s.dense(s.V850),
		UPrior: s.dense(s.U850Prior),
		VPrior: s.dense(s.V850Prior),
	}
	if f.Theta != nil || s.Temperature == nil {
		return f, nil
	}

	temp := s.dense(s.Temperature)
	var err error
	switch {
	case s.Pressure != nil:
		f.Theta, err = fronts.PotentialTemperature(temp, s.dense(s.Pressure))
	case s.PressureLevel != nil:
		f.Theta, err = fronts.PotentialTemperatureAtLevel(temp, *s.PressureLevel)
	}
	if err != nil {
		return fronts.Fields{}, fmt.Errorf("derive theta: %w", err)
	}
	return f, nil
}

// dense copies v into a Rows x Cols grid, or returns nil for an absent grid.
func (s Snapshot) dense(v Values) *mat.Dense {
	if v == nil {
		return nil
	}
	data := make([]float64, len(v))
	copy(data, v)
	return mat.NewDense(s.Rows, s.Cols, data)
}

// ValuesOf flattens a grid in row-major order.
func ValuesOf(m mat.Matrix) Values {
	r, c := m.Dims()
	out := make(Values, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
