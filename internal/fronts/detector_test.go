package fronts

import (
	"math"
	"testing"

	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"github.com/couchcryptid/storm-front-detection/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPotentialTemperature(t *testing.T) {
	temp := mat.NewDense(1, 3, []float64{300, 280, geodesy.Missing})
	pres := mat.NewDense(1, 3, []float64{1000, 850, 850})

	theta, err := PotentialTemperature(temp, pres)
	require.NoError(t, err)
	assert.InDelta(t, 300, theta.At(0, 0), 1e-12)
	assert.InDelta(t, 280*math.Pow(1000.0/850, 2.0/7), theta.At(0, 1), 1e-9)
	assert.True(t, geodesy.IsMissing(theta.At(0, 2)))

	atLevel, err := PotentialTemperatureAtLevel(temp, 850)
	require.NoError(t, err)
	assert.InDelta(t, theta.At(0, 1), atLevel.At(0, 1), 1e-12)

	_, err = PotentialTemperature(temp, mat.NewDense(3, 1, nil))
	require.ErrorIs(t, err, geodesy.ErrShapeMismatch)
}

func TestPotentialTemperatureRoundTrip(t *testing.T) {
	f := synth.FrontalZone(synth.DefaultOptions())
	theta, err := PotentialTemperatureAtLevel(f.Temperature, 850)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(f.Theta, theta, 1e-9))
}

func TestParseMethods(t *testing.T) {
	tests := []struct {
		in      string
		want    []Method
		wantErr error
	}{
		{in: "thermal", want: []Method{MethodThermal}},
		{in: "thermal,wind_shift", want: []Method{MethodThermal, MethodWindShift}},
		{in: " wind_shift , thermal,wind_shift,", want: []Method{MethodWindShift, MethodThermal}},
		{in: "thermal,vorticity", wantErr: ErrUnknownMethod},
		{in: " , "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethods(tt.in)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.want == nil:
				require.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(DefaultThermalParams(), DefaultWindShiftParams())
	assert.Equal(t, []Method{MethodThermal, MethodWindShift}, r.Methods())

	d, err := r.Lookup(MethodWindShift)
	require.NoError(t, err)
	assert.Equal(t, MethodWindShift, d.Method())

	_, err = r.Lookup("vorticity")
	require.ErrorIs(t, err, ErrUnknownMethod)

	ds, err := r.Select([]Method{MethodWindShift, MethodThermal})
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, MethodWindShift, ds[0].Method())
	assert.Equal(t, MethodThermal, ds[1].Method())

	_, err = r.Select([]Method{MethodThermal, "vorticity"})
	require.ErrorIs(t, err, ErrUnknownMethod)

	custom := NewRegistry(ThermalDetector{}, ThermalDetector{Params: DefaultThermalParams()})
	d, err = custom.Lookup(MethodThermal)
	require.NoError(t, err)
	assert.Equal(t, DefaultThermalParams(), d.(ThermalDetector).Params, "later detector wins")
}

func TestDetectors(t *testing.T) {
	s := synth.FrontalZone(synth.DefaultOptions())
	fields := Fields{
		Lat: s.Lat, Lon: s.Lon,
		Theta: s.Theta, H850: s.H850,
		U: s.U, V: s.V, UPrior: s.UPrior, VPrior: s.VPrior,
	}

	t.Run("thermal", func(t *testing.T) {
		det, err := ThermalDetector{Params: DefaultThermalParams()}.Detect(fields)
		require.NoError(t, err)
		assert.Equal(t, MethodThermal, det.Method)
		require.NotNil(t, det.Warm)
		require.NotNil(t, det.Diagnostic)
		assert.NotZero(t, flagged(det.Warm))
		assert.NotZero(t, flagged(det.Cold))
	})

	t.Run("wind shift", func(t *testing.T) {
		det, err := WindShiftDetector{Params: DefaultWindShiftParams()}.Detect(fields)
		require.NoError(t, err)
		assert.Equal(t, MethodWindShift, det.Method)
		assert.Nil(t, det.Warm)
		assert.Nil(t, det.Diagnostic)
		assert.Equal(t, 63, flagged(det.Cold))
	})

	t.Run("missing fields", func(t *testing.T) {
		partial := fields
		partial.UPrior, partial.VPrior = nil, nil

		d := WindShiftDetector{Params: DefaultWindShiftParams()}
		err := d.Requires(partial)
		require.ErrorIs(t, err, ErrMissingField)
		assert.Contains(t, err.Error(), "u_prior, v_prior")

		_, err = d.Detect(partial)
		require.ErrorIs(t, err, ErrMissingField)

		assert.NoError(t, ThermalDetector{}.Requires(partial))
	})
}
