// Package netcdf reads and writes gridded fields in NetCDF classic format.
//
// Horizontal grids are 1-D lat and lon coordinate variables plus 2-D (or
// higher, with singleton leading dimensions) data variables whose last two
// dimensions are lat and lon. Only the first record and level of a variable
// is read. Values equal to a variable's _FillValue or missing_value attribute
// become NaN.
package netcdf

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"
)

// ErrMissingVariable is returned when a required variable is not in the file.
var ErrMissingVariable = errors.New("variable not in file")

// Dataset is an open NetCDF file with a lat/lon grid.
type Dataset struct {
	file     *os.File
	cdf      *cdf.File
	Lats     []float64
	Lons     []float64
	Lat, Lon *mat.Dense
}

// Open reads the header and coordinate variables of a NetCDF file.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read netcdf header %s: %w", path, err)
	}

	d := &Dataset{file: f, cdf: cf}
	if d.Lats, err = d.axis("lat"); err != nil {
		f.Close()
		return nil, err
	}
	if d.Lons, err = d.axis("lon"); err != nil {
		f.Close()
		return nil, err
	}
	d.Lat, d.Lon = geodesy.Meshgrid(d.Lats, d.Lons)
	return d, nil
}

func (d *Dataset) Close() error {
	return d.file.Close()
}

// Has reports whether the file defines the variable.
func (d *Dataset) Has(name string) bool {
	return len(d.cdf.Header.Lengths(name)) > 0
}

// Grid reads the first lat/lon slice of a variable.
func (d *Dataset) Grid(name string) (*mat.Dense, error) {
	return d.Record(name, 0)
}

// Record reads the lat/lon slice of a variable at the given index of its
// leading dimension. Any further leading dimensions are read at index 0.
func (d *Dataset) Record(name string, record int) (*mat.Dense, error) {
	dims := d.cdf.Header.Lengths(name)
	if len(dims) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, name)
	}
	rows, cols := len(d.Lats), len(d.Lons)
	n := len(dims)
	if dims[n-2] != rows || dims[n-1] != cols {
		return nil, fmt.Errorf("%s is %dx%d, grid is %dx%d: %w", name, dims[n-2], dims[n-1], rows, cols, geodesy.ErrShapeMismatch)
	}

	begin, end := make([]int, n), make([]int, n)
	for i := 0; i < n-2; i++ {
		begin[i], end[i] = 0, 1
	}
	if n > 2 {
		begin[0], end[0] = record, record+1
	}
	end[n-2], end[n-1] = rows, cols

	values, err := d.read(name, begin, end, rows*cols)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rows, cols, values), nil
}

func (d *Dataset) axis(name string) ([]float64, error) {
	dims := d.cdf.Header.Lengths(name)
	if len(dims) != 1 || dims[0] == 0 {
		return nil, fmt.Errorf("%w: 1-D coordinate %s", ErrMissingVariable, name)
	}
	return d.read(name, nil, nil, dims[0])
}

// read returns n values of a variable as float64, with fill values as NaN.
func (d *Dataset) read(name string, begin, end []int, n int) ([]float64, error) {
	r := d.cdf.Reader(name, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read netcdf variable %s: %w", name, err)
	}

	var out []float64
	switch b := buf.(type) {
	case []float64:
		out = b
	case []float32:
		out = make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
	case []int32:
		out = make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
	case []int16:
		out = make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("netcdf variable %s has unsupported type %T", name, buf)
	}

	for _, attr := range []string{"_FillValue", "missing_value"} {
		fill, ok := scalarAttribute(d.cdf.Header.GetAttribute(name, attr))
		if !ok {
			continue
		}
		for i, v := range out {
			if v == fill {
				out[i] = geodesy.Missing
			}
		}
	}
	return out, nil
}

func scalarAttribute(a any) (float64, bool) {
	switch v := a.(type) {
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return math.NaN(), false
}

// Variable names read by ReadFields.
const (
	VarTheta       = "theta"
	VarTemperature = "T"
	VarHeight      = "H"
	VarHeight850   = "H850"
	VarU           = "U"
	VarV           = "V"
)

// ReadFields reads detector inputs from a snapshot file. Theta is taken from
// the theta variable when present, otherwise derived from T at the given
// pressure level (hPa). Height is read from H850, falling back to H. Fields
// absent from the file are left nil; prior winds are never set.
func (d *Dataset) ReadFields(level float64) (fronts.Fields, error) {
	f := fronts.Fields{Lat: d.Lat, Lon: d.Lon}

	var err error
	switch {
	case d.Has(VarTheta):
		if f.Theta, err = d.Grid(VarTheta); err != nil {
			return fronts.Fields{}, err
		}
	case d.Has(VarTemperature):
		temp, err := d.Grid(VarTemperature)
		if err != nil {
			return fronts.Fields{}, err
		}
		if f.Theta, err = fronts.PotentialTemperatureAtLevel(temp, level); err != nil {
			return fronts.Fields{}, err
		}
	}

	for _, name := range []string{VarHeight850, VarHeight} {
		if d.Has(name) {
			if f.H850, err = d.Grid(name); err != nil {
				return fronts.Fields{}, err
			}
			break
		}
	}

	if f.U, f.V, err = d.Winds(); err != nil && !errors.Is(err, ErrMissingVariable) {
		return fronts.Fields{}, err
	}
	return f, nil
}

// Winds reads the U and V grids.
func (d *Dataset) Winds() (u, v *mat.Dense, err error) {
	if u, err = d.Grid(VarU); err != nil {
		return nil, nil, err
	}
	if v, err = d.Grid(VarV); err != nil {
		return nil, nil, err
	}
	return u, v, nil
}
