package netcdf

import (
	"fmt"
	"os"

	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"
)

// Variable is one lat/lon grid to write.
type Variable struct {
	Name        string
	Description string
	Units       string
	Data        mat.Matrix
}

// Write creates a NetCDF classic file at path holding the lat and lon axes
// and each variable on the (lat, lon) grid. Missing cells are written as NaN
// and flagged by a NaN _FillValue.
func Write(path string, lats, lons []float64, vars []Variable, attrs map[string]string) error {
	for _, v := range vars {
		r, c := v.Data.Dims()
		if r != len(lats) || c != len(lons) {
			return fmt.Errorf("variable %s is %dx%d, grid is %dx%d: %w", v.Name, r, c, len(lats), len(lons), geodesy.ErrShapeMismatch)
		}
	}

	h := cdf.NewHeader([]string{"lat", "lon"}, []int{len(lats), len(lons)})
	for k, v := range attrs {
		h.AddAttribute("", k, v)
	}
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	for _, v := range vars {
		h.AddVariable(v.Name, []string{"lat", "lon"}, []float64{0})
		if v.Description != "" {
			h.AddAttribute(v.Name, "description", v.Description)
		}
		if v.Units != "" {
			h.AddAttribute(v.Name, "units", v.Units)
		}
		h.AddAttribute(v.Name, "_FillValue", []float64{geodesy.Missing})
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("write netcdf header %s: %w", path, err)
	}
	if err := writeValues(cf, "lat", lats); err != nil {
		return err
	}
	if err := writeValues(cf, "lon", lons); err != nil {
		return err
	}
	for _, v := range vars {
		if err := writeValues(cf, v.Name, geodesy.Values(mat.DenseCopyOf(v.Data))); err != nil {
			return err
		}
	}
	return f.Sync()
}

func writeValues(f *cdf.File, name string, data []float64) error {
	end := f.Header.Lengths(name)
	begin := make([]int, len(end))
	w := f.Writer(name, begin, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write netcdf variable %s: %w", name, err)
	}
	return nil
}
