package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/storm-front-detection/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-front-detection/internal/adapter/plot"
	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/geodesy"
	"github.com/couchcryptid/storm-front-detection/internal/terrain"
	"gonum.org/v1/gonum/mat"
)

var errNothingDetected = errors.New("no detection method could run on the input")

type detectCmd struct {
	Input   string `help:"NetCDF snapshot to read." required:"" type:"path"`
	Prior   string `help:"NetCDF snapshot at the prior time step, for the wind shift method." type:"path"`
	Output  string `help:"NetCDF file to write front masks to." required:"" type:"path"`
	Plot    string `help:"PNG file to render the front locator and front cells to." type:"path"`
	Terrain string `help:"Constants file with surface geopotential (PHIS); clears fronts over high ground." type:"path"`

	Methods      string  `help:"Comma-separated detection methods." default:"thermal,wind_shift"`
	Level        float64 `help:"Pressure level of T in hPa, used when theta is absent." default:"850"`
	MaxElevation float64 `help:"Terrain elevation limit in meters." default:"500"`
	K1           float64 `help:"Thermal front locator threshold, K/m². Zero keeps the default."`
	K2           float64 `help:"Thermal gradient threshold, K/m. Zero keeps the default."`
	Threshold    float64 `help:"Wind shift speed change threshold, m/s. Zero keeps the default."`
}

// detected is one method's filtered output.
type detected struct {
	det    fronts.Detection
	result domain.MethodResult
}

func (c *detectCmd) Run(ctx context.Context, logger *slog.Logger) error {
	methods, err := fronts.ParseMethods(c.Methods)
	if err != nil {
		return err
	}
	detectors, err := fronts.DefaultRegistry(c.thermalParams(), c.windShiftParams()).Select(methods)
	if err != nil {
		return err
	}

	ds, err := netcdf.Open(c.Input)
	if err != nil {
		return err
	}
	defer ds.Close()

	fields, err := ds.ReadFields(c.Level)
	if err != nil {
		return err
	}
	if c.Prior != "" {
		if fields.UPrior, fields.VPrior, err = readPriorWinds(c.Prior, ds); err != nil {
			return err
		}
	}

	var elevation *mat.Dense
	if c.Terrain != "" {
		if elevation, err = loadElevation(ctx, c.Terrain, fields); err != nil {
			return err
		}
	}

	var out []detected
	for _, d := range detectors {
		if err := d.Requires(fields); err != nil {
			logger.Warn("method skipped", "method", d.Method(), "reason", err)
			continue
		}
		det, err := d.Detect(fields)
		if err != nil {
			return fmt.Errorf("detect %s: %w", d.Method(), err)
		}
		masked := 0
		if elevation != nil {
			if det, masked, err = terrain.FilterDetection(det, elevation, c.MaxElevation); err != nil {
				return fmt.Errorf("terrain filter: %w", err)
			}
		}
		result := domain.Summarize(det, fields.Lat, fields.Lon)
		result.TerrainMasked = masked
		logger.Info("fronts detected",
			"method", result.Method, "warm_cells", result.WarmCells, "cold_cells", result.ColdCells, "terrain_masked", masked)
		out = append(out, detected{det: det, result: result})
	}
	if len(out) == 0 {
		return errNothingDetected
	}

	names := make([]string, len(out))
	for i, d := range out {
		names[i] = string(d.det.Method)
	}
	attrs := map[string]string{"source": c.Input, "methods": strings.Join(names, ",")}
	if err := netcdf.Write(c.Output, ds.Lats, ds.Lons, outputVariables(out), attrs); err != nil {
		return err
	}
	logger.Info("front masks written", "path", c.Output)

	if c.Plot != "" {
		if err := renderPlot(c.Plot, fields, out); err != nil {
			return err
		}
		logger.Info("plot written", "path", c.Plot)
	}
	return nil
}

func (c *detectCmd) thermalParams() fronts.ThermalParams {
	p := fronts.DefaultThermalParams()
	if c.K1 > 0 {
		p.K1 = c.K1
	}
	if c.K2 > 0 {
		p.K2 = c.K2
	}
	return p
}

func (c *detectCmd) windShiftParams() fronts.WindShiftParams {
	p := fronts.DefaultWindShiftParams()
	if c.Threshold > 0 {
		p.Threshold = c.Threshold
	}
	return p
}

func readPriorWinds(path string, current *netcdf.Dataset) (u, v *mat.Dense, err error) {
	prior, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer prior.Close()

	if err := geodesy.CheckShape(prior.Lat, current.Lat); err != nil {
		return nil, nil, fmt.Errorf("prior snapshot %s: %w", path, err)
	}
	if u, v, err = prior.Winds(); err != nil {
		return nil, nil, fmt.Errorf("prior snapshot %s: %w", path, err)
	}
	return u, v, nil
}

func loadElevation(ctx context.Context, path string, f fronts.Fields) (*mat.Dense, error) {
	tf, err := netcdf.OpenTerrain(path)
	if err != nil {
		return nil, err
	}
	w, err := terrain.WindowOf(f.Lat, f.Lon)
	if err != nil {
		return nil, err
	}
	return tf.Elevation(ctx, w)
}

func outputVariables(out []detected) []netcdf.Variable {
	var vars []netcdf.Variable
	for _, d := range out {
		m := string(d.det.Method)
		if d.det.Warm != nil {
			vars = append(vars, netcdf.Variable{Name: m + "_warm", Description: "warm front mask", Data: d.det.Warm})
		}
		if d.det.Cold != nil {
			vars = append(vars, netcdf.Variable{Name: m + "_cold", Description: "cold front mask", Data: d.det.Cold})
		}
		if d.det.Method == fronts.MethodThermal && d.det.Diagnostic != nil {
			vars = append(vars, netcdf.Variable{Name: "tot_div", Description: "total divergence of the thermal front locator", Units: "K m-3", Data: d.det.Diagnostic})
		}
	}
	return vars
}

// renderPlot draws the first locator field available, or the first cold
// mask, with every method's front cells.
func renderPlot(path string, f fronts.Fields, out []detected) error {
	var (
		field mat.Matrix
		title string
		cells []domain.FrontCell
	)
	for _, d := range out {
		if field == nil && d.det.Diagnostic != nil {
			field, title = d.det.Diagnostic, string(d.det.Method)+" front locator"
		}
		cells = append(cells, d.result.Cells...)
	}
	if field == nil {
		field, title = out[0].det.Cold, string(out[0].det.Method)+" cold front mask"
	}

	p, err := plot.Render(f.Lat, f.Lon, field, cells, title)
	if err != nil {
		return err
	}
	return plot.SavePNG(p, path)
}
