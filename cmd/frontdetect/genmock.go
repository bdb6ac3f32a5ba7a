package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/storm-front-detection/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-front-detection/internal/domain"
	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/synth"
)

type genmockCmd struct {
	Out         string `help:"Snapshot JSON fixture to write." required:"" type:"path"`
	ID          string `help:"Snapshot ID." default:"synthetic-frontal-zone"`
	ValidTime   string `help:"Valid time, RFC 3339." default:"2024-04-26T00:00:00Z"`
	Temperature bool   `help:"Store temperature and a pressure level instead of theta."`

	NetCDF      string `name:"netcdf" help:"Also write the current fields to this NetCDF file." type:"path"`
	PriorNetCDF string `name:"prior-netcdf" help:"Also write the prior winds to this NetCDF file." type:"path"`
}

func (c *genmockCmd) Run(logger *slog.Logger) error {
	validTime, err := time.Parse(time.RFC3339, c.ValidTime)
	if err != nil {
		return fmt.Errorf("invalid valid time: %w", err)
	}

	o := synth.DefaultOptions()
	s := synth.FrontalZone(o)

	snap := domain.NewSnapshot(c.ID, validTime.UTC(), fronts.Fields{
		Lat: s.Lat, Lon: s.Lon,
		Theta: s.Theta, H850: s.H850,
		U: s.U, V: s.V,
		UPrior: s.UPrior, VPrior: s.VPrior,
	})
	if c.Temperature {
		level := o.PressureLevel
		snap.Theta = nil
		snap.Temperature = domain.ValuesOf(s.Temperature)
		snap.PressureLevel = &level
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	logger.Info("snapshot written", "path", c.Out, "rows", snap.Rows, "cols", snap.Cols)

	attrs := map[string]string{"title": "synthetic frontal zone", "valid_time": validTime.UTC().Format(time.RFC3339)}
	if c.NetCDF != "" {
		vars := []netcdf.Variable{
			{Name: netcdf.VarTemperature, Description: "air temperature", Units: "K", Data: s.Temperature},
			{Name: netcdf.VarHeight850, Description: "850 hPa geopotential height", Units: "m", Data: s.H850},
			{Name: netcdf.VarU, Description: "850 hPa eastward wind", Units: "m s-1", Data: s.U},
			{Name: netcdf.VarV, Description: "850 hPa northward wind", Units: "m s-1", Data: s.V},
		}
		if err := netcdf.Write(c.NetCDF, o.Lats, o.Lons, vars, attrs); err != nil {
			return err
		}
		logger.Info("netcdf snapshot written", "path", c.NetCDF)
	}
	if c.PriorNetCDF != "" {
		vars := []netcdf.Variable{
			{Name: netcdf.VarU, Description: "850 hPa eastward wind", Units: "m s-1", Data: s.UPrior},
			{Name: netcdf.VarV, Description: "850 hPa northward wind", Units: "m s-1", Data: s.VPrior},
		}
		if err := netcdf.Write(c.PriorNetCDF, o.Lats, o.Lons, vars, attrs); err != nil {
			return err
		}
		logger.Info("netcdf prior snapshot written", "path", c.PriorNetCDF)
	}
	return nil
}
