// Command frontdetect runs front detection on NetCDF snapshots and generates
// synthetic test fixtures.
//
// Usage:
//
//	frontdetect genmock --out data/mock/frontal_zone.json \
//	  --netcdf current.nc --prior-netcdf prior.nc
//	frontdetect detect --input current.nc --prior prior.nc \
//	  --output fronts.nc --plot fronts.png
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type cli struct {
	LogLevel  string `help:"Log level." default:"info" enum:"debug,info,warn,error" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"text" enum:"json,text" env:"LOG_FORMAT"`

	Detect  detectCmd  `cmd:"" help:"Detect fronts in a NetCDF snapshot."`
	Genmock genmockCmd `cmd:"" help:"Write a synthetic frontal-zone snapshot."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("frontdetect"),
		kong.Description("Locate warm and cold fronts in gridded meteorological fields."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	logger := sharedobs.NewLogger(c.LogLevel, c.LogFormat)
	if err := kctx.Run(logger); err != nil {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}
