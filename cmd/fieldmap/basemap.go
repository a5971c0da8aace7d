package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	humanize "github.com/dustin/go-humanize"
	"github.com/fieldmap-service/internal/infrastructure/tileserver"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var basemapOpts struct {
	aoi      string
	zooms    string
	output   string
	progress bool
}

func init() {
	rootCmd.AddCommand(basemapCmd)

	flags := basemapCmd.Flags()
	flags.StringVarP(&basemapOpts.aoi, "aoi", "a", "", "bbox minLon,minLat,maxLon,maxLat or GeoJSON file")
	flags.StringVarP(&basemapOpts.zooms, "zooms", "z", "", "zoom levels: 12, 10-14 or 10,12,14")
	flags.StringVarP(&basemapOpts.output, "output", "o", "", "archive file (.mbtiles, .sqlitedb, .pmtiles)")
	flags.BoolVarP(&basemapOpts.progress, "progress", "p", true, "show progress bar")
	flags.StringP("source", "s", "", "imagery source (esri, bing, google, topo, oam, custom)")
	flags.String("url", "", "custom tile URL template with {z}/{x}/{y}")
	flags.String("suffix", "", "tile image suffix (jpg, png)")
	flags.Bool("xy", false, "custom source uses {x}/{y} order")
	flags.String("tiles", "", "tile cache directory")
	flags.Int("workers", 0, "download workers (default: number of CPUs)")
	flags.Bool("append", false, "add tiles to an existing archive")

	_ = basemapCmd.MarkFlagRequired("aoi")
	_ = basemapCmd.MarkFlagRequired("zooms")
	_ = basemapCmd.MarkFlagRequired("output")
}

var basemapCmd = &cobra.Command{
	Use:   "basemap",
	Short: "Download imagery tiles for an area and pack them into an archive",
	Args:  cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"source":  "BASEMAP_SOURCE",
			"url":     "BASEMAP_CUSTOM_URL",
			"suffix":  "BASEMAP_SUFFIX",
			"xy":      "BASEMAP_XY",
			"tiles":   "BASEMAP_TILE_DIR",
			"workers": "BASEMAP_WORKERS",
			"append":  "BASEMAP_APPEND",
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		uc := usecase.NewBasemapUseCase(tileserver.NewTileClient(&cfg.Basemap, log), cfg.Basemap, log)

		plan, err := uc.Plan(dto.TilePlanRequest{AOI: basemapOpts.aoi, Zooms: basemapOpts.zooms})
		if err != nil {
			return err
		}
		log.Info("Tiles planned", zap.Int("total", plan.Total), zap.Ints("zooms", plan.Zooms))

		var progress func()
		if basemapOpts.progress {
			bar := newProgressBar(plan.Total, os.Stderr)
			defer bar.Finish()
			progress = bar.Increment
		}

		result, err := uc.Build(ctx, dto.BasemapRequest{
			AOI:    basemapOpts.aoi,
			Zooms:  basemapOpts.zooms,
			Output: basemapOpts.output,
			Append: cfg.Basemap.Append,
		}, progress)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Archive: %s (%s)\n", result.Path, result.Format)
		fmt.Fprintf(out, "Tiles: %s planned, %s fetched, %s cached, %s failed\n",
			humanize.Comma(int64(result.Report.Total)),
			humanize.Comma(int64(result.Report.Fetched)),
			humanize.Comma(int64(result.Report.Skipped)),
			humanize.Comma(int64(result.Report.Failed)))
		fmt.Fprintf(out, "Archived: %s\n", humanize.Comma(int64(result.Archived)))

		if info, err := os.Stat(result.Path); err == nil {
			fmt.Fprintf(out, "Size: %s\n", humanize.Bytes(uint64(info.Size())))
		}
		return nil
	},
}
