package main

import (
	"encoding/json"
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/spf13/cobra"
)

var planOpts struct {
	aoi     string
	zooms   string
	jsonfmt bool
}

func init() {
	rootCmd.AddCommand(planCmd)

	flags := planCmd.Flags()
	flags.StringVarP(&planOpts.aoi, "aoi", "a", "", "bbox minLon,minLat,maxLon,maxLat or GeoJSON file")
	flags.StringVarP(&planOpts.zooms, "zooms", "z", "", "zoom levels: 12, 10-14 or 10,12,14")
	flags.BoolVarP(&planOpts.jsonfmt, "json", "j", false, "format plan in JSON")

	_ = planCmd.MarkFlagRequired("aoi")
	_ = planCmd.MarkFlagRequired("zooms")
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Count the tiles covering an area without downloading",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		// план не качает тайлы, клиент не нужен
		uc := usecase.NewBasemapUseCase(nil, cfg.Basemap, log)
		plan, err := uc.Plan(dto.TilePlanRequest{AOI: planOpts.aoi, Zooms: planOpts.zooms})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if planOpts.jsonfmt {
			b, err := json.Marshal(plan)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}

		fmt.Fprintf(out, "BoundingBox: %.6f,%.6f,%.6f,%.6f\n",
			plan.BBox.MinLon, plan.BBox.MinLat, plan.BBox.MaxLon, plan.BBox.MaxLat)
		for _, z := range plan.Zooms {
			fmt.Fprintf(out, "Zoom %d: %s\n", z, humanize.Comma(int64(plan.PerZoom[z])))
		}
		fmt.Fprintf(out, "Total: %s\n", humanize.Comma(int64(plan.Total)))
		return nil
	},
}
