package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/fieldmap-service/internal/app"
	"github.com/fieldmap-service/internal/repository/postgresosm"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/spf13/cobra"
)

var conflateOutput string

func init() {
	rootCmd.AddCommand(conflateCmd)

	flags := conflateCmd.Flags()
	flags.StringVarP(&conflateOutput, "output", "o", "", "output base name (default: <input>-conflated)")
	flags.StringP("reference", "r", "", `reference GeoJSON file or "postgres"`)
	flags.StringP("boundary", "b", "", "AOI polygon (GeoJSON file) limiting the reference")
	flags.Float64("tolerance", 0, "duplicate search radius in meters")
	flags.String("merge", "", "merge policy (lowest, new, existing)")
	flags.Int("workers", 0, "conflation workers (default: number of CPUs)")
}

var conflateCmd = &cobra.Command{
	Use:   "conflate <input>",
	Short: "Match new features against existing OSM data",
	Long: "Conflate a converted .osm file or a submissions export against a reference\n" +
		"snapshot (GeoJSON file or PostGIS) and write <output>.osm and <output>.geojson.",
	Args: cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"reference": "CONFLATION_REFERENCE",
			"boundary":  "CONFLATION_BOUNDARY",
			"tolerance": "CONFLATION_TOLERANCE",
			"merge":     "CONFLATION_MERGE_POLICY",
			"workers":   "CONFLATION_WORKERS",
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

		var db *postgresosm.DB
		if strings.EqualFold(cfg.Conflation.Reference, usecase.ReferencePostgres) {
			if db, err = postgresosm.New(&cfg.OSMDB, log); err != nil {
				return err
			}
			defer db.Close()
		}

		convertUC, err := app.NewConvertUseCase(cfg, nil, nil, log)
		if err != nil {
			return err
		}
		uc := usecase.NewConflateUseCase(convertUC, db, cfg.Conflation, log)

		result, err := uc.ConflateFile(ctx, dto.ConflateRequest{
			Input:       args[0],
			Reference:   cfg.Conflation.Reference,
			Boundary:    cfg.Conflation.Boundary,
			OutBase:     conflateOutput,
			Tolerance:   cfg.Conflation.Tolerance,
			MergePolicy: cfg.Conflation.MergePolicy,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Features: %s\n", humanize.Comma(int64(result.Features)))
		fmt.Fprintf(out, "ID matches: %s\n", humanize.Comma(int64(result.IDMatches)))
		fmt.Fprintf(out, "Buildings: %s\n", humanize.Comma(int64(result.Buildings)))
		fmt.Fprintf(out, "Duplicates: %s\n", humanize.Comma(int64(result.Duplicates)))
		fmt.Fprintf(out, "Failed: %s\n", humanize.Comma(int64(result.Failed)))
		fmt.Fprintf(out, "OSM: %s\n", result.OSMPath)
		fmt.Fprintf(out, "GeoJSON: %s\n", result.GeoJSONPath)
		return nil
	},
}
