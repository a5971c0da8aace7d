package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	humanize "github.com/dustin/go-humanize"
	"github.com/fieldmap-service/internal/app"
	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/fieldmap-service/internal/infrastructure/central"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/repository/cache"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var convertOpts struct {
	output  string
	project int
	form    string
	format  string
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()
	flags.StringVarP(&convertOpts.output, "output", "o", "", "output base name (default: input without extension)")
	flags.IntVar(&convertOpts.project, "project", 0, "survey server project id (fetch instead of reading a file)")
	flags.StringVar(&convertOpts.form, "form", "", "survey server form id")
	flags.StringVar(&convertOpts.format, "format", "", "remote export format (csv, json)")
	flags.String("central-url", "", "survey server base URL")
	flags.String("sticky", "", "sticky field scope (run, persistent)")
}

var convertCmd = &cobra.Command{
	Use:   "convert [<submissions file>]",
	Short: "Convert survey submissions to OSM XML and GeoJSON",
	Long: "Convert a CSV, JSON or XML submissions export, or a form fetched from the survey\n" +
		"server, into <output>.osm and <output>.geojson using the YAML tag mapping.",
	Args: cobra.MaximumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"central-url": "CENTRAL_URL",
			"sticky":      "STICKY_SCOPE",
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

		var redis *cache.Redis
		if cfg.Redis.Enabled {
			if redis, err = cache.NewRedis(&cfg.Redis, log); err != nil {
				log.Warn("Redis unavailable, sticky values are kept for this run only", zap.Error(err))
				redis = nil
			} else {
				defer redis.Close()
			}
		}

		var survey repository.SurveyRepository
		if cfg.Central.URL != "" {
			survey = central.NewCentralClient(&cfg.Central, log)
		}

		uc, err := app.NewConvertUseCase(cfg, redis, survey, log)
		if err != nil {
			return err
		}

		var result *dto.ConvertResult
		switch {
		case convertOpts.project > 0:
			if convertOpts.form == "" || convertOpts.output == "" {
				return apperrors.Newf(apperrors.ErrInput, "--form and --output are required with --project")
			}
			result, err = uc.ConvertRemote(ctx, dto.RemoteConvertRequest{
				ProjectID: convertOpts.project,
				FormID:    convertOpts.form,
				Format:    convertOpts.format,
				OutBase:   convertOpts.output,
			})
		case len(args) == 1:
			result, err = uc.ConvertFile(ctx, args[0], convertOpts.output)
		default:
			return apperrors.Newf(apperrors.ErrInput, "submissions file or --project is required")
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Records: %s\n", humanize.Comma(int64(result.Records)))
		fmt.Fprintf(out, "Features: %s\n", humanize.Comma(int64(result.Features)))
		fmt.Fprintf(out, "Skipped: %s\n", humanize.Comma(int64(result.Skipped)))
		fmt.Fprintf(out, "OSM: %s\n", result.OSMPath)
		fmt.Fprintf(out, "GeoJSON: %s\n", result.GeoJSONPath)
		return nil
	},
}
