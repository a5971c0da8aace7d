package main

import (
	"github.com/fieldmap-service/internal/config"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "fieldmap",
	Short:         "Field survey to OSM conversion and offline basemaps",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("xforms", "", "YAML tag mapping file (embedded rules when empty)")
	flags.String("xlsform", "", "XLSForm workbook with field types")

	bindFlags(flags, map[string]string{
		"log-level": "LOG_LEVEL",
		"xforms":    "XFORMS_PATH",
		"xlsform":   "XLSFORM_PATH",
	})
}

// bindFlags связывает флаги с ключами конфигурации: флаг, заданный явно,
// перекрывает .env и окружение.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// setup читает конфигурацию и создает логгер в stderr
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, "stderr")
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// exitCode: 2 - ошибка во входных данных, 1 - все остальное
func exitCode(err error) int {
	if apperrors.CodeOf(err) == apperrors.CodeInput {
		return 2
	}
	return 1
}
