// Package app собирает use cases из конфигурации; общий код для cmd/api, cmd/worker и cmd/fieldmap.
package app

import (
	"path/filepath"
	"strings"

	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/repository/cache"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/xform"
	"github.com/fieldmap-service/internal/xlsform"
	"go.uber.org/zap"
)

// Sticky scopes
const (
	StickyRun        = "run"
	StickyPersistent = "persistent"
)

// Mapping загружает YAML правила; без XFormsPath - встроенные правила
func Mapping(cfg *config.ConversionConfig, logger *zap.Logger) (*xform.Mapping, error) {
	return xform.Load(cfg.XFormsPath, logger)
}

// Schema читает XLSForm. Нечитаемая книга (INPUT_ERROR) фатальна; ошибка структуры
// формы (SCHEMA_ERROR) нет: конвертация идет без типов полей.
func Schema(cfg *config.ConversionConfig, logger *zap.Logger) (*domain.FormSchema, error) {
	if cfg.XLSFormPath == "" {
		return nil, nil
	}
	schema, err := xlsform.NewReader(logger).ReadFile(cfg.XLSFormPath)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeSchema {
			logger.Warn("Form schema unavailable, continuing without field types",
				zap.String("path", cfg.XLSFormPath), zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return schema, nil
}

// FormName - имя формы для ключа sticky значений
func FormName(cfg *config.ConversionConfig) string {
	if cfg.XLSFormPath == "" {
		return "default"
	}
	base := filepath.Base(cfg.XLSFormPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Sticky возвращает хранилище last-saved значений. nil - значения живут в пределах
// одного разбора (scope run или Redis недоступен).
func Sticky(cfg *config.ConversionConfig, redis *cache.Redis, logger *zap.Logger) repository.StickyRepository {
	if !strings.EqualFold(cfg.StickyScope, StickyPersistent) {
		return nil
	}
	if redis == nil {
		logger.Warn("Persistent sticky scope requested without Redis, falling back to run scope")
		return nil
	}
	return cache.NewStickyRepository(redis, FormName(cfg))
}

// NewConvertUseCase собирает конвертацию: правила, схема, sticky хранилище, клиент сервера сбора
func NewConvertUseCase(
	cfg *config.Config,
	redis *cache.Redis,
	survey repository.SurveyRepository,
	logger *zap.Logger,
) (*usecase.ConvertUseCase, error) {
	mapping, err := Mapping(&cfg.Conversion, logger)
	if err != nil {
		return nil, err
	}
	schema, err := Schema(&cfg.Conversion, logger)
	if err != nil {
		return nil, err
	}
	sticky := Sticky(&cfg.Conversion, redis, logger)

	return usecase.NewConvertUseCase(mapping, schema, sticky, survey, cfg.Conversion.Generator, logger), nil
}
