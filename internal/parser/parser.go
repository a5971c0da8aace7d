package parser

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/xform"
	"go.uber.org/zap"
)

// Parser превращает выгрузку сабмитов в плоские записи, сохраняя порядок
type Parser interface {
	Parse(ctx context.Context, r io.Reader) ([]domain.Record, error)
}

// Options - общие зависимости парсеров
type Options struct {
	Mapping *xform.Mapping
	Schema  *domain.FormSchema
	Sticky  repository.StickyRepository
}

// New создаёт парсер для формата csv, json или xml
func New(format string, opts Options, logger *zap.Logger) (Parser, error) {
	b := newBase(opts, logger)
	switch strings.ToLower(format) {
	case domain.FormatCSV:
		return &CSVParser{base: b}, nil
	case domain.FormatJSON, "geojson":
		return &JSONParser{base: b}, nil
	case domain.FormatXML:
		return &XMLParser{base: b}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInput, "unsupported submission format %q", format)
	}
}

// DetectFormat определяет формат по расширению файла
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return domain.FormatCSV
	case ".json", ".geojson":
		return domain.FormatJSON
	case ".xml", ".instance":
		return domain.FormatXML
	default:
		return ""
	}
}

// Basename returns the last segment of a group path, split on "-" first and then on ":".
func Basename(key string) string {
	if i := strings.LastIndex(key, "-"); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.LastIndex(key, ":"); i >= 0 {
		key = key[i+1:]
	}
	return key
}

type base struct {
	mapping *xform.Mapping
	schema  *domain.FormSchema
	sticky  repository.StickyRepository
	logger  *zap.Logger
}

func newBase(opts Options, logger *zap.Logger) base {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = xform.Default()
	}
	sticky := opts.Sticky
	if sticky == nil {
		sticky = NewMemoryStickyStore()
	}
	return base{
		mapping: mapping,
		schema:  opts.Schema,
		sticky:  sticky,
		logger:  logger,
	}
}

// fieldName приводит basename к имени поля записи
func fieldName(basename string) string {
	switch strings.ToLower(basename) {
	case "latitude":
		return "lat"
	case "longitude":
		return "lon"
	}
	return basename
}

// collector собирает одну запись
type collector struct {
	rec       domain.Record
	warmupLat string
	warmupLon string
}

func (c *collector) add(rawKey, value string) {
	lower := strings.ToLower(rawKey)
	switch {
	case strings.HasPrefix(lower, "warmup-latitude") || lower == "warmup:latitude":
		c.warmupLat = value
		return
	case strings.HasPrefix(lower, "warmup-longitude") || lower == "warmup:longitude":
		c.warmupLon = value
		return
	}
	c.rec.Set(fieldName(Basename(rawKey)), value)
}

func (c *collector) record() domain.Record {
	if c.rec.Value("lat") == "" && c.warmupLat != "" {
		c.rec.Set("lat", c.warmupLat)
	}
	if c.rec.Value("lon") == "" && c.warmupLon != "" {
		c.rec.Set("lon", c.warmupLon)
	}
	return c.rec
}

// finalize применяет sticky поля, затем убирает пустые и игнорируемые поля
func (b *base) finalize(ctx context.Context, rec domain.Record) domain.Record {
	out := make(domain.Record, 0, len(rec))
	for _, p := range rec {
		value := strings.TrimSpace(p.Value)
		if b.schema.IsSticky(p.Key) {
			value = b.applySticky(ctx, p.Key, value)
		}
		if value == "" || b.mapping.IsIgnored(p.Key) {
			continue
		}
		out.Set(p.Key, value)
	}
	return out
}

func (b *base) applySticky(ctx context.Context, field, value string) string {
	key := strings.ToLower(field)
	if value != "" {
		if err := b.sticky.Set(ctx, key, value); err != nil {
			b.logger.Warn("Failed to save sticky value", zap.String("field", key), zap.Error(err))
		}
		return value
	}

	prev, ok, err := b.sticky.Get(ctx, key)
	if err != nil {
		b.logger.Warn("Failed to load sticky value", zap.String("field", key), zap.Error(err))
		return value
	}
	if ok {
		return prev
	}
	return value
}

// skip логирует запись, которую не удалось разобрать
func (b *base) skip(index int, err error) {
	perr := apperrors.Wrap(apperrors.ErrParse, err, "submission %d", index)
	b.logger.Warn("Skipping submission", zap.Int("index", index), zap.Error(perr))
}
