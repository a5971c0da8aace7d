package assembler

import (
	"strconv"
	"strings"
	"time"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/xform"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const eleMaxLen = 7

// Assembler собирает Feature из плоской записи сабмита
type Assembler struct {
	mapping *xform.Mapping
	schema  *domain.FormSchema
	logger  *zap.Logger
}

func New(mapping *xform.Mapping, schema *domain.FormSchema, logger *zap.Logger) *Assembler {
	if mapping == nil {
		mapping = xform.Default()
	}
	return &Assembler{
		mapping: mapping,
		schema:  schema,
		logger:  logger,
	}
}

// Assemble превращает запись в узел или линию.
// Запись без координат и без узлов линии даёт AssemblyError.
func (a *Assembler) Assemble(rec domain.Record) (*domain.Feature, error) {
	f := domain.NewNode()

	// 1. Явная геометрия "lat lon alt acc"
	if geom, ok := rec.Get("geometry"); ok {
		if fields := strings.Fields(geom); len(fields) == 4 && allNumbers(fields) {
			f.Attrs.Lat, f.Attrs.Lon = fields[0], fields[1]
		}
	}

	// 2. Поля записи
	for _, p := range rec {
		field, value := p.Key, strings.TrimSpace(p.Value)
		if value == "" || a.mapping.IsIgnored(field) {
			continue
		}
		lower := strings.ToLower(field)

		if _, reserved := domain.ReservedAttrs[lower]; reserved {
			if err := setAttr(&f.Attrs, lower, value); err != nil {
				a.logger.Debug("Ignoring invalid attribute",
					zap.String("field", field), zap.String("value", value), zap.Error(err))
			}
			continue
		}

		switch lower {
		case "geometry":
			continue
		case "username":
			a.route(f, field, "user", value)
			continue
		case "track", "geoline":
			if err := setWayNodes(f, value); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrAssembly, err, "invalid %s value", field)
			}
			continue
		}

		if a.schema.IsSelectMultiple(field) || a.mapping.IsMultiple(field) {
			for _, t := range a.mapping.ConvertMultiple(value) {
				a.route(f, field, t.Key, t.Value)
			}
			continue
		}

		for _, t := range a.mapping.ConvertValue(field, value) {
			a.route(f, field, t.Key, t.Value)
		}
	}

	// 3. ele обрезается до 7 символов
	if ele, ok := f.Tags.Get("ele"); ok && len(ele) > eleMaxLen {
		f.Tags.Set("ele", ele[:eleMaxLen])
	}

	if err := f.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAssembly, err, "ill-formed %s", f.Kind)
	}
	return f, nil
}

// route кладёт тег в private или tags в зависимости от исходного поля
func (a *Assembler) route(f *domain.Feature, field, key, value string) {
	if key == "" || value == "" {
		return
	}
	value = xform.Escape(value)
	if a.mapping.IsPrivate(field) {
		f.Private.Set(key, value)
		return
	}
	f.Tags.Set(key, value)
}

func setAttr(attrs *domain.Attrs, key, value string) error {
	switch key {
	case "id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		attrs.ID = &id
	case "version":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		attrs.Version = v
	case "timestamp":
		ts, err := parseTimestamp(value)
		if err != nil {
			return err
		}
		attrs.Timestamp = ts
	case "lat":
		attrs.Lat = value
	case "lon":
		attrs.Lon = value
	case "uid":
		attrs.UID = value
	case "user":
		attrs.User = value
	case "action":
		attrs.Action = value
	}
	return nil
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return ts.UTC(), nil
	}
	ts, err = time.Parse("2006-01-02T15:04:05", value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// setWayNodes разбирает "lat lon [alt acc];..." в координаты или "id;id" в ссылки
func setWayNodes(f *domain.Feature, value string) error {
	f.Kind = domain.KindWay
	for _, segment := range strings.Split(value, ";") {
		fields := strings.Fields(segment)
		switch len(fields) {
		case 0:
			continue
		case 1:
			ref, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil {
				return err
			}
			f.Refs = append(f.Refs, ref)
		default:
			lat, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return err
			}
			lon, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return err
			}
			f.Coords = append(f.Coords, orb.Point{lon, lat})
		}
	}
	return nil
}

func allNumbers(fields []string) bool {
	for _, s := range fields {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
	}
	return true
}
