package geojson

import (
	"io"
	"os"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

var unescaper = strings.NewReplacer("&apos;", "'")

// Writer копит точки в памяти и пишет FeatureCollection при Close
type Writer struct {
	out    io.Writer
	file   io.Closer
	fc     *geojson.FeatureCollection
	closed bool
	logger *zap.Logger
}

func NewWriter(w io.Writer, logger *zap.Logger) *Writer {
	return &Writer{
		out:    w,
		fc:     geojson.NewFeatureCollection(),
		logger: logger,
	}
}

// Create открывает файл сразу, чтобы ошибка доступа всплыла до обработки сабмитов
func Create(path string, logger *zap.Logger) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to create %s", path)
	}
	w := NewWriter(file, logger)
	w.file = file
	return w, nil
}

// Write добавляет узел; линии и объекты без координат пропускаются
func (w *Writer) Write(f *domain.Feature) error {
	if f.IsWay() {
		w.logger.Warn("Skipping way in GeoJSON output", zap.Int64("id", f.ID()))
		return nil
	}
	pt, err := f.Point()
	if err != nil {
		w.logger.Warn("Skipping feature without coordinates", zap.Int64("id", f.ID()), zap.Error(err))
		return nil
	}

	feature := geojson.NewFeature(pt)
	if f.Attrs.ID != nil {
		feature.ID = *f.Attrs.ID
	}
	for _, t := range f.Tags {
		feature.Properties[t.Key] = unescaper.Replace(t.Value)
	}
	for _, t := range f.Private {
		feature.Properties[t.Key] = unescaper.Replace(t.Value)
	}
	w.fc.Append(feature)
	return nil
}

// Len возвращает количество накопленных точек
func (w *Writer) Len() int {
	return len(w.fc.Features)
}

// Close пишет коллекцию; повторный вызов ничего не делает
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	data, err := w.fc.MarshalJSON()
	if err == nil {
		_, err = w.out.Write(append(data, '\n'))
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to write geojson")
	}
	return nil
}
