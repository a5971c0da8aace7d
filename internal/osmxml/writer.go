package osmxml

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"go.uber.org/zap"
)

const (
	prologue         = "<?xml version='1.0' encoding='UTF-8'?>\n"
	DefaultGenerator = "fieldmap-service 0.1"
	ModifiedNote     = "Do not upload this without validation!"
)

// Writer пишет OSM XML поток. Счётчик синтетических id живёт только внутри writer.
type Writer struct {
	out       *bufio.Writer
	file      io.Closer
	generator string
	nextID    int64
	now       func() time.Time
	closed    bool
	written   int
	logger    *zap.Logger
}

type Option func(*Writer)

func WithGenerator(generator string) Option {
	return func(w *Writer) {
		if generator != "" {
			w.generator = generator
		}
	}
}

// WithStartID задаёт первый синтетический id (по умолчанию -1)
func WithStartID(id int64) Option {
	return func(w *Writer) {
		w.nextID = id
	}
}

// WithStartBelow начинает выдачу id ниже самого малого отрицательного id среди
// features (включая ссылки линий), чтобы новые узлы не совпали с уже выданными
func WithStartBelow(features []*domain.Feature) Option {
	return func(w *Writer) {
		if lowest := LowestID(features); lowest-1 < w.nextID {
			w.nextID = lowest - 1
		}
	}
}

// LowestID - наименьший отрицательный id среди объектов и их ссылок, 0 если таких нет
func LowestID(features []*domain.Feature) int64 {
	var min int64
	for _, f := range features {
		if id := f.ID(); id < min {
			min = id
		}
		for _, ref := range f.Refs {
			if ref < min {
				min = ref
			}
		}
	}
	return min
}

func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// NewWriter пишет пролог и открывающий тег <osm> в w
func NewWriter(w io.Writer, logger *zap.Logger, opts ...Option) (*Writer, error) {
	writer := &Writer{
		out:       bufio.NewWriter(w),
		generator: DefaultGenerator,
		nextID:    -1,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(writer)
	}

	writer.out.WriteString(prologue)
	writer.out.WriteString(`<osm version="0.6" generator="` + escape(writer.generator) + "\">\n")
	if err := writer.out.Flush(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to write osm header")
	}
	return writer, nil
}

// Create открывает файл и возвращает writer, который закроет его в Close
func Create(path string, logger *zap.Logger, opts ...Option) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to create %s", path)
	}
	w, err := NewWriter(file, logger, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.file = file
	return w, nil
}

// Write пишет узел или линию; некорректный объект пропускается с предупреждением
func (w *Writer) Write(f *domain.Feature, modified bool) error {
	if f.IsWay() {
		return w.WriteWay(f, modified)
	}
	return w.WriteNode(f, modified)
}

func (w *Writer) WriteNode(f *domain.Feature, modified bool) error {
	if !f.HasCoordinates() {
		w.logger.Warn("Skipping node without coordinates", zap.Int64("id", f.ID()))
		return nil
	}

	id := w.assignID(f.Attrs.ID)
	w.openElement("node", f.Attrs, id, modified, true)
	w.writeBody("node", f.Tags, modified)
	return w.flush()
}

// WriteWay пишет сначала узлы для Coords, затем саму линию со ссылками <nd>
func (w *Writer) WriteWay(f *domain.Feature, modified bool) error {
	if len(f.Refs) == 0 && len(f.Coords) == 0 {
		w.logger.Warn("Skipping way without nodes", zap.Int64("id", f.ID()))
		return nil
	}

	refs := append([]int64(nil), f.Refs...)
	coords := f.Coords
	closed := len(coords) > 2 && coords[0] == coords[len(coords)-1]
	if closed {
		coords = coords[:len(coords)-1]
	}

	minted := make([]int64, 0, len(coords))
	for _, pt := range coords {
		id := w.assignID(nil)
		attrs := domain.Attrs{
			Version:   1,
			Timestamp: f.Attrs.Timestamp,
			Lat:       strconv.FormatFloat(pt[1], 'f', -1, 64),
			Lon:       strconv.FormatFloat(pt[0], 'f', -1, 64),
		}
		w.openElement("node", attrs, id, false, true)
		w.out.WriteString("/>\n")
		minted = append(minted, id)
	}
	refs = append(refs, minted...)
	if closed && len(minted) > 0 {
		refs = append(refs, minted[0])
	}

	id := w.assignID(f.Attrs.ID)
	w.openElement("way", f.Attrs, id, modified, false)
	w.out.WriteString(">\n")
	for _, ref := range refs {
		w.out.WriteString(`    <nd ref="` + strconv.FormatInt(ref, 10) + "\"/>\n")
	}
	w.writeTags(f.Tags, modified)
	w.out.WriteString("  </way>\n")
	return w.flush()
}

// Close пишет </osm> и закрывает файл; повторный вызов ничего не делает
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.out.WriteString("</osm>\n")
	err := w.out.Flush()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to close osm output")
	}
	w.logger.Debug("OSM XML written", zap.Int("elements", w.written))
	return nil
}

// assignID выдаёт следующий синтетический id, если id не задан
func (w *Writer) assignID(id *int64) int64 {
	if id != nil {
		if *id < 0 && *id <= w.nextID {
			w.nextID = *id - 1
		}
		return *id
	}
	next := w.nextID
	w.nextID--
	return next
}

func (w *Writer) openElement(name string, attrs domain.Attrs, id int64, modified, withCoords bool) {
	var b strings.Builder
	b.WriteString("  <")
	b.WriteString(name)
	if modified {
		writeAttr(&b, "action", "modify")
	} else if attrs.Action != "" {
		writeAttr(&b, "action", attrs.Action)
	}
	writeAttr(&b, "id", strconv.FormatInt(id, 10))

	version := attrs.Version
	if version <= 0 {
		version = 1
	}
	writeAttr(&b, "version", strconv.Itoa(version))

	if withCoords {
		writeAttr(&b, "lat", attrs.Lat)
		writeAttr(&b, "lon", attrs.Lon)
	}

	ts := attrs.Timestamp
	if ts.IsZero() {
		ts = w.now()
	}
	writeAttr(&b, "timestamp", ts.UTC().Format(domain.TimestampLayout))

	if attrs.UID != "" {
		writeAttr(&b, "uid", attrs.UID)
	}
	if attrs.User != "" {
		writeAttr(&b, "user", attrs.User)
	}
	w.out.WriteString(b.String())
	w.written++
}

func (w *Writer) writeBody(name string, tags domain.Tags, modified bool) {
	if len(tags) == 0 && !modified {
		w.out.WriteString("/>\n")
		return
	}
	w.out.WriteString(">\n")
	w.writeTags(tags, modified)
	w.out.WriteString("  </" + name + ">\n")
}

func (w *Writer) writeTags(tags domain.Tags, modified bool) {
	for _, t := range tags {
		if modified && t.Key == "note" {
			continue
		}
		w.writeTag(t.Key, t.Value)
	}
	if modified {
		w.writeTag("note", ModifiedNote)
	}
}

func (w *Writer) writeTag(k, v string) {
	w.out.WriteString(`    <tag k="` + escape(k) + `" v="` + escape(v) + "\"/>\n")
}

func (w *Writer) flush() error {
	if err := w.out.Flush(); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to write osm element")
	}
	return nil
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(escape(value))
	b.WriteByte('"')
}
