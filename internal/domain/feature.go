package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/paulmach/orb"
)

// TimestampLayout - формат времени в OSM XML
const TimestampLayout = "2006-01-02T15:04:05Z"

// Reserved attribute names that go to Attrs instead of Tags
var ReservedAttrs = map[string]struct{}{
	"id":        {},
	"timestamp": {},
	"lat":       {},
	"lon":       {},
	"uid":       {},
	"user":      {},
	"version":   {},
	"action":    {},
}

var (
	ErrMissingCoordinates = errors.New("node has no coordinates")
	ErrEmptyWay           = errors.New("way has no node references")
)

// Kind - тип OSM объекта
type Kind int

const (
	KindNode Kind = iota
	KindWay
)

func (k Kind) String() string {
	if k == KindWay {
		return "way"
	}
	return "node"
}

// Attrs - атрибуты OSM объекта
type Attrs struct {
	// ID == nil означает, что id ещё не выдан; отрицательный id выдан локально
	ID        *int64
	Version   int
	Timestamp time.Time
	Lat       string
	Lon       string
	User      string
	UID       string
	Action    string
}

// Feature - каноническая запись, которую собирает assembler
type Feature struct {
	Kind    Kind
	Attrs   Attrs
	Tags    Tags
	Private Tags
	// Refs - ссылки на уже существующие узлы
	Refs []int64
	// Coords - узлы линии, которым id ещё не выдан
	Coords []orb.Point
}

func NewNode() *Feature {
	return &Feature{Kind: KindNode}
}

func NewWay() *Feature {
	return &Feature{Kind: KindWay}
}

func (f *Feature) IsWay() bool {
	return f.Kind == KindWay
}

func (f *Feature) HasCoordinates() bool {
	return f.Attrs.Lat != "" && f.Attrs.Lon != ""
}

// ID возвращает id объекта или 0, если он не задан
func (f *Feature) ID() int64 {
	if f.Attrs.ID == nil {
		return 0
	}
	return *f.Attrs.ID
}

func (f *Feature) SetID(id int64) {
	f.Attrs.ID = &id
}

// Point разбирает lat/lon в точку (lon, lat)
func (f *Feature) Point() (orb.Point, error) {
	if !f.HasCoordinates() {
		return orb.Point{}, ErrMissingCoordinates
	}
	lat, err := strconv.ParseFloat(f.Attrs.Lat, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid lat %q: %w", f.Attrs.Lat, err)
	}
	lon, err := strconv.ParseFloat(f.Attrs.Lon, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid lon %q: %w", f.Attrs.Lon, err)
	}
	return orb.Point{lon, lat}, nil
}

// Validate проверяет, что объект можно записать
func (f *Feature) Validate() error {
	if f.IsWay() {
		if len(f.Refs) == 0 && len(f.Coords) == 0 {
			return ErrEmptyWay
		}
		return nil
	}
	if !f.HasCoordinates() {
		return ErrMissingCoordinates
	}
	return nil
}

// Clone возвращает глубокую копию объекта
func (f *Feature) Clone() *Feature {
	out := &Feature{
		Kind:    f.Kind,
		Attrs:   f.Attrs,
		Tags:    f.Tags.Clone(),
		Private: f.Private.Clone(),
	}
	if f.Attrs.ID != nil {
		out.SetID(*f.Attrs.ID)
	}
	if f.Refs != nil {
		out.Refs = append([]int64(nil), f.Refs...)
	}
	if f.Coords != nil {
		out.Coords = append([]orb.Point(nil), f.Coords...)
	}
	return out
}

// Properties объединяет публичные и приватные теги
func (f *Feature) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(f.Tags)+len(f.Private))
	for _, t := range f.Tags {
		props[t.Key] = t.Value
	}
	for _, t := range f.Private {
		props[t.Key] = t.Value
	}
	return props
}
