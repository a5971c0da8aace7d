package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// BBox - прямоугольник в градусах (minLon, minLat, maxLon, maxLat)
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

func BBoxFromBound(b orb.Bound) BBox {
	return BBox{MinLon: b.Min[0], MinLat: b.Min[1], MaxLon: b.Max[0], MaxLat: b.Max[1]}
}

func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinLon, b.MinLat}, Max: orb.Point{b.MaxLon, b.MaxLat}}
}

func (b BBox) Center() orb.Point {
	return b.Bound().Center()
}

// String returns "minLon,minLat,maxLon,maxLat" with the shortest float formatting.
func (b BBox) String() string {
	parts := []string{
		strconv.FormatFloat(b.MinLon, 'f', -1, 64),
		strconv.FormatFloat(b.MinLat, 'f', -1, 64),
		strconv.FormatFloat(b.MaxLon, 'f', -1, 64),
		strconv.FormatFloat(b.MaxLat, 'f', -1, 64),
	}
	return strings.Join(parts, ",")
}

func (b BBox) Valid() error {
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return fmt.Errorf("bbox min is greater than max: %s", b)
	}
	if b.MinLon < -180 || b.MaxLon > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("bbox out of range: %s", b)
	}
	return nil
}

// TileCoord - адрес тайла в XYZ схеме (y от верхнего края)
type TileCoord struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// TMSY возвращает y в TMS схеме (от нижнего края)
func (t TileCoord) TMSY() int {
	return (1 << uint(t.Z)) - t.Y - 1
}

func (t TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// FetchReport - итог загрузки тайлов
type FetchReport struct {
	Total   int `json:"total"`
	Fetched int `json:"fetched"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *FetchReport) Add(other FetchReport) {
	r.Total += other.Total
	r.Fetched += other.Fetched
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}
