package basemap

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	MaxZoom = 24
	// maxMercatorLat - граница проекции Web Mercator
	maxMercatorLat = 85.05112878
	// edgeEpsilon сдвигает восточную и южную границы внутрь bbox, чтобы тайл,
	// который только касается границы, не попадал в план
	edgeEpsilon = 1e-11
)

// ParseZooms понимает "Z", "A,B,C" и "A-B" (обе границы включительно).
// Результат отсортирован и без повторов.
func ParseZooms(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, apperrors.Newf(apperrors.ErrInput, "zoom levels are required")
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, err := parseZoom(lo)
			if err != nil {
				return nil, err
			}
			b, err := parseZoom(hi)
			if err != nil {
				return nil, err
			}
			if a > b {
				a, b = b, a
			}
			for z := a; z <= b; z++ {
				seen[z] = true
			}
			continue
		}
		z, err := parseZoom(part)
		if err != nil {
			return nil, err
		}
		seen[z] = true
	}

	zooms := make([]int, 0, len(seen))
	for z := range seen {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)
	return zooms, nil
}

func parseZoom(s string) (int, error) {
	z, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInput, err, "invalid zoom %q", s)
	}
	if z < 0 || z > MaxZoom {
		return 0, apperrors.Newf(apperrors.ErrInput, "zoom %d out of range 0-%d", z, MaxZoom)
	}
	return z, nil
}

// PlanTiles перечисляет тайлы, покрывающие bbox, в порядке z, x, y
func PlanTiles(bbox domain.BBox, zooms []int) []domain.TileCoord {
	var tiles []domain.TileCoord
	for _, z := range zooms {
		minX, minY, maxX, maxY := TileRange(bbox, z)
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				tiles = append(tiles, domain.TileCoord{Z: z, X: x, Y: y})
			}
		}
	}
	return tiles
}

// CountTiles считает тайлы без выделения памяти под список
func CountTiles(bbox domain.BBox, zooms []int) int {
	total := 0
	for _, z := range zooms {
		minX, minY, maxX, maxY := TileRange(bbox, z)
		total += (maxX - minX + 1) * (maxY - minY + 1)
	}
	return total
}

// TileRange возвращает диапазон x и y тайлов на уровне z.
// y растет к югу, поэтому minY берется от северной границы.
func TileRange(bbox domain.BBox, z int) (minX, minY, maxX, maxY int) {
	zoom := maptile.Zoom(z)
	nw := maptile.At(clampPoint(orb.Point{bbox.MinLon, bbox.MaxLat}), zoom)
	se := maptile.At(clampPoint(orb.Point{bbox.MaxLon - edgeEpsilon, bbox.MinLat + edgeEpsilon}), zoom)

	last := (1 << uint(z)) - 1
	minX, minY = clampIndex(int(nw.X), last), clampIndex(int(nw.Y), last)
	maxX, maxY = clampIndex(int(se.X), last), clampIndex(int(se.Y), last)
	// вырожденный bbox на границе тайлов все равно дает один тайл
	return minX, minY, max(maxX, minX), max(maxY, minY)
}

func clampPoint(p orb.Point) orb.Point {
	p[0] = math.Max(-180, math.Min(180, p[0]))
	p[1] = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p[1]))
	return p
}

func clampIndex(v, last int) int {
	if v < 0 {
		return 0
	}
	if v > last {
		return last
	}
	return v
}
