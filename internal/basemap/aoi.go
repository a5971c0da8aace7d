package basemap

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

// ResolveAOI принимает bbox строкой ("minLon,minLat,maxLon,maxLat", через запятую или пробел)
// или GeoJSON (Feature, FeatureCollection, голая геометрия) и возвращает охватывающий bbox.
// Для FeatureCollection берется объединение всех геометрий.
func ResolveAOI(input []byte) (domain.BBox, orb.Geometry, error) {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return domain.BBox{}, nil, apperrors.Newf(apperrors.ErrInput, "empty AOI")
	}

	if trimmed[0] == '{' {
		return resolveGeoJSON(trimmed)
	}

	bbox, err := ParseBBox(string(trimmed))
	if err != nil {
		return domain.BBox{}, nil, err
	}
	return bbox, bbox.Bound(), nil
}

// ResolveAOIFile читает AOI из файла (GeoJSON или строка bbox)
func ResolveAOIFile(path string) (domain.BBox, orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.BBox{}, nil, apperrors.Wrap(apperrors.ErrInput, err, "failed to read AOI file %s", path)
	}
	return ResolveAOI(data)
}

// ParseBBox разбирает четыре числа minLon,minLat,maxLon,maxLat
func ParseBBox(s string) (domain.BBox, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) != 4 {
		return domain.BBox{}, apperrors.Newf(apperrors.ErrInput, "bbox must have 4 numbers, got %d", len(fields))
	}

	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return domain.BBox{}, apperrors.Wrap(apperrors.ErrInput, err, "invalid bbox number %q", f)
		}
		v[i] = n
	}

	bbox := domain.BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if err := bbox.Valid(); err != nil {
		return domain.BBox{}, apperrors.Wrap(apperrors.ErrInput, err, "invalid bbox")
	}
	return bbox, nil
}

func resolveGeoJSON(data []byte) (domain.BBox, orb.Geometry, error) {
	var geoms []orb.Geometry

	switch gjson.GetBytes(data, "type").String() {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return domain.BBox{}, nil, apperrors.Wrap(apperrors.ErrInput, err, "invalid AOI FeatureCollection")
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return domain.BBox{}, nil, apperrors.Wrap(apperrors.ErrInput, err, "invalid AOI Feature")
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return domain.BBox{}, nil, apperrors.Wrap(apperrors.ErrInput, err, "invalid AOI geometry")
		}
		geoms = append(geoms, g.Geometry())
	}

	var union orb.Collection
	for _, g := range geoms {
		if g != nil && pointCount(g) > 0 {
			union = append(union, g)
		}
	}
	if len(union) == 0 {
		return domain.BBox{}, nil, apperrors.Newf(apperrors.ErrInput, "AOI geometry is empty")
	}

	var result orb.Geometry = union
	if len(union) == 1 {
		result = union[0]
	}
	return domain.BBoxFromBound(union.Bound()), result, nil
}

func pointCount(g orb.Geometry) int {
	switch g := g.(type) {
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(g)
	case orb.LineString:
		return len(g)
	case orb.Ring:
		return len(g)
	case orb.MultiLineString:
		n := 0
		for _, ls := range g {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += pointCount(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, c := range g {
			n += pointCount(c)
		}
		return n
	case orb.Bound:
		return 2
	default:
		return 0
	}
}
