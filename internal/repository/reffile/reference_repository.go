package reffile

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"
)

// entry - проиндексированный объект эталонного файла
type entry struct {
	ref   *domain.ReferenceFeature
	bound orb.Bound
	area  float64
}

// referenceRepository - эталонный GeoJSON, загруженный в память один раз
type referenceRepository struct {
	byID      map[int64]*entry
	entries   []*entry
	buildings []*entry
	logger    *zap.Logger
}

// Load читает GeoJSON FeatureCollection; clip (если задан) отбрасывает объекты вне полигона
func Load(path string, clip orb.Geometry, logger *zap.Logger) (repository.ReferenceRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInput, err, "failed to read reference %s", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInput, err, "invalid reference geojson %s", path)
	}

	repo := newRepository(fc, clip, logger)
	logger.Info("Reference file loaded",
		zap.String("path", path),
		zap.Int("features", len(repo.entries)),
		zap.Int("buildings", len(repo.buildings)),
		zap.Int("clipped", len(fc.Features)-len(repo.entries)),
	)
	return repo, nil
}

func newRepository(fc *geojson.FeatureCollection, clip orb.Geometry, logger *zap.Logger) *referenceRepository {
	repo := &referenceRepository{
		byID:   make(map[int64]*entry),
		logger: logger,
	}

	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if clip != nil && !containsAll(clip, f.Geometry) {
			continue
		}

		ref := &domain.ReferenceFeature{
			ID:       featureID(f),
			Version:  featureVersion(f.Properties),
			Tags:     featureTags(f.Properties),
			Geometry: f.Geometry,
		}
		e := &entry{ref: ref, bound: f.Geometry.Bound()}
		if poly, ok := ref.Polygon(); ok {
			e.area = planar.Area(poly)
			if ref.IsBuilding() {
				repo.buildings = append(repo.buildings, e)
			}
		}

		repo.entries = append(repo.entries, e)
		if ref.ID != 0 {
			repo.byID[ref.ID] = e
		}
	}

	sort.SliceStable(repo.buildings, func(i, j int) bool {
		return repo.buildings[i].area < repo.buildings[j].area
	})
	return repo
}

func (r *referenceRepository) GetByID(_ context.Context, id int64) (*domain.ReferenceFeature, error) {
	if e, ok := r.byID[id]; ok {
		return e.ref, nil
	}
	return nil, nil
}

func (r *referenceRepository) GetByIDs(_ context.Context, ids []int64) (map[int64]*domain.ReferenceFeature, error) {
	result := make(map[int64]*domain.ReferenceFeature, len(ids))
	for _, id := range ids {
		if e, ok := r.byID[id]; ok {
			result[id] = e.ref
		}
	}
	return result, nil
}

// FindContaining возвращает наименьшее здание, содержащее точку
func (r *referenceRepository) FindContaining(_ context.Context, pt orb.Point) (*domain.ReferenceFeature, error) {
	for _, e := range r.buildings {
		if !e.bound.Contains(pt) {
			continue
		}
		if pointInGeometry(e.ref.Geometry, pt) {
			return e.ref, nil
		}
	}
	return nil, nil
}

func (r *referenceRepository) FindNearby(_ context.Context, pt orb.Point, tolerance float64) ([]*domain.ReferenceFeature, error) {
	around := geo.NewBoundAroundPoint(pt, tolerance)

	var result []*domain.ReferenceFeature
	for _, e := range r.entries {
		if !e.bound.Intersects(around) {
			continue
		}
		if distance(e.ref.Geometry, pt) <= tolerance {
			result = append(result, e.ref)
		}
	}
	return result, nil
}

func (r *referenceRepository) Close() error {
	return nil
}

// featureID берёт id объекта или свойства id / osm_id / @id ("way/123")
func featureID(f *geojson.Feature) int64 {
	candidates := []interface{}{f.ID}
	for _, key := range []string{"osm_id", "id", "@id"} {
		candidates = append(candidates, f.Properties[key])
	}

	for _, c := range candidates {
		switch v := c.(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		case int:
			return int64(v)
		case string:
			if i := strings.LastIndex(v, "/"); i >= 0 {
				v = v[i+1:]
			}
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}

func featureVersion(props geojson.Properties) int {
	for _, key := range []string{"version", "@version"} {
		switch v := props[key].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

var metaKeys = map[string]struct{}{
	"id": {}, "osm_id": {}, "@id": {}, "version": {}, "@version": {},
	"timestamp": {}, "@timestamp": {}, "user": {}, "@user": {}, "uid": {}, "@uid": {},
	"changeset": {}, "@changeset": {}, "tags": {},
}

// featureTags собирает теги из properties или из вложенного объекта tags
func featureTags(props geojson.Properties) domain.Tags {
	source := map[string]interface{}(props)
	nested, hasNested := props["tags"].(map[string]interface{})
	if hasNested {
		source = nested
	}

	keys := make([]string, 0, len(source))
	for k := range source {
		if _, meta := metaKeys[k]; meta && !hasNested {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make(domain.Tags, 0, len(keys))
	for _, k := range keys {
		switch v := source[k].(type) {
		case nil:
		case string:
			tags.Set(k, v)
		default:
			tags.Set(k, fmt.Sprint(v))
		}
	}
	return tags
}

func pointInGeometry(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	}
	return false
}

// containsAll проверяет, что все вершины геометрии лежат внутри clip
func containsAll(clip orb.Geometry, g orb.Geometry) bool {
	inside := true
	visit(g, func(pt orb.Point) {
		if inside && !pointInGeometry(clip, pt) {
			inside = false
		}
	})
	return inside
}

// distance - расстояние в метрах до ближайшей вершины (0 внутри полигона)
func distance(g orb.Geometry, pt orb.Point) float64 {
	if pointInGeometry(g, pt) {
		return 0
	}
	best := -1.0
	visit(g, func(v orb.Point) {
		if d := geo.Distance(v, pt); best < 0 || d < best {
			best = d
		}
	})
	if best < 0 {
		return math.Inf(1)
	}
	return best
}

func visit(g orb.Geometry, fn func(orb.Point)) {
	switch geom := g.(type) {
	case orb.Point:
		fn(geom)
	case orb.MultiPoint:
		for _, p := range geom {
			fn(p)
		}
	case orb.LineString:
		for _, p := range geom {
			fn(p)
		}
	case orb.Ring:
		for _, p := range geom {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range geom {
			visit(ls, fn)
		}
	case orb.Polygon:
		for _, ring := range geom {
			visit(ring, fn)
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			visit(poly, fn)
		}
	case orb.Collection:
		for _, c := range geom {
			visit(c, fn)
		}
	}
}
