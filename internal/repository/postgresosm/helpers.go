package postgresosm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// referenceRow - строка из временного представления
type referenceRow struct {
	OSMID    int64  `db:"osm_id"`
	Version  int    `db:"version"`
	TagsJSON []byte `db:"tags_json"`
	GeomJSON []byte `db:"geom_json"`
}

func (r referenceRow) toDomain() (*domain.ReferenceFeature, error) {
	geom, err := parseGeometry(r.GeomJSON)
	if err != nil {
		return nil, fmt.Errorf("osm_id %d: %w", r.OSMID, err)
	}
	return &domain.ReferenceFeature{
		ID:       r.OSMID,
		Version:  r.Version,
		Tags:     parseTags(r.TagsJSON),
		Geometry: geom,
	}, nil
}

// parseTags разбирает hstore_to_json / jsonb; ключи сортируются для стабильного порядка
func parseTags(raw []byte) domain.Tags {
	if len(raw) == 0 {
		return nil
	}

	var tmp map[string]interface{}
	if err := json.Unmarshal(raw, &tmp); err != nil {
		return nil
	}

	keys := make([]string, 0, len(tmp))
	for k := range tmp {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make(domain.Tags, 0, len(keys))
	for _, k := range keys {
		switch v := tmp[k].(type) {
		case nil:
			continue
		case string:
			tags.Set(k, v)
		default:
			tags.Set(k, fmt.Sprint(v))
		}
	}
	return tags
}

func parseGeometry(raw []byte) (orb.Geometry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}

// tagsExpr приводит колонку tags к json тексту в зависимости от её типа
func tagsExpr(udtName string) string {
	switch strings.ToLower(udtName) {
	case "hstore":
		return "COALESCE(hstore_to_json(tags), '{}'::json)::text"
	default:
		return "COALESCE(tags::jsonb, '{}'::jsonb)::text"
	}
}

// viewSQL строит CREATE TEMP VIEW, ограниченный AOI (если он задан)
func viewSQL(view, table, tags, version string, aoi orb.Geometry, predicate string) string {
	query := fmt.Sprintf(
		"CREATE OR REPLACE TEMP VIEW %s AS SELECT osm_id, %s AS version, %s AS tags_json, tags, geom FROM %s",
		view, version, tags, table,
	)
	if aoi != nil {
		query += fmt.Sprintf(" WHERE %s(geom, ST_GeomFromText('%s', %d))", predicate, wkt.MarshalString(aoi), SRID4326)
	}
	return query
}
