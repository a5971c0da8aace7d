package parser

import (
	"context"
	"io"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/tidwall/gjson"
)

// JSONParser разбирает выгрузку сервера ({value:[...]}), GeoJSON ({features:[...]}) или массив
type JSONParser struct {
	base
}

func (p *JSONParser) Parse(ctx context.Context, r io.Reader) ([]domain.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to read json submissions")
	}
	if !gjson.ValidBytes(data) {
		return nil, apperrors.Newf(apperrors.ErrParse, "submissions are not valid json")
	}

	items := submissionItems(gjson.ParseBytes(data))

	records := make([]domain.Record, 0, len(items))
	for index, item := range items {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if !item.IsObject() {
			p.skip(index, apperrors.Newf(apperrors.ErrParse, "expected an object, got %s", item.Type))
			continue
		}

		var c collector
		if item.Get("type").String() == "Feature" {
			flattenGeoJSONFeature(&c, item)
		} else {
			flattenObject(&c, "", item)
		}

		rec := p.finalize(ctx, c.record())
		if len(rec) == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func submissionItems(root gjson.Result) []gjson.Result {
	switch {
	case root.IsArray():
		return root.Array()
	case root.Get("value").IsArray():
		return root.Get("value").Array()
	case root.Get("features").IsArray():
		return root.Get("features").Array()
	case root.IsObject():
		return []gjson.Result{root}
	}
	return nil
}

func flattenGeoJSONFeature(c *collector, feature gjson.Result) {
	if id := feature.Get("id"); id.Exists() {
		c.add("id", scalar(id))
	}
	flattenObject(c, "", feature.Get("properties"))
	if geom := feature.Get("geometry"); geom.IsObject() {
		addGeometry(c, "track", geom)
	}
}

// flattenObject обходит объект в порядке документа, склеивая путь через ":"
func flattenObject(c *collector, prefix string, obj gjson.Result) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if strings.HasPrefix(name, "__") {
			return true
		}
		path := name
		if prefix != "" {
			path = prefix + ":" + name
		}

		switch {
		case name == "coordinates" && value.IsArray():
			addCoordinates(c, value)
		case value.IsObject() && value.Get("coordinates").Exists():
			addGeometry(c, path, value)
		case value.IsObject():
			flattenObject(c, path, value)
		case value.IsArray():
			flattenArray(c, path, value)
		default:
			c.add(path, scalar(value))
		}
		return true
	})
}

// flattenArray: повторяющиеся группы обходятся по очереди, массив значений склеивается пробелом
func flattenArray(c *collector, path string, arr gjson.Result) {
	var values []string
	for _, item := range arr.Array() {
		if item.IsObject() {
			flattenObject(c, path, item)
			continue
		}
		if s := scalar(item); s != "" {
			values = append(values, s)
		}
	}
	if len(values) > 0 {
		c.add(path, strings.Join(values, " "))
	}
}

// addGeometry разбирает GeoJSON геометрию: точка даёт lat/lon, линия - значение "lat lon;lat lon"
func addGeometry(c *collector, path string, geom gjson.Result) {
	coords := geom.Get("coordinates")
	switch geom.Get("type").String() {
	case "LineString":
		c.add(path, joinPositions(coords.Array()))
	case "Polygon":
		rings := coords.Array()
		if len(rings) > 0 {
			c.add(path, joinPositions(rings[0].Array()))
		}
	default:
		addCoordinates(c, coords)
	}
}

func addCoordinates(c *collector, coords gjson.Result) {
	pos := coords.Array()
	if len(pos) < 2 || pos[0].IsArray() {
		return
	}
	c.add("lon", pos[0].Raw)
	c.add("lat", pos[1].Raw)
}

func joinPositions(positions []gjson.Result) string {
	parts := make([]string, 0, len(positions))
	for _, p := range positions {
		xy := p.Array()
		if len(xy) < 2 {
			continue
		}
		parts = append(parts, xy[1].Raw+" "+xy[0].Raw)
	}
	return strings.Join(parts, ";")
}

func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.Number:
		return v.Raw
	default:
		return v.String()
	}
}
