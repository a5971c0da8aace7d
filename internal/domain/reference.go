package domain

import "github.com/paulmach/orb"

// ReferenceFeature - объект из эталонного OSM снимка
type ReferenceFeature struct {
	ID       int64
	Version  int
	Tags     Tags
	Geometry orb.Geometry
}

// IsBuilding сообщает, что у объекта есть тег building
func (r *ReferenceFeature) IsBuilding() bool {
	return r.Tags.Has("building")
}

// Polygon возвращает внешнее кольцо, если геометрия площадная
func (r *ReferenceFeature) Polygon() (orb.Polygon, bool) {
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return g, len(g) > 0
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 {
			return g[0], true
		}
	}
	return nil, false
}
