package dto

import (
	"github.com/fieldmap-service/internal/domain"
	"github.com/google/uuid"
)

// ConvertResult - итог конвертации
type ConvertResult struct {
	Records     int    `json:"records"`
	Features    int    `json:"features"`
	Skipped     int    `json:"skipped"`
	OSMPath     string `json:"osm_path,omitempty"`
	GeoJSONPath string `json:"geojson_path,omitempty"`
}

// ConflateResult - итог конфляции
type ConflateResult struct {
	Features    int    `json:"features"`
	IDMatches   int    `json:"id_matches"`
	Buildings   int    `json:"buildings"`
	Duplicates  int    `json:"duplicates"`
	Failed      int    `json:"failed"`
	OSMPath     string `json:"osm_path"`
	GeoJSONPath string `json:"geojson_path"`
}

// TilePlanResponse - план загрузки тайлов
type TilePlanResponse struct {
	BBox    domain.BBox `json:"bbox"`
	Zooms   []int       `json:"zooms"`
	Total   int         `json:"total"`
	// PerZoom - число тайлов на каждом уровне
	PerZoom map[int]int `json:"per_zoom"`
}

// BasemapResult - итог сборки подложки
type BasemapResult struct {
	Path     string             `json:"path"`
	Format   string             `json:"format"`
	BBox     domain.BBox        `json:"bbox"`
	Report   domain.FetchReport `json:"report"`
	Archived int                `json:"archived"`
}

// JobResponse - статус задачи сборки подложки
type JobResponse struct {
	ID     uuid.UUID           `json:"id"`
	Status string              `json:"status"`
	Path   string              `json:"path,omitempty"`
	Report *domain.FetchReport `json:"report,omitempty"`
	Error  string              `json:"error,omitempty"`
}
