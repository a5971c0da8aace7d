package dto

// ConvertRequest - параметры конвертации сабмитов
type ConvertRequest struct {
	Format string `json:"format" validate:"required,oneof=csv json xml"`
	Output string `json:"output" validate:"omitempty,oneof=osm geojson"`
}

// RemoteConvertRequest - выгрузка сабмитов формы с сервера сбора и конвертация
type RemoteConvertRequest struct {
	ProjectID int    `json:"project_id" validate:"required,min=1"`
	FormID    string `json:"form_id" validate:"required"`
	Format    string `json:"format" validate:"omitempty,oneof=csv json"`
	OutBase   string `json:"out_base" validate:"required"`
}

// ConflateRequest - сопоставление новых объектов с эталоном
type ConflateRequest struct {
	// Input - файл .osm или выгрузка сабмитов (csv/json/xml)
	Input       string  `json:"input" validate:"required"`
	// Reference - GeoJSON файл или "postgres"
	Reference   string  `json:"reference" validate:"required"`
	Boundary    string  `json:"boundary,omitempty"`
	OutBase     string  `json:"out_base" validate:"required"`
	Tolerance   float64 `json:"tolerance,omitempty" validate:"omitempty,min=0"`
	MergePolicy string  `json:"merge_policy,omitempty" validate:"omitempty,oneof=lowest new existing"`
}

// TilePlanRequest - расчёт тайлов для AOI
type TilePlanRequest struct {
	AOI   string `query:"aoi" json:"aoi" validate:"required"`
	Zooms string `query:"zooms" json:"zooms" validate:"required,zooms"`
}

// BasemapRequest - сборка офлайн подложки
type BasemapRequest struct {
	// AOI - bbox строкой, GeoJSON или путь к файлу
	AOI       string `json:"aoi" validate:"required"`
	Zooms     string `json:"zooms" validate:"required,zooms"`
	Source    string `json:"source" validate:"omitempty,oneof=esri bing google topo oam custom"`
	CustomURL string `json:"custom_url,omitempty" validate:"omitempty,url"`
	Suffix    string `json:"suffix,omitempty" validate:"omitempty,oneof=jpg jpeg png"`
	XY        bool   `json:"xy,omitempty"`
	Output    string `json:"output" validate:"required"`
	Append    bool   `json:"append,omitempty"`
}
