package basemap

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/paulmach/orb/maptile"
)

// Шаблон URL провайдера: {z}, {x}, {y} и {q} (quadkey) подставляются для каждого тайла
const (
	SourceESRI   = "esri"
	SourceBing   = "bing"
	SourceGoogle = "google"
	SourceTopo   = "topo"
	SourceOAM    = "oam"
	SourceCustom = "custom"
)

// Provider описывает источник тайлов
type Provider struct {
	Name        string
	Template    string
	Suffix      string
	Attribution string
	// XY меняет x и y местами в URL
	XY          bool
}

var builtinProviders = map[string]Provider{
	SourceESRI: {
		Name:        SourceESRI,
		Template:    "https://services.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Suffix:      "jpg",
		Attribution: "Esri, Maxar, Earthstar Geographics, and the GIS User Community",
	},
	SourceBing: {
		Name:        SourceBing,
		Template:    "http://ecn.t0.tiles.virtualearth.net/tiles/a{q}.jpeg?g=129&mkt=en&stl=H",
		Suffix:      "jpg",
		Attribution: "Microsoft Bing Maps",
	},
	SourceGoogle: {
		Name:        SourceGoogle,
		Template:    "https://mt0.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
		Suffix:      "jpg",
		Attribution: "Google",
	},
	SourceTopo: {
		Name:        SourceTopo,
		Template:    "https://basemap.nationalmap.gov/arcgis/rest/services/USGSTopo/MapServer/tile/{z}/{y}/{x}",
		Suffix:      "png",
		Attribution: "USGS The National Map",
	},
}

// Sources возвращает имена всех поддерживаемых провайдеров
func Sources() []string {
	names := []string{SourceOAM, SourceCustom}
	for name := range builtinProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider выбирает провайдера по имени. Для oam и custom нужен шаблон URL;
// для остальных customURL, если задан, заменяет встроенный шаблон.
func NewProvider(name, customURL, suffix string, xy bool) (*Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	p, ok := builtinProviders[name]
	switch {
	case ok:
	case name == SourceOAM || name == SourceCustom:
		if customURL == "" {
			return nil, apperrors.Newf(apperrors.ErrInput, "source %q requires a tile URL template", name)
		}
		p = Provider{Name: name, Suffix: "png"}
		if name == SourceOAM {
			p.Attribution = "OpenAerialMap"
		}
	default:
		return nil, apperrors.Newf(apperrors.ErrInput, "unknown tile source %q, expected one of %s",
			name, strings.Join(Sources(), ", "))
	}

	if customURL != "" {
		p.Template = normalizeTemplate(customURL)
	}
	if suffix != "" {
		s := strings.TrimPrefix(strings.ToLower(suffix), ".")
		if s == "jpeg" {
			s = "jpg"
		}
		if s != "jpg" && s != "png" {
			return nil, apperrors.Newf(apperrors.ErrInput, "unsupported tile suffix %q", suffix)
		}
		p.Suffix = s
	}
	p.XY = xy

	return &p, nil
}

// TileURL подставляет координаты тайла в шаблон
func (p *Provider) TileURL(t domain.TileCoord) string {
	x, y := strconv.Itoa(t.X), strconv.Itoa(t.Y)
	if p.XY {
		x, y = y, x
	}
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(t.Z),
		"{x}", x,
		"{y}", y,
		"{q}", Quadkey(t),
	)
	return r.Replace(p.Template)
}

// Quadkey кодирует тайл в строку Bing: по одной цифре base-4 на уровень
func Quadkey(t domain.TileCoord) string {
	if t.Z == 0 {
		return ""
	}
	tile := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z))
	key := strconv.FormatUint(tile.Quadkey(), 4)
	if pad := t.Z - len(key); pad > 0 {
		key = strings.Repeat("0", pad) + key
	}
	return key
}

// normalizeTemplate принимает также TMS-стиль шаблонов с ${z}/%7Bz%7D
func normalizeTemplate(s string) string {
	r := strings.NewReplacer(
		"${z}", "{z}", "${x}", "{x}", "${y}", "{y}",
		"%7Bz%7D", "{z}", "%7Bx%7D", "{x}", "%7By%7D", "{y}",
	)
	return r.Replace(strings.TrimSpace(s))
}
