package archive

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"go.uber.org/zap"
)

// Форматы архивов
const (
	FormatMBTiles  = "mbtiles"
	FormatSQLiteDB = "sqlitedb"
	FormatPMTiles  = "pmtiles"
)

// Writer пишет тайлы в один файл архива
type Writer interface {
	// WriteTile добавляет или заменяет тайл
	WriteTile(ctx context.Context, t domain.TileCoord, data []byte) error

	// Close дописывает метаданные и закрывает файл; повторный вызов ничего не делает
	Close() error
}

// Options - параметры архива
type Options struct {
	Name        string
	Description string
	// Format - расширение тайлов: jpg или png
	Format      string
	Bounds      domain.BBox
	Attribution string
	// Append дописывает в существующий файл (только SQLite форматы)
	Append      bool
}

func (o Options) format() string {
	if o.Format == "" {
		return "jpg"
	}
	return o.Format
}

func (o Options) name(path string) string {
	if o.Name != "" {
		return o.Name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// FormatOf определяет формат архива по расширению файла
func FormatOf(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".mbtiles":
		return FormatMBTiles, nil
	case strings.HasPrefix(ext, ".sqlite"):
		return FormatSQLiteDB, nil
	case ext == ".pmtiles":
		return FormatPMTiles, nil
	default:
		return "", apperrors.Newf(apperrors.ErrInput,
			"unsupported archive extension %q, expected .mbtiles, .sqlitedb or .pmtiles", ext)
	}
}

// Open создает writer по расширению файла
func Open(path string, opts Options, logger *zap.Logger) (Writer, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatMBTiles:
		return NewMBTiles(path, opts, logger)
	case FormatSQLiteDB:
		return NewSQLiteDB(path, opts, logger)
	default:
		return NewPMTiles(path, opts, logger)
	}
}
