package archive

import (
	"context"
	"database/sql"
	"strconv"
	"sync"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	mbtilesSchemaTiles    = `CREATE TABLE IF NOT EXISTS tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`
	mbtilesSchemaIndex    = `CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row)`
	mbtilesSchemaMetadata = `CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT)`
	mbtilesSchemaMetaIdx  = `CREATE UNIQUE INDEX IF NOT EXISTS name ON metadata (name)`

	mbtilesInsertTile = `INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`
	mbtilesUpsertMeta = `INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)`
	mbtilesZoomRange  = `SELECT MIN(zoom_level), MAX(zoom_level) FROM tiles`
)

// MBTiles пишет тайлы в MBTiles 1.1 (строки в TMS схеме)
type MBTiles struct {
	db     *sqlx.DB
	path   string
	opts   Options
	mu     sync.Mutex
	closed bool
	logger *zap.Logger
}

func NewMBTiles(path string, opts Options, logger *zap.Logger) (*MBTiles, error) {
	db, err := openSQLite(path, opts.Append)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to open %s", path)
	}

	if err := execAll(db, mbtilesSchemaTiles, mbtilesSchemaIndex, mbtilesSchemaMetadata, mbtilesSchemaMetaIdx); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to create mbtiles schema")
	}

	logger.Info("MBTiles archive opened", zap.String("path", path), zap.Bool("append", opts.Append))
	return &MBTiles{db: db, path: path, opts: opts, logger: logger}, nil
}

func (m *MBTiles) WriteTile(ctx context.Context, t domain.TileCoord, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.ExecContext(ctx, mbtilesInsertTile, t.Z, t.X, t.TMSY(), data); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to write tile %s", t)
	}
	return nil
}

// Close записывает metadata и закрывает базу
func (m *MBTiles) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	defer m.db.Close()

	var minZoom, maxZoom sql.NullInt64
	if err := m.db.QueryRow(mbtilesZoomRange).Scan(&minZoom, &maxZoom); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to read zoom range")
	}

	meta := [][2]string{
		{"version", "1.1"},
		{"type", "baselayer"},
		{"name", m.opts.name(m.path)},
		{"description", m.opts.Description},
		{"format", m.opts.format()},
		{"bounds", m.opts.Bounds.String()},
	}
	if m.opts.Attribution != "" {
		meta = append(meta, [2]string{"attribution", m.opts.Attribution})
	}
	if minZoom.Valid {
		meta = append(meta,
			[2]string{"minzoom", strconv.FormatInt(minZoom.Int64, 10)},
			[2]string{"maxzoom", strconv.FormatInt(maxZoom.Int64, 10)})
	}

	for _, kv := range meta {
		if _, err := m.db.Exec(mbtilesUpsertMeta, kv[0], kv[1]); err != nil {
			return apperrors.Wrap(apperrors.ErrIO, err, "failed to write metadata %s", kv[0])
		}
	}

	m.logger.Info("MBTiles archive closed", zap.String("path", m.path))
	return nil
}
