package archive

import (
	"context"
	"database/sql"
	"sync"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// zoomBase - в OsmAnd/BigPlanet формате уровень хранится как 17 - z
const zoomBase = 17

const (
	sqlitedbSchemaTiles   = `CREATE TABLE IF NOT EXISTS tiles (x INT, y INT, z INT, s INT, image BLOB, PRIMARY KEY (x, y, z, s))`
	sqlitedbSchemaInfo    = `CREATE TABLE IF NOT EXISTS info (maxzoom INT, minzoom INT)`
	sqlitedbSchemaAndroid = `CREATE TABLE IF NOT EXISTS android_metadata (locale TEXT)`

	sqlitedbInsertTile = `INSERT OR REPLACE INTO tiles (x, y, z, s, image) VALUES (?, ?, ?, 0, ?)`
	sqlitedbZoomRange  = `SELECT MIN(z), MAX(z) FROM tiles`
	sqlitedbLocale     = `INSERT INTO android_metadata (locale) SELECT 'en_US' WHERE NOT EXISTS (SELECT 1 FROM android_metadata)`
)

// SQLiteDB пишет тайлы в формат OsmAnd .sqlitedb
type SQLiteDB struct {
	db     *sqlx.DB
	path   string
	mu     sync.Mutex
	closed bool
	logger *zap.Logger
}

func NewSQLiteDB(path string, opts Options, logger *zap.Logger) (*SQLiteDB, error) {
	db, err := openSQLite(path, opts.Append)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to open %s", path)
	}

	if err := execAll(db, sqlitedbSchemaTiles, sqlitedbSchemaInfo, sqlitedbSchemaAndroid, sqlitedbLocale); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to create sqlitedb schema")
	}

	logger.Info("SQLiteDB archive opened", zap.String("path", path), zap.Bool("append", opts.Append))
	return &SQLiteDB{db: db, path: path, logger: logger}, nil
}

func (s *SQLiteDB) WriteTile(ctx context.Context, t domain.TileCoord, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, sqlitedbInsertTile, t.X, t.Y, zoomBase-t.Z, data); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to write tile %s", t)
	}
	return nil
}

// Close обновляет info по всем тайлам в файле (с учетом append) и закрывает базу.
// info хранит уровни в той же инвертированной шкале, что и tiles.z.
func (s *SQLiteDB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	defer s.db.Close()

	var minZ, maxZ sql.NullInt64
	if err := s.db.QueryRow(sqlitedbZoomRange).Scan(&minZ, &maxZ); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to read zoom range")
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM info`); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to reset info")
	}
	if minZ.Valid {
		if _, err := tx.Exec(`INSERT INTO info (maxzoom, minzoom) VALUES (?, ?)`, maxZ.Int64, minZ.Int64); err != nil {
			return apperrors.Wrap(apperrors.ErrIO, err, "failed to write info")
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to commit info")
	}

	s.logger.Info("SQLiteDB archive closed", zap.String("path", s.path))
	return nil
}
