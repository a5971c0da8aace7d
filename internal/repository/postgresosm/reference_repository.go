package postgresosm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const referenceColumns = "osm_id, version, tags_json, ST_AsGeoJSON(geom) AS geom_json"

var (
	referenceByIDQuery = fmt.Sprintf(`
		SELECT %[1]s FROM %[2]s WHERE osm_id = $1
		UNION ALL
		SELECT %[1]s FROM %[3]s WHERE osm_id = $1
		UNION ALL
		SELECT %[1]s FROM %[4]s WHERE osm_id = $1
		LIMIT 1
	`, referenceColumns, viewNodes, viewWaysPoly, viewRelations)

	referenceByIDsQuery = fmt.Sprintf(`
		SELECT %[1]s FROM %[2]s WHERE osm_id = ANY($1)
		UNION ALL
		SELECT %[1]s FROM %[3]s WHERE osm_id = ANY($1)
		UNION ALL
		SELECT %[1]s FROM %[4]s WHERE osm_id = ANY($1)
	`, referenceColumns, viewNodes, viewWaysPoly, viewRelations)

	containingBuildingQuery = fmt.Sprintf(`
		SELECT %[1]s FROM %[2]s
		WHERE tags ? 'building'
		  AND ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), %[3]d))
		ORDER BY ST_Area(geom) ASC
		LIMIT 1
	`, referenceColumns, viewWaysPoly, SRID4326)

	nearbyQuery = fmt.Sprintf(`
		SELECT %[1]s FROM %[2]s
		WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), %[4]d)::geography, $3)
		UNION ALL
		SELECT %[1]s FROM %[3]s
		WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), %[4]d)::geography, $3)
		LIMIT %[5]d
	`, referenceColumns, viewNodes, viewWaysPoly, SRID4326, LimitNearby)

	columnInfoQuery = `
		SELECT column_name, udt_name
		FROM information_schema.columns
		WHERE table_name = $1 AND column_name IN ('tags', 'version')
	`
)

// referenceRepository держит одно соединение: временные представления живут в его сессии
type referenceRepository struct {
	conn   *sqlx.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

// NewReferenceRepository создаёт временные представления nodes/ways_poly/relations,
// ограниченные aoi (nil - без ограничения)
func NewReferenceRepository(ctx context.Context, db *DB, aoi orb.Geometry, logger *zap.Logger) (repository.ReferenceRepository, error) {
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	repo := &referenceRepository{conn: conn, logger: logger}
	if err := repo.createViews(ctx, aoi); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("Reference views created", zap.Bool("aoi", aoi != nil))
	return repo, nil
}

func (r *referenceRepository) createViews(ctx context.Context, aoi orb.Geometry) error {
	views := []struct {
		view, table, predicate string
	}{
		{viewNodes, nodesTable, "ST_Within"},
		{viewWaysPoly, waysPolyTable, "ST_Intersects"},
		{viewRelations, relationsTable, "ST_Intersects"},
	}

	for _, v := range views {
		tags, version, err := r.columnExprs(ctx, v.table)
		if err != nil {
			return err
		}
		query := viewSQL(v.view, v.table, tags, version, aoi, v.predicate)
		if _, err := r.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create view %s: %w", v.view, err)
		}
	}
	return nil
}

// columnExprs определяет тип tags (hstore/jsonb) и наличие version
func (r *referenceRepository) columnExprs(ctx context.Context, table string) (string, string, error) {
	var cols []struct {
		Name string `db:"column_name"`
		Type string `db:"udt_name"`
	}
	if err := r.conn.SelectContext(ctx, &cols, columnInfoQuery, table); err != nil {
		return "", "", fmt.Errorf("failed to inspect %s: %w", table, err)
	}

	tags, version := tagsExpr("jsonb"), "0"
	for _, c := range cols {
		switch c.Name {
		case "tags":
			tags = tagsExpr(c.Type)
		case "version":
			version = "COALESCE(version, 0)"
		}
	}
	return tags, version, nil
}

// GetByID ищет объект по OSM id во всех представлениях
func (r *referenceRepository) GetByID(ctx context.Context, id int64) (*domain.ReferenceFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var row referenceRow
	if err := r.conn.GetContext(ctx, &row, referenceByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reference %d: %w", id, err)
	}
	return row.toDomain()
}

// GetByIDs загружает объекты пачкой
func (r *referenceRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.ReferenceFeature, error) {
	result := make(map[int64]*domain.ReferenceFeature, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []referenceRow
	if err := r.conn.SelectContext(ctx, &rows, referenceByIDsQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get references: %w", err)
	}
	for _, row := range rows {
		if _, seen := result[row.OSMID]; seen {
			continue
		}
		ref, err := row.toDomain()
		if err != nil {
			r.logger.Warn("Skipping reference with invalid geometry", zap.Error(err))
			continue
		}
		result[row.OSMID] = ref
	}
	return result, nil
}

// FindContaining возвращает наименьшее здание, содержащее точку
func (r *referenceRepository) FindContaining(ctx context.Context, pt orb.Point) (*domain.ReferenceFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var row referenceRow
	if err := r.conn.GetContext(ctx, &row, containingBuildingQuery, pt.Lon(), pt.Lat()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find containing building: %w", err)
	}
	return row.toDomain()
}

// FindNearby возвращает объекты в радиусе tolerance метров
func (r *referenceRepository) FindNearby(ctx context.Context, pt orb.Point, tolerance float64) ([]*domain.ReferenceFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []referenceRow
	if err := r.conn.SelectContext(ctx, &rows, nearbyQuery, pt.Lon(), pt.Lat(), tolerance); err != nil {
		return nil, fmt.Errorf("failed to find nearby references: %w", err)
	}

	result := make([]*domain.ReferenceFeature, 0, len(rows))
	for _, row := range rows {
		ref, err := row.toDomain()
		if err != nil {
			r.logger.Warn("Skipping reference with invalid geometry", zap.Error(err))
			continue
		}
		result = append(result, ref)
	}
	return result, nil
}

// Close удаляет представления и возвращает соединение в пул
func (r *referenceRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	drop := fmt.Sprintf("DROP VIEW IF EXISTS %s, %s, %s", viewNodes, viewWaysPoly, viewRelations)
	if _, err := r.conn.ExecContext(context.Background(), drop); err != nil {
		r.logger.Warn("Failed to drop reference views", zap.Error(err))
	}
	return r.conn.Close()
}
