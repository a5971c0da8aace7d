package repository

import (
	"context"

	"github.com/fieldmap-service/internal/domain"
	"github.com/paulmach/orb"
)

// ReferenceRepository - эталонный OSM снимок для конфляции (файл или PostGIS)
type ReferenceRepository interface {
	// GetByID возвращает объект по OSM id; nil, nil если объекта нет
	GetByID(ctx context.Context, id int64) (*domain.ReferenceFeature, error)

	// FindContaining возвращает здание, внутри которого лежит точка; nil, nil если такого нет
	FindContaining(ctx context.Context, pt orb.Point) (*domain.ReferenceFeature, error)

	// FindNearby возвращает объекты в радиусе tolerance метров от точки
	FindNearby(ctx context.Context, pt orb.Point, tolerance float64) ([]*domain.ReferenceFeature, error)

	// Close освобождает ресурсы источника
	Close() error
}

// ReferenceBatchLoader - источник, умеющий загружать объекты по списку id за один запрос
type ReferenceBatchLoader interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.ReferenceFeature, error)
}
