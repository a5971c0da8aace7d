package repository

import (
	"context"
	"time"

	"github.com/fieldmap-service/internal/domain"
	"github.com/google/uuid"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	// Get получает значение из кеша по ключу
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кеше с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет значение из кеша
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа
	Exists(ctx context.Context, key string) (bool, error)

	// GetJob получает состояние задачи сборки подложки
	GetJob(ctx context.Context, id uuid.UUID) (*domain.BasemapJob, error)

	// SetJob сохраняет состояние задачи сборки подложки
	SetJob(ctx context.Context, job *domain.BasemapJob, ttl time.Duration) error
}

// StickyRepository хранит последние непустые значения "last-saved" полей
type StickyRepository interface {
	// Get возвращает последнее сохранённое значение поля
	Get(ctx context.Context, field string) (string, bool, error)

	// Set запоминает значение поля
	Set(ctx context.Context, field, value string) error
}
