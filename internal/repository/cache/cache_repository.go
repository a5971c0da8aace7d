package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const jobKeyPrefix = "basemap:job:"

type cacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheRepository(redis *Redis) repository.CacheRepository {
	return &cacheRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Cache miss
	}
	if err != nil {
		r.logger.Error("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("Failed to set cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete from cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (r *cacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	val, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to check cache existence", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return val > 0, nil
}

// GetJob возвращает статус задачи; nil, nil если задача неизвестна или истекла
func (r *cacheRepository) GetJob(ctx context.Context, id uuid.UUID) (*domain.BasemapJob, error) {
	data, err := r.Get(ctx, jobKeyPrefix+id.String())
	if err != nil || data == nil {
		return nil, err
	}

	var job domain.BasemapJob
	if err := json.Unmarshal(data, &job); err != nil {
		r.logger.Error("Failed to unmarshal job from cache", zap.String("job_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// SetJob сохраняет статус задачи
func (r *cacheRepository) SetJob(ctx context.Context, job *domain.BasemapJob, ttl time.Duration) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	r.logger.Debug("Job status saved",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(job.Status)))
	return r.Set(ctx, jobKeyPrefix+job.ID.String(), data, ttl)
}
