package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// stickyRepository хранит last-saved значения между запусками в хеше sticky:<form>
type stickyRepository struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewStickyRepository - sticky поля одной формы
func NewStickyRepository(redis *Redis, form string) repository.StickyRepository {
	return &stickyRepository{
		client: redis.Client(),
		key:    "sticky:" + form,
		logger: redis.logger,
	}
}

func (r *stickyRepository) Get(ctx context.Context, field string) (string, bool, error) {
	val, err := r.client.HGet(ctx, r.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.logger.Error("Failed to read sticky field", zap.String("field", field), zap.Error(err))
		return "", false, fmt.Errorf("sticky get error: %w", err)
	}
	return val, true, nil
}

func (r *stickyRepository) Set(ctx context.Context, field, value string) error {
	if err := r.client.HSet(ctx, r.key, field, value).Err(); err != nil {
		r.logger.Error("Failed to save sticky field", zap.String("field", field), zap.Error(err))
		return fmt.Errorf("sticky set error: %w", err)
	}
	return nil
}
