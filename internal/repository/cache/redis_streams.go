package cache

import (
	"github.com/fieldmap-service/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisStreams создает отдельный клиент для стримов задач подложки.
// XREADGROUP с Block занимает соединение, поэтому чтение стрима не делит пул
// с кешем статусов.
func NewRedisStreams(cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Redis Streams connected", zap.String("addr", cfg.Addr()))
	return client, nil
}
