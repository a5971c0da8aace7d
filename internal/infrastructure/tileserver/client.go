package tileserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "fieldmap-service/0.1"
	// maxTileSize ограничивает размер ответа, тайл больше 8 MiB считаем мусором
	maxTileSize = 8 << 20
)

type client struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// NewTileClient создает HTTP клиент для скачивания растровых тайлов
func NewTileClient(cfg *config.BasemapConfig, logger *zap.Logger) repository.TileRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		logger:    logger,
	}
}

// FetchTile скачивает один тайл
func (c *client) FetchTile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// некоторые провайдеры отдают 403 без User-Agent
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("Tile server returned error",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("tile server error: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("tile server returned empty body")
	}
	if len(data) > maxTileSize {
		return nil, fmt.Errorf("tile exceeds %d bytes", maxTileSize)
	}

	return data, nil
}
