package basemap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/destel/rill"
	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"go.uber.org/zap"
)

// DefaultPerWorker - число одновременных загрузок внутри одного воркера
const DefaultPerWorker = 4

// Fetcher скачивает тайлы в кеш dest/z/y/x.suffix
type Fetcher struct {
	tiles     repository.TileRepository
	provider  *Provider
	workers   int
	perWorker int
	progress  func()
	logger    *zap.Logger
}

type FetcherOption func(*Fetcher)

func WithFetchWorkers(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

func WithPerWorker(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.perWorker = n
		}
	}
}

// WithProgress вызывается после обработки каждого тайла (из разных горутин)
func WithProgress(fn func()) FetcherOption {
	return func(f *Fetcher) {
		f.progress = fn
	}
}

func NewFetcher(tiles repository.TileRepository, provider *Provider, logger *zap.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		tiles:     tiles,
		provider:  provider,
		workers:   runtime.NumCPU(),
		perWorker: DefaultPerWorker,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// TilePath - путь тайла в кеше
func TilePath(dest string, t domain.TileCoord, suffix string) string {
	return filepath.Join(dest,
		strconv.Itoa(t.Z),
		strconv.Itoa(t.Y),
		strconv.Itoa(t.X)+"."+suffix)
}

// Fetch делит тайлы на ceil(total/workers) частей, каждая часть обрабатывается
// своим воркером с ограниченной параллельностью. Ошибки загрузки отдельных тайлов
// логируются и не прерывают работу; ошибка возвращается только при отмене контекста.
func (f *Fetcher) Fetch(ctx context.Context, dest string, coords []domain.TileCoord) (domain.FetchReport, error) {
	report := domain.FetchReport{Total: len(coords)}
	if len(coords) == 0 {
		return report, nil
	}

	var fetched, skipped, failed atomic.Int64
	start := time.Now()

	chunks := chunkTiles(coords, f.workers)
	f.logger.Info("Fetching tiles",
		zap.String("source", f.provider.Name),
		zap.String("dest", dest),
		zap.Int("tiles", len(coords)),
		zap.Int("workers", len(chunks)),
		zap.Int("per_worker", f.perWorker))

	err := rill.ForEach(rill.FromSlice(chunks, nil), len(chunks), func(chunk []domain.TileCoord) error {
		return rill.ForEach(rill.FromSlice(chunk, nil), f.perWorker, func(t domain.TileCoord) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch f.fetchOne(ctx, dest, t) {
			case outcomeFetched:
				fetched.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			if f.progress != nil {
				f.progress()
			}
			return nil
		})
	})

	report.Fetched = int(fetched.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())

	f.logger.Info("Tile fetch finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", time.Since(start)))

	return report, err
}

type outcome int

const (
	outcomeFetched outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (f *Fetcher) fetchOne(ctx context.Context, dest string, t domain.TileCoord) outcome {
	path := TilePath(dest, t, f.provider.Suffix)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return outcomeSkipped
	}

	url := f.provider.TileURL(t)
	data, err := f.tiles.FetchTile(ctx, url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return outcomeFailed
		}
		f.logger.Warn("Tile download failed",
			zap.String("tile", t.String()),
			zap.Error(apperrors.Wrap(apperrors.ErrNetwork, err, "GET %s", url)))
		return outcomeFailed
	}

	if err := writeTile(path, data); err != nil {
		f.logger.Error("Failed to write tile",
			zap.String("path", path),
			zap.Error(apperrors.Wrap(apperrors.ErrIO, err, "write tile")))
		return outcomeFailed
	}
	return outcomeFetched
}

// writeTile пишет через временный файл, чтобы в кеше не оставалось обрывков
func writeTile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func chunkTiles(coords []domain.TileCoord, workers int) [][]domain.TileCoord {
	if workers < 1 {
		workers = 1
	}
	size := (len(coords) + workers - 1) / workers
	chunks := make([][]domain.TileCoord, 0, workers)
	for start := 0; start < len(coords); start += size {
		end := min(start+size, len(coords))
		chunks = append(chunks, coords[start:end])
	}
	return chunks
}
