package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fieldmap-service/internal/archive"
	"github.com/fieldmap-service/internal/basemap"
	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BasemapUseCase - план, загрузка и упаковка офлайн подложки
type BasemapUseCase struct {
	tiles  repository.TileRepository
	cfg    config.BasemapConfig
	logger *zap.Logger
}

func NewBasemapUseCase(tiles repository.TileRepository, cfg config.BasemapConfig, logger *zap.Logger) *BasemapUseCase {
	return &BasemapUseCase{
		tiles:  tiles,
		cfg:    cfg,
		logger: logger,
	}
}

// ResolveAOI принимает bbox строкой, GeoJSON или путь к GeoJSON файлу
func ResolveAOI(aoi string) (domain.BBox, error) {
	aoi = strings.TrimSpace(aoi)
	if aoi == "" {
		return domain.BBox{}, errors.Newf(errors.ErrInput, "aoi is empty")
	}
	if !strings.HasPrefix(aoi, "{") {
		if _, err := os.Stat(aoi); err == nil {
			bbox, _, err := basemap.ResolveAOIFile(aoi)
			return bbox, err
		}
	}
	bbox, _, err := basemap.ResolveAOI([]byte(aoi))
	return bbox, err
}

// Plan считает тайлы без загрузки
func (uc *BasemapUseCase) Plan(req dto.TilePlanRequest) (*dto.TilePlanResponse, error) {
	bbox, err := ResolveAOI(req.AOI)
	if err != nil {
		return nil, err
	}
	zooms, err := basemap.ParseZooms(req.Zooms)
	if err != nil {
		return nil, err
	}

	resp := &dto.TilePlanResponse{
		BBox:    bbox,
		Zooms:   zooms,
		PerZoom: make(map[int]int, len(zooms)),
	}
	for _, z := range zooms {
		n := basemap.CountTiles(bbox, []int{z})
		resp.PerZoom[z] = n
		resp.Total += n
	}
	return resp, nil
}

// Build скачивает тайлы AOI в кеш TileDir/<source>tiles и упаковывает их в архив.
// progress вызывается после каждого обработанного тайла, может быть nil.
func (uc *BasemapUseCase) Build(ctx context.Context, req dto.BasemapRequest, progress func()) (*dto.BasemapResult, error) {
	// 1. AOI и уровни
	bbox, err := ResolveAOI(req.AOI)
	if err != nil {
		return nil, err
	}
	zooms, err := basemap.ParseZooms(req.Zooms)
	if err != nil {
		return nil, err
	}

	// 2. Формат архива проверяем до загрузки
	format, err := archive.FormatOf(req.Output)
	if err != nil {
		return nil, err
	}

	// 3. Провайдер
	source := firstNonEmpty(req.Source, uc.cfg.Source)
	provider, err := basemap.NewProvider(source, firstNonEmpty(req.CustomURL, uc.cfg.CustomURL),
		firstNonEmpty(req.Suffix, uc.cfg.Suffix), req.XY || uc.cfg.XY)
	if err != nil {
		return nil, err
	}

	// 4. Загрузка
	coords := basemap.PlanTiles(bbox, zooms)
	dest := filepath.Join(uc.cfg.TileDir, provider.Name+"tiles")

	uc.logger.Info("Fetching basemap tiles",
		zap.String("source", provider.Name),
		zap.String("bbox", bbox.String()),
		zap.Ints("zooms", zooms),
		zap.Int("tiles", len(coords)),
		zap.String("dest", dest))

	opts := []basemap.FetcherOption{
		basemap.WithFetchWorkers(uc.cfg.Workers),
		basemap.WithPerWorker(uc.cfg.PerWorker),
	}
	if progress != nil {
		opts = append(opts, basemap.WithProgress(progress))
	}
	report, err := basemap.NewFetcher(uc.tiles, provider, uc.logger, opts...).Fetch(ctx, dest, coords)
	if err != nil {
		return nil, err
	}

	// 5. Архив
	output := req.Output
	if !filepath.IsAbs(output) && filepath.Dir(output) == "." {
		output = filepath.Join(uc.cfg.OutputDir, output)
	}
	writer, err := archive.Open(output, archive.Options{
		Description: "Basemap " + provider.Name + " " + bbox.String(),
		Format:      provider.Suffix,
		Bounds:      bbox,
		Attribution: firstNonEmpty(uc.cfg.Attribution, provider.Attribution),
		Append:      req.Append || uc.cfg.Append,
	}, uc.logger)
	if err != nil {
		return nil, err
	}

	planned := make(map[domain.TileCoord]struct{}, len(coords))
	for _, c := range coords {
		planned[c] = struct{}{}
	}
	archived, err := archive.BuildFromCache(ctx, dest, writer, func(t domain.TileCoord) bool {
		_, ok := planned[t]
		return ok
	})
	if err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	uc.logger.Info("Basemap archive written",
		zap.String("path", output),
		zap.String("format", format),
		zap.Int("tiles", archived),
		zap.Int("failed", report.Failed))

	return &dto.BasemapResult{
		Path:     output,
		Format:   format,
		BBox:     bbox,
		Report:   report,
		Archived: archived,
	}, nil
}

// BasemapJobUseCase ставит сборку подложки в очередь воркера и отдает ее статус
type BasemapJobUseCase struct {
	streams repository.StreamRepository
	cache   repository.CacheRepository
	ttl     time.Duration
	logger  *zap.Logger
}

func NewBasemapJobUseCase(
	streams repository.StreamRepository,
	cache repository.CacheRepository,
	ttl time.Duration,
	logger *zap.Logger,
) *BasemapJobUseCase {
	return &BasemapJobUseCase{
		streams: streams,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// Enqueue проверяет запрос, сохраняет задачу как pending и публикует событие
func (uc *BasemapJobUseCase) Enqueue(ctx context.Context, req dto.BasemapRequest) (*dto.JobResponse, error) {
	if _, err := ResolveAOI(req.AOI); err != nil {
		return nil, err
	}
	if _, err := basemap.ParseZooms(req.Zooms); err != nil {
		return nil, err
	}
	if _, err := archive.FormatOf(req.Output); err != nil {
		return nil, err
	}

	event := &domain.BasemapRequestEvent{
		JobID:     uuid.New(),
		AOI:       req.AOI,
		Zooms:     req.Zooms,
		Source:    req.Source,
		CustomURL: req.CustomURL,
		Suffix:    req.Suffix,
		XY:        req.XY,
		Output:    req.Output,
		Append:    req.Append,
		Created:   time.Now().UTC(),
	}

	job := &domain.BasemapJob{
		ID:      event.JobID,
		Status:  domain.JobStatusPending,
		Request: event,
	}
	if err := uc.cache.SetJob(ctx, job, uc.ttl); err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err, "failed to save job")
	}
	if err := uc.streams.PublishToStream(ctx, domain.StreamBasemapRequest, event); err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err, "failed to enqueue job")
	}

	uc.logger.Info("Basemap job enqueued", zap.String("job_id", event.JobID.String()))
	return jobResponse(job), nil
}

// Get возвращает статус задачи
func (uc *BasemapJobUseCase) Get(ctx context.Context, id uuid.UUID) (*dto.JobResponse, error) {
	job, err := uc.cache.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.Newf(errors.ErrNotFound, "job %s not found", id)
	}
	return jobResponse(job), nil
}

// Complete записывает итог задачи и публикует событие о завершении
func (uc *BasemapJobUseCase) Complete(ctx context.Context, job *domain.BasemapJob, result *dto.BasemapResult, runErr error) error {
	done := &domain.BasemapDoneEvent{JobID: job.ID}
	if runErr != nil {
		job.Status = domain.JobStatusFailed
		job.Error = runErr.Error()
		done.Error = job.Error
	} else {
		job.Status = domain.JobStatusDone
		job.Path = result.Path
		report := result.Report
		job.Report = &report
		done.Path = result.Path
		done.Report = &report
	}

	if err := uc.cache.SetJob(ctx, job, uc.ttl); err != nil {
		return err
	}
	return uc.streams.PublishToStream(ctx, domain.StreamBasemapDone, done)
}

// MarkRunning переводит задачу в running
func (uc *BasemapJobUseCase) MarkRunning(ctx context.Context, event *domain.BasemapRequestEvent) (*domain.BasemapJob, error) {
	job := &domain.BasemapJob{
		ID:      event.JobID,
		Status:  domain.JobStatusRunning,
		Request: event,
	}
	if err := uc.cache.SetJob(ctx, job, uc.ttl); err != nil {
		return nil, err
	}
	return job, nil
}

// Request превращает событие из очереди в запрос сборки
func Request(event *domain.BasemapRequestEvent) dto.BasemapRequest {
	return dto.BasemapRequest{
		AOI:       event.AOI,
		Zooms:     event.Zooms,
		Source:    event.Source,
		CustomURL: event.CustomURL,
		Suffix:    event.Suffix,
		XY:        event.XY,
		Output:    event.Output,
		Append:    event.Append,
	}
}

func jobResponse(job *domain.BasemapJob) *dto.JobResponse {
	return &dto.JobResponse{
		ID:     job.ID,
		Status: job.Status,
		Path:   job.Path,
		Report: job.Report,
		Error:  job.Error,
	}
}
