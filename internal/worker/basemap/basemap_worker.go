package basemap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/fieldmap-service/internal/worker"
	"go.uber.org/zap"
)

const retryDelay = 2 * time.Second

// Builder собирает подложку по запросу
type Builder interface {
	Build(ctx context.Context, req dto.BasemapRequest, progress func()) (*dto.BasemapResult, error)
}

// JobTracker ведет статус задачи в кеше и публикует итог
type JobTracker interface {
	MarkRunning(ctx context.Context, event *domain.BasemapRequestEvent) (*domain.BasemapJob, error)
	Complete(ctx context.Context, job *domain.BasemapJob, result *dto.BasemapResult, runErr error) error
}

// BasemapWorker читает stream:basemap:request и собирает архивы по одному
type BasemapWorker struct {
	*worker.BaseWorker
	streamRepo repository.StreamRepository
	builder    Builder
	jobs       JobTracker
	maxRetries int
	retryDelay time.Duration
}

func NewBasemapWorker(
	streamRepo repository.StreamRepository,
	builder Builder,
	jobs JobTracker,
	consumerGroup string,
	maxRetries int,
	logger *zap.Logger,
) *BasemapWorker {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &BasemapWorker{
		BaseWorker: worker.NewBaseWorker("basemap-builder", consumerGroup, logger),
		streamRepo: streamRepo,
		builder:    builder,
		jobs:       jobs,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Start блокируется до Stop или отмены ctx
func (w *BasemapWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	ctx, cancel := w.Context(ctx)
	defer cancel()

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamBasemapRequest, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	messages, err := w.streamRepo.ConsumeStream(ctx, domain.StreamBasemapRequest, w.ConsumerGroup(), w.ConsumerName())
	if err != nil {
		return fmt.Errorf("failed to consume stream: %w", err)
	}

	logger.Info("Basemap worker started",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.ConsumerName()))

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				logger.Info("Stream closed")
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

// handle обрабатывает одно сообщение. ACK не отправляется, если воркер
// остановили посреди сборки: сообщение будет доставлено повторно.
func (w *BasemapWorker) handle(ctx context.Context, msg domain.StreamMessage) {
	logger := w.Logger().With(zap.String("message_id", msg.ID))

	event, err := parseMessage(msg)
	if err != nil {
		logger.Warn("Failed to parse message, skipping", zap.Error(err))
		w.ack(ctx, msg.ID)
		return
	}
	logger = logger.With(zap.String("job_id", event.JobID.String()))

	job, err := w.jobs.MarkRunning(ctx, event)
	if err != nil {
		logger.Error("Failed to mark job running", zap.Error(err))
		job = &domain.BasemapJob{ID: event.JobID, Request: event}
	}

	result, runErr := w.build(ctx, usecase.Request(event))
	if ctx.Err() != nil {
		logger.Info("Job interrupted, left pending")
		return
	}

	if err := w.jobs.Complete(ctx, job, result, runErr); err != nil {
		logger.Error("Failed to record job result", zap.Error(err))
	}
	w.ack(ctx, msg.ID)

	if runErr != nil {
		logger.Error("Basemap job failed", zap.Error(runErr))
		return
	}
	logger.Info("Basemap job done",
		zap.String("path", result.Path),
		zap.Int("tiles", result.Archived),
		zap.Int("failed", result.Report.Failed))
}

// build повторяет сборку при ошибках, которые не зависят от входных данных
func (w *BasemapWorker) build(ctx context.Context, req dto.BasemapRequest) (*dto.BasemapResult, error) {
	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		result, err := w.builder.Build(ctx, req, nil)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if apperrors.CodeOf(err) == apperrors.CodeInput || ctx.Err() != nil {
			return nil, err
		}

		w.Logger().Warn("Basemap build attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", w.maxRetries),
			zap.Error(err))

		if attempt < w.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(w.retryDelay):
			}
		}
	}
	return nil, lastErr
}

func (w *BasemapWorker) ack(ctx context.Context, id string) {
	if err := w.streamRepo.AckMessage(ctx, domain.StreamBasemapRequest, w.ConsumerGroup(), id); err != nil {
		w.Logger().Error("Failed to ack message", zap.String("message_id", id), zap.Error(err))
	}
}

func parseMessage(msg domain.StreamMessage) (*domain.BasemapRequestEvent, error) {
	var event domain.BasemapRequestEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Output == "" || event.AOI == "" {
		return nil, fmt.Errorf("event %s has no aoi or output", msg.ID)
	}
	return &event, nil
}
