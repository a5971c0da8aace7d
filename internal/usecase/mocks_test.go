package usecase_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fieldmap-service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCacheRepository is a mock of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) GetJob(ctx context.Context, id uuid.UUID) (*domain.BasemapJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BasemapJob), args.Error(1)
}

func (m *MockCacheRepository) SetJob(ctx context.Context, job *domain.BasemapJob, ttl time.Duration) error {
	args := m.Called(ctx, job, ttl)
	return args.Error(0)
}

// MockStreamRepository is a mock of StreamRepository
type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	args := m.Called(ctx, stream, group, messageID)
	return args.Error(0)
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	args := m.Called(ctx, stream, group)
	return args.Error(0)
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	args := m.Called(ctx, stream, data)
	return args.Error(0)
}

// MockSurveyRepository is a mock of SurveyRepository
type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) ListForms(ctx context.Context, projectID int) ([]domain.Form, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Form), args.Error(1)
}

func (m *MockSurveyRepository) FetchSubmissions(ctx context.Context, projectID int, formID, format string) (*domain.SubmissionPayload, error) {
	args := m.Called(ctx, projectID, formID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionPayload), args.Error(1)
}

func (m *MockSurveyRepository) UploadMedia(ctx context.Context, projectID int, formID, name string, r io.Reader) error {
	args := m.Called(ctx, projectID, formID, name, r)
	return args.Error(0)
}

// fakeTiles отдает один и тот же тайл, кроме URL с "fail"
type fakeTiles struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTiles) FetchTile(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if strings.Contains(url, "fail") {
		return nil, io.ErrUnexpectedEOF
	}
	return []byte("tile:" + url), nil
}
