package conflation

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldmap-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockReferenceRepository is a mock implementation of repository.ReferenceRepository
type MockReferenceRepository struct {
	mock.Mock
}

func (m *MockReferenceRepository) GetByID(ctx context.Context, id int64) (*domain.ReferenceFeature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReferenceFeature), args.Error(1)
}

func (m *MockReferenceRepository) FindContaining(ctx context.Context, pt orb.Point) (*domain.ReferenceFeature, error) {
	args := m.Called(ctx, pt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReferenceFeature), args.Error(1)
}

func (m *MockReferenceRepository) FindNearby(ctx context.Context, pt orb.Point, tolerance float64) ([]*domain.ReferenceFeature, error) {
	args := m.Called(ctx, pt, tolerance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReferenceFeature), args.Error(1)
}

func (m *MockReferenceRepository) Close() error {
	return nil
}

func tags(kv ...string) domain.Tags {
	var t domain.Tags
	for i := 0; i+1 < len(kv); i += 2 {
		t.Set(kv[i], kv[i+1])
	}
	return t
}

func newNode(id int64, lat, lon string, kv ...string) *domain.Feature {
	f := domain.NewNode()
	if id != 0 {
		f.SetID(id)
	}
	f.Attrs.Lat, f.Attrs.Lon = lat, lon
	f.Tags = tags(kv...)
	return f
}

func TestConflate_IDMatch(t *testing.T) {
	repo := new(MockReferenceRepository)
	repo.On("GetByID", mock.Anything, int64(42)).Return(&domain.ReferenceFeature{
		ID:      42,
		Version: 3,
		Tags:    tags("amenity", "Cafe", "opening_hours", "24/7"),
	}, nil)

	engine := NewEngine(repo, zap.NewNop(), WithWorkers(2))
	f := newNode(42, "1", "2", "amenity", "restaurant", "name", "Joe")

	res := engine.ConflateOne(context.Background(), f)
	assert.Equal(t, MatchID, res.Match)
	assert.True(t, res.Modified)
	assert.Equal(t, 4, res.Feature.Attrs.Version)
	assert.Equal(t, domain.Tags{
		{Key: "amenity", Value: "cafe"},
		{Key: "name", Value: "Joe"},
		{Key: "opening_hours", Value: "24/7"},
	}, res.Feature.Tags)
	assert.Equal(t, "restaurant", f.Tags.Value("amenity"), "input must not be mutated")
	repo.AssertExpectations(t)
}

func TestConflate_ContainmentAdoptsBuilding(t *testing.T) {
	ring := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	repo := new(MockReferenceRepository)
	repo.On("FindContaining", mock.Anything, orb.Point{0.5, 0.5}).Return(&domain.ReferenceFeature{
		ID:       900,
		Version:  2,
		Tags:     tags("building", "yes"),
		Geometry: orb.Polygon{ring},
	}, nil)

	engine := NewEngine(repo, zap.NewNop())
	res := engine.ConflateOne(context.Background(), newNode(-1, "0.5", "0.5", "amenity", "school"))

	assert.Equal(t, MatchContainment, res.Match)
	assert.True(t, res.Modified)
	assert.Equal(t, domain.KindWay, res.Feature.Kind)
	assert.Equal(t, int64(900), res.Feature.ID())
	assert.Equal(t, 3, res.Feature.Attrs.Version)
	assert.Equal(t, []orb.Point(ring), res.Feature.Coords)
	assert.Equal(t, map[string]string{"amenity": "school", "building": "yes"}, res.Feature.Tags.Map())
	repo.AssertNotCalled(t, "FindNearby", mock.Anything, mock.Anything, mock.Anything)
}

func TestConflate_ProbableDuplicate(t *testing.T) {
	repo := new(MockReferenceRepository)
	repo.On("FindContaining", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("FindNearby", mock.Anything, orb.Point{-105.0, 40.0}, 5.0).Return([]*domain.ReferenceFeature{
		{ID: 1, Tags: tags("shop", "bakery")},
		{ID: 2, Tags: tags("amenity", "CAFE")},
	}, nil)

	engine := NewEngine(repo, zap.NewNop(), WithTolerance(5))
	res := engine.ConflateOne(context.Background(), newNode(-3, "40.0", "-105.0", "amenity", "cafe"))

	assert.Equal(t, MatchDuplicate, res.Match)
	assert.False(t, res.Modified)
	assert.Equal(t, DuplicateFixme, res.Feature.Tags.Value("fixme"))
}

func TestConflate_NoMatch(t *testing.T) {
	repo := new(MockReferenceRepository)
	repo.On("FindContaining", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("FindNearby", mock.Anything, mock.Anything, DefaultTolerance).Return([]*domain.ReferenceFeature{
		{ID: 1, Tags: tags("shop", "bakery")},
	}, nil)

	engine := NewEngine(repo, zap.NewNop())
	res := engine.ConflateOne(context.Background(), newNode(0, "1", "1", "amenity", "cafe"))

	assert.Equal(t, MatchNone, res.Match)
	assert.False(t, res.Feature.Tags.Has("fixme"))
}

func TestConflate_FailureEmitsUnmerged(t *testing.T) {
	repo := new(MockReferenceRepository)
	repo.On("GetByID", mock.Anything, int64(7)).Return(nil, errors.New("connection reset"))

	engine := NewEngine(repo, zap.NewNop())
	res := engine.ConflateOne(context.Background(), newNode(7, "1", "1", "amenity", "cafe"))

	assert.Equal(t, MatchFailed, res.Match)
	assert.Equal(t, "cafe", res.Feature.Tags.Value("amenity"))
	assert.Equal(t, FailureNote, res.Feature.Tags.Value("note"))
}

func TestConflate_PreservesOrderAcrossChunks(t *testing.T) {
	repo := new(MockReferenceRepository)
	repo.On("FindContaining", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("FindNearby", mock.Anything, mock.Anything, mock.Anything).Return([]*domain.ReferenceFeature{}, nil)

	var features []*domain.Feature
	for i := 1; i <= 25; i++ {
		features = append(features, newNode(int64(-i), "1", "1", "ref", string(rune('a'+i))))
	}

	engine := NewEngine(repo, zap.NewNop(), WithWorkers(4))
	results, err := engine.Conflate(context.Background(), features)
	require.NoError(t, err)
	require.Len(t, results, len(features))
	for i, r := range results {
		assert.Equal(t, features[i].ID(), r.Feature.ID())
	}
}

// batchRepository records GetByIDs calls on top of the mock
type batchRepository struct {
	*MockReferenceRepository
	calls int
}

func (b *batchRepository) GetByIDs(_ context.Context, ids []int64) (map[int64]*domain.ReferenceFeature, error) {
	b.calls++
	return map[int64]*domain.ReferenceFeature{
		10: {ID: 10, Version: 1, Tags: tags("name", "ten")},
	}, nil
}

func TestConflate_UsesBatchLoader(t *testing.T) {
	repo := &batchRepository{MockReferenceRepository: new(MockReferenceRepository)}
	repo.On("FindContaining", mock.Anything, mock.Anything).Return(nil, nil)

	engine := NewEngine(repo, zap.NewNop())
	results, err := engine.Conflate(context.Background(), []*domain.Feature{
		newNode(10, "1", "1", "name", "Ten"),
		newNode(11, "1", "1", "name", "Eleven"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, MatchID, results[0].Match)
	assert.Equal(t, "ten", results[0].Feature.Tags.Value("name"))
	assert.Equal(t, MatchNone, results[1].Match)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSplit(t *testing.T) {
	features := make([]*domain.Feature, 10)
	chunks := split(features, 4)
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[3], 1)

	assert.Len(t, split(features[:2], 8), 2)
}
