package postgresosm

import (
	"context"
	"testing"

	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReferenceRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer teardownTestDB(t, db)
	seedReferenceTables(t, db)

	ctx := context.Background()
	aoi := orb.Polygon{{{-106, 39}, {-103, 39}, {-103, 41}, {-106, 41}, {-106, 39}}}

	repo, err := NewReferenceRepository(ctx, db, aoi, zap.NewNop())
	require.NoError(t, err)
	defer repo.Close()

	t.Run("get by id", func(t *testing.T) {
		ref, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, 3, ref.Version)
		assert.Equal(t, "cafe", ref.Tags.Value("amenity"))

		outside, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, outside, "node outside the AOI must not be visible")
	})

	t.Run("batch", func(t *testing.T) {
		loader, ok := repo.(repository.ReferenceBatchLoader)
		require.True(t, ok)
		refs, err := loader.GetByIDs(ctx, []int64{1, 100, 999})
		require.NoError(t, err)
		assert.Len(t, refs, 2)
	})

	t.Run("containing building", func(t *testing.T) {
		ref, err := repo.FindContaining(ctx, orb.Point{-104.0, 40.0})
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, int64(100), ref.ID)
		_, ok := ref.Polygon()
		assert.True(t, ok)

		none, err := repo.FindContaining(ctx, orb.Point{-105.5, 40.5})
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("nearby", func(t *testing.T) {
		refs, err := repo.FindNearby(ctx, orb.Point{-105.00001, 40.0}, 2)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, int64(1), refs[0].ID)
	})
}
