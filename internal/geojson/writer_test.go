package geojson

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldmap-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriter_PointsWithMergedProperties(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, zap.NewNop())

	f := domain.NewNode()
	f.Attrs.Lat, f.Attrs.Lon = "40.0", "-105.0"
	f.Tags.Set("amenity", "cafe")
	f.Tags.Set("name", "Joe&apos;s")
	f.Private.Set("income", "high")
	require.NoError(t, w.Write(f))

	way := domain.NewWay()
	way.Refs = []int64{1, 2}
	require.NoError(t, w.Write(way))
	require.NoError(t, w.Write(domain.NewNode()))
	assert.Equal(t, 1, w.Len())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	feature := fc.Features[0]
	assert.Equal(t, orb.Point{-105.0, 40.0}, feature.Geometry)
	assert.Equal(t, "cafe", feature.Properties["amenity"])
	assert.Equal(t, "Joe's", feature.Properties["name"])
	assert.Equal(t, "high", feature.Properties["income"])
}

func TestCreate_WritesEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	w, err := Create(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
	assert.Equal(t, "FeatureCollection", fc.Type)
}
