package basemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAOI_BBoxString(t *testing.T) {
	expected := domain.BBox{MinLon: -105.642662, MinLat: 39.91758, MaxLon: -105.631343, MaxLat: 39.92925}

	tests := []struct {
		name  string
		input string
	}{
		{"comma", "-105.642662,39.917580,-105.631343,39.929250"},
		{"space", "-105.642662 39.917580 -105.631343 39.929250"},
		{"mixed with padding", "  -105.642662, 39.917580, -105.631343, 39.929250\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bbox, geom, err := ResolveAOI([]byte(tt.input))
			require.NoError(t, err)
			assert.InDelta(t, expected.MinLon, bbox.MinLon, 1e-9)
			assert.InDelta(t, expected.MinLat, bbox.MinLat, 1e-9)
			assert.InDelta(t, expected.MaxLon, bbox.MaxLon, 1e-9)
			assert.InDelta(t, expected.MaxLat, bbox.MaxLat, 1e-9)
			assert.NotNil(t, geom)
		})
	}
}

func TestResolveAOI_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"1,2,3",
		"a,b,c,d",
		"10,10,0,0",
		`{"type":"FeatureCollection","features":[]}`,
		`{"type":"Feature","geometry":null,"properties":{}}`,
		`{"type":"Polygon"`,
	}
	for _, in := range inputs {
		_, _, err := ResolveAOI([]byte(in))
		assert.ErrorIs(t, err, apperrors.ErrInput, "input %q", in)
	}
}

func TestResolveAOI_GeoJSON(t *testing.T) {
	t.Run("bare geometry", func(t *testing.T) {
		bbox, _, err := ResolveAOI([]byte(`{"type":"Polygon","coordinates":[[[1,2],[3,2],[3,5],[1,5],[1,2]]]}`))
		require.NoError(t, err)
		assert.Equal(t, domain.BBox{MinLon: 1, MinLat: 2, MaxLon: 3, MaxLat: 5}, bbox)
	})

	t.Run("feature", func(t *testing.T) {
		bbox, _, err := ResolveAOI([]byte(`{"type":"Feature","properties":{},
			"geometry":{"type":"LineString","coordinates":[[-1,-1],[2,4]]}}`))
		require.NoError(t, err)
		assert.Equal(t, domain.BBox{MinLon: -1, MinLat: -1, MaxLon: 2, MaxLat: 4}, bbox)
	})

	t.Run("collection union", func(t *testing.T) {
		bbox, _, err := ResolveAOI([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[10,10]}},
			{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
		]}`))
		require.NoError(t, err)
		assert.Equal(t, domain.BBox{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10}, bbox)
	})
}

func TestResolveAOIFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoi.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Point","coordinates":[5,6]}`), 0o644))

	bbox, _, err := ResolveAOIFile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.BBox{MinLon: 5, MinLat: 6, MaxLon: 5, MaxLat: 6}, bbox)

	_, _, err = ResolveAOIFile(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.ErrorIs(t, err, apperrors.ErrInput)
}
