package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBasemapRequestEvent_ArchiveFormat(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected string
	}{
		{name: "mbtiles", output: "/tmp/out.mbtiles", expected: "mbtiles"},
		{name: "upper case", output: "OUT.PMTiles", expected: "pmtiles"},
		{name: "osmand", output: "area.sqlitedb", expected: "sqlitedb"},
		{name: "no extension", output: "archive", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := BasemapRequestEvent{JobID: uuid.New(), Output: tt.output}
			assert.Equal(t, tt.expected, event.ArchiveFormat())
		})
	}
}

func TestBasemapJob_Finished(t *testing.T) {
	assert.False(t, (&BasemapJob{Status: JobStatusPending}).Finished())
	assert.False(t, (&BasemapJob{Status: JobStatusRunning}).Finished())
	assert.True(t, (&BasemapJob{Status: JobStatusDone}).Finished())
	assert.True(t, (&BasemapJob{Status: JobStatusFailed}).Finished())
}

func TestTileCoord_TMSY(t *testing.T) {
	assert.Equal(t, 0, TileCoord{Z: 0, X: 0, Y: 0}.TMSY())
	assert.Equal(t, 1023-211, TileCoord{Z: 10, X: 5, Y: 211}.TMSY())
}

func TestBBox_String(t *testing.T) {
	b := BBox{MinLon: -105.642662, MinLat: 39.91758, MaxLon: -105.631343, MaxLat: 39.92925}
	assert.Equal(t, "-105.642662,39.91758,-105.631343,39.92925", b.String())
	assert.NoError(t, b.Valid())
	assert.Error(t, BBox{MinLon: 10, MaxLon: 5}.Valid())
}
