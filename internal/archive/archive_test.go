package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/jmoiron/sqlx"
	"github.com/protomaps/go-pmtiles/pmtiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testBounds = domain.BBox{MinLon: -105.642662, MinLat: 39.91758, MaxLon: -105.631343, MaxLat: 39.92925}

// writeCache раскладывает тайлы в кеш z/y/x.ext
func writeCache(t *testing.T, tiles map[domain.TileCoord]string, ext string) string {
	t.Helper()
	dir := t.TempDir()
	for tc, data := range tiles {
		path := filepath.Join(dir, strconv.Itoa(tc.Z), strconv.Itoa(tc.Y), strconv.Itoa(tc.X)+"."+ext)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	}
	return dir
}

func openDB(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"out.mbtiles":   FormatMBTiles,
		"out.sqlitedb":  FormatSQLiteDB,
		"out.sqlite":    FormatSQLiteDB,
		"OUT.PMTILES":   FormatPMTiles,
		"dir/a.mbtiles": FormatMBTiles,
	}
	for path, expected := range tests {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, expected, got, path)
	}

	_, err := FormatOf("out.zip")
	assert.ErrorIs(t, err, apperrors.ErrInput)
}

func TestMBTiles_OneTileCache(t *testing.T) {
	tile := domain.TileCoord{Z: 10, X: 211, Y: 388}
	cache := writeCache(t, map[domain.TileCoord]string{tile: "JPEGDATA"}, "jpg")
	path := filepath.Join(t.TempDir(), "area.mbtiles")

	w, err := Open(path, Options{Format: "jpg", Bounds: testBounds}, zap.NewNop())
	require.NoError(t, err)
	n, err := BuildFromCache(context.Background(), cache, w, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	db := openDB(t, path)

	var rows []struct {
		Z    int    `db:"zoom_level"`
		X    int    `db:"tile_column"`
		Y    int    `db:"tile_row"`
		Data []byte `db:"tile_data"`
	}
	require.NoError(t, db.Select(&rows, `SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles`))
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Z)
	assert.Equal(t, 211, rows[0].X)
	assert.Equal(t, (1<<10)-388-1, rows[0].Y)
	assert.Equal(t, []byte("JPEGDATA"), rows[0].Data)

	meta := map[string]string{}
	var pairs []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}
	require.NoError(t, db.Select(&pairs, `SELECT name, value FROM metadata`))
	for _, p := range pairs {
		meta[p.Name] = p.Value
	}
	assert.Equal(t, "-105.642662,39.91758,-105.631343,39.92925", meta["bounds"])
	assert.Equal(t, "1.1", meta["version"])
	assert.Equal(t, "baselayer", meta["type"])
	assert.Equal(t, "jpg", meta["format"])
	assert.Equal(t, "area", meta["name"])
	assert.Equal(t, "10", meta["minzoom"])
	assert.Equal(t, "10", meta["maxzoom"])
}

func TestMBTiles_IdempotentAndAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "area.mbtiles")
	tile := domain.TileCoord{Z: 2, X: 1, Y: 1}

	w, err := NewMBTiles(path, Options{Bounds: testBounds}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(ctx, tile, []byte("a")))
	require.NoError(t, w.WriteTile(ctx, tile, []byte("b")))
	require.NoError(t, w.Close())

	w, err = NewMBTiles(path, Options{Bounds: testBounds, Append: true}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 3, X: 0, Y: 0}, []byte("c")))
	require.NoError(t, w.Close())

	db := openDB(t, path)
	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM tiles`))
	assert.Equal(t, 2, count)

	var data []byte
	require.NoError(t, db.Get(&data, `SELECT tile_data FROM tiles WHERE zoom_level = 2`))
	assert.Equal(t, []byte("b"), data)

	var maxZoom string
	require.NoError(t, db.Get(&maxZoom, `SELECT value FROM metadata WHERE name = 'maxzoom'`))
	assert.Equal(t, "3", maxZoom)
}

func TestMBTiles_OverwriteWithoutAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "area.mbtiles")

	w, err := NewMBTiles(path, Options{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 1}, []byte("a")))
	require.NoError(t, w.Close())

	w, err = NewMBTiles(path, Options{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var count int
	require.NoError(t, openDB(t, path).Get(&count, `SELECT COUNT(*) FROM tiles`))
	assert.Equal(t, 0, count)
}

func TestSQLiteDB_Layout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "area.sqlitedb")

	w, err := Open(path, Options{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 12, X: 846, Y: 1554}, []byte("img12")))
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 14, X: 3385, Y: 6218}, []byte("img14")))
	require.NoError(t, w.Close())

	w, err = NewSQLiteDB(path, Options{Append: true}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 10, X: 211, Y: 388}, []byte("img10")))
	require.NoError(t, w.Close())

	db := openDB(t, path)

	var rows []struct {
		X int `db:"x"`
		Y int `db:"y"`
		Z int `db:"z"`
		S int `db:"s"`
	}
	require.NoError(t, db.Select(&rows, `SELECT x, y, z, s FROM tiles ORDER BY z`))
	require.Len(t, rows, 3)
	assert.Equal(t, 17-14, rows[0].Z)
	assert.Equal(t, 3385, rows[0].X)
	assert.Equal(t, 6218, rows[0].Y)
	assert.Equal(t, 17-10, rows[2].Z)
	for _, r := range rows {
		assert.Equal(t, 0, r.S)
	}

	var info []struct {
		MaxZoom int `db:"maxzoom"`
		MinZoom int `db:"minzoom"`
	}
	require.NoError(t, db.Select(&info, `SELECT maxzoom, minzoom FROM info`))
	require.Len(t, info, 1)
	assert.Equal(t, 7, info[0].MaxZoom)
	assert.Equal(t, 3, info[0].MinZoom)

	var locales []string
	require.NoError(t, db.Select(&locales, `SELECT locale FROM android_metadata`))
	assert.Equal(t, []string{"en_US"}, locales)
}

func TestPMTiles_Write(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "area.pmtiles")

	w, err := Open(path, Options{Format: "png", Bounds: testBounds, Attribution: "© Test"}, zap.NewNop())
	require.NoError(t, err)
	// два одинаковых тайла подряд и один отличный
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 1, X: 1, Y: 1}, []byte("blue")))
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 1, X: 0, Y: 0}, []byte("blue")))
	require.NoError(t, w.WriteTile(ctx, domain.TileCoord{Z: 2, X: 0, Y: 0}, []byte("red!")))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), headerLen)
	assert.Equal(t, "PMTiles", string(data[:7]))

	header, err := pmtiles.DeserializeHeader(data[:headerLen])
	require.NoError(t, err)
	assert.Equal(t, uint8(3), header.SpecVersion)
	assert.Equal(t, pmtiles.Png, header.TileType)
	assert.Equal(t, pmtiles.NoCompression, header.TileCompression)
	assert.Equal(t, uint64(3), header.AddressedTilesCount)
	assert.Equal(t, uint64(2), header.TileContentsCount)
	assert.Equal(t, uint8(1), header.MinZoom)
	assert.Equal(t, uint8(2), header.MaxZoom)
	assert.InDelta(t, -1056426620, float64(header.MinLonE7), 1)
	assert.Equal(t, uint64(8), header.TileDataLength)
	assert.True(t, header.Clustered)

	var meta map[string]string
	metaBytes := data[header.MetadataOffset : header.MetadataOffset+header.MetadataLength]
	require.NoError(t, json.Unmarshal(metaBytes, &meta))
	assert.Equal(t, "© Test", meta["attribution"])

	tileData := data[header.TileDataOffset : header.TileDataOffset+header.TileDataLength]
	assert.Equal(t, "bluered!", string(tileData))
}

func TestPMTiles_HashCollisionKeepsBoth(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "collide.pmtiles")

	p, err := NewPMTiles(path, Options{Format: "png", Bounds: testBounds}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.WriteTile(ctx, domain.TileCoord{Z: 0, X: 0, Y: 0}, []byte("blue")))

	// тот же хеш и длина, но другое содержимое
	p.blobs[xxhash.Sum64([]byte("pink"))] = p.blobs[xxhash.Sum64([]byte("blue"))]
	require.NoError(t, p.WriteTile(ctx, domain.TileCoord{Z: 1, X: 0, Y: 0}, []byte("pink")))
	// настоящий дубликат переиспользует blob
	require.NoError(t, p.WriteTile(ctx, domain.TileCoord{Z: 1, X: 1, Y: 1}, []byte("blue")))
	require.NoError(t, p.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	header, err := pmtiles.DeserializeHeader(data[:headerLen])
	require.NoError(t, err)
	assert.Equal(t, uint64(3), header.AddressedTilesCount)
	assert.Equal(t, uint64(2), header.TileContentsCount)

	tileData := data[header.TileDataOffset : header.TileDataOffset+header.TileDataLength]
	assert.Equal(t, "bluepink", string(tileData))
}

func TestPMTiles_AppendUnsupported(t *testing.T) {
	_, err := NewPMTiles(filepath.Join(t.TempDir(), "a.pmtiles"), Options{Append: true}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrInput)
}

func TestBuildDirectories_Leaves(t *testing.T) {
	small := []pmtiles.EntryV3{{TileID: 1, Offset: 0, Length: 10, RunLength: 1}}
	root, leaves := buildDirectories(small)
	assert.NotEmpty(t, root)
	assert.Nil(t, leaves)

	// разрывы в id и разные смещения не дают сжать директорию
	var many []pmtiles.EntryV3
	for i := 0; i < 30000; i++ {
		many = append(many, pmtiles.EntryV3{
			TileID:    uint64(i * 3),
			Offset:    uint64(i) * 1000,
			Length:    uint32(1000 + i%7),
			RunLength: 1,
		})
	}
	root, leaves = buildDirectories(many)
	assert.LessOrEqual(t, len(root), maxRootSize)
	assert.NotEmpty(t, leaves)
}

func TestBuildFromCache_Filter(t *testing.T) {
	wanted := domain.TileCoord{Z: 1, X: 0, Y: 0}
	cache := writeCache(t, map[domain.TileCoord]string{
		wanted:             "a",
		{Z: 1, X: 1, Y: 1}: "b",
		{Z: 2, X: 3, Y: 3}: "c",
	}, "png")
	path := filepath.Join(t.TempDir(), "area.sqlitedb")

	w, err := Open(path, Options{}, zap.NewNop())
	require.NoError(t, err)
	n, err := BuildFromCache(context.Background(), cache, w, func(tc domain.TileCoord) bool {
		return tc == wanted
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 1, n)

	_, err = BuildFromCache(context.Background(), filepath.Join(cache, "missing"), w, nil)
	assert.ErrorIs(t, err, apperrors.ErrInput)
}

func TestCachedTile(t *testing.T) {
	root := filepath.FromSlash("/cache/esritiles")
	tests := []struct {
		path string
		ok   bool
		tile domain.TileCoord
	}{
		{"/cache/esritiles/10/388/211.jpg", true, domain.TileCoord{Z: 10, X: 211, Y: 388}},
		{"/cache/esritiles/0/0/0.png", true, domain.TileCoord{}},
		{"/cache/esritiles/10/388/211.jpg.part", false, domain.TileCoord{}},
		{"/cache/esritiles/10/388/readme.txt", false, domain.TileCoord{}},
		{"/cache/esritiles/1/5/0.png", false, domain.TileCoord{}},
		{"/cache/esritiles/metadata.json", false, domain.TileCoord{}},
	}
	for _, tt := range tests {
		tile, ok := cachedTile(root, filepath.FromSlash(tt.path))
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.tile, tile, tt.path)
	}
}
