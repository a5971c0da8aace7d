package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/protomaps/go-pmtiles/pmtiles"
	"go.uber.org/zap"
)

const (
	headerLen = 127
	// maxRootSize - корневая директория вместе с заголовком должна уложиться в 16 KiB
	maxRootSize     = 16384 - headerLen
	initialLeafSize = 4096
)

type blob struct {
	offset uint64
	length uint32
}

// PMTiles собирает архив PMTiles v3. Данные тайлов копятся во временном файле,
// одинаковые тайлы хранятся один раз; при Close тайлы переписываются в порядке tile id.
type PMTiles struct {
	path    string
	opts    Options
	tmp     *os.File
	tmpSize uint64
	blobs   map[uint64][]blob
	tiles   map[uint64]blob
	minZoom int
	maxZoom int
	mu      sync.Mutex
	closed  bool
	logger  *zap.Logger
}

func NewPMTiles(path string, opts Options, logger *zap.Logger) (*PMTiles, error) {
	if opts.Append {
		return nil, apperrors.Newf(apperrors.ErrInput, "append mode is not supported for pmtiles")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pmtiles-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "failed to create temp file")
	}

	logger.Info("PMTiles archive opened", zap.String("path", path))
	return &PMTiles{
		path:    path,
		opts:    opts,
		tmp:     tmp,
		blobs:   make(map[uint64][]blob),
		tiles:   make(map[uint64]blob),
		minZoom: -1,
		maxZoom: -1,
		logger:  logger,
	}, nil
}

func (p *PMTiles) WriteTile(_ context.Context, t domain.TileCoord, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return apperrors.Newf(apperrors.ErrIO, "pmtiles archive is closed")
	}

	id := pmtiles.ZxyToID(uint8(t.Z), uint32(t.X), uint32(t.Y))

	h := xxhash.Sum64(data)
	b, ok, err := p.lookup(h, data)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to read buffered tile %s", t)
	}
	if !ok {
		if _, err := p.tmp.Write(data); err != nil {
			return apperrors.Wrap(apperrors.ErrIO, err, "failed to buffer tile %s", t)
		}
		b = blob{offset: p.tmpSize, length: uint32(len(data))}
		p.tmpSize += uint64(len(data))
		p.blobs[h] = append(p.blobs[h], b)
	}
	p.tiles[id] = b

	if p.minZoom < 0 || t.Z < p.minZoom {
		p.minZoom = t.Z
	}
	if t.Z > p.maxZoom {
		p.maxZoom = t.Z
	}
	return nil
}

// lookup ищет уже записанный blob с тем же содержимым. Совпадение хеша и длины
// проверяется побайтовым сравнением с данными во временном файле.
func (p *PMTiles) lookup(h uint64, data []byte) (blob, bool, error) {
	for _, b := range p.blobs[h] {
		if b.length != uint32(len(data)) {
			continue
		}
		stored := make([]byte, b.length)
		if _, err := p.tmp.ReadAt(stored, int64(b.offset)); err != nil {
			return blob{}, false, err
		}
		if bytes.Equal(stored, data) {
			return b, true, nil
		}
	}
	return blob{}, false, nil
}

// Close пишет заголовок, директории, метаданные и данные тайлов
func (p *PMTiles) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	defer func() {
		p.tmp.Close()
		os.Remove(p.tmp.Name())
	}()

	// 1. Порядок тайлов и новые смещения: данные идут в порядке tile id
	ids := make([]uint64, 0, len(p.tiles))
	for id := range p.tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	relocated := make(map[uint64]uint64, len(p.blobs))
	var order []blob
	var dataLen uint64
	var entries []pmtiles.EntryV3

	for _, id := range ids {
		b := p.tiles[id]
		offset, ok := relocated[b.offset]
		if !ok {
			offset = dataLen
			relocated[b.offset] = offset
			order = append(order, b)
			dataLen += uint64(b.length)
		}

		// 2. Run-length: подряд идущие id с одним и тем же содержимым
		if n := len(entries); n > 0 {
			last := &entries[n-1]
			if last.Offset == offset && last.TileID+uint64(last.RunLength) == id {
				last.RunLength++
				continue
			}
		}
		entries = append(entries, pmtiles.EntryV3{TileID: id, Offset: offset, Length: b.length, RunLength: 1})
	}

	// 3. Директории и метаданные
	root, leaves := buildDirectories(entries)
	metadata, err := p.metadata()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to encode metadata")
	}

	header := p.header(len(ids), len(entries), len(order))
	header.RootOffset = headerLen
	header.RootLength = uint64(len(root))
	header.MetadataOffset = header.RootOffset + header.RootLength
	header.MetadataLength = uint64(len(metadata))
	header.LeafDirectoryOffset = header.MetadataOffset + header.MetadataLength
	header.LeafDirectoryLength = uint64(len(leaves))
	header.TileDataOffset = header.LeafDirectoryOffset + header.LeafDirectoryLength
	header.TileDataLength = dataLen

	// 4. Запись файла
	if err := p.writeFile(header, root, metadata, leaves, order); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "failed to write %s", p.path)
	}

	p.logger.Info("PMTiles archive closed",
		zap.String("path", p.path),
		zap.Int("tiles", len(ids)),
		zap.Int("entries", len(entries)),
		zap.Int("unique", len(order)),
		zap.Int("leaf_bytes", len(leaves)))
	return nil
}

func (p *PMTiles) header(addressed, entries, contents int) pmtiles.HeaderV3 {
	var h pmtiles.HeaderV3
	h.SpecVersion = 3
	h.AddressedTilesCount = uint64(addressed)
	h.TileEntriesCount = uint64(entries)
	h.TileContentsCount = uint64(contents)
	h.Clustered = true
	h.InternalCompression = pmtiles.NoCompression
	h.TileCompression = pmtiles.NoCompression
	h.TileType = pmtiles.Jpeg
	if p.opts.format() == "png" {
		h.TileType = pmtiles.Png
	}

	if p.minZoom >= 0 {
		h.MinZoom = uint8(p.minZoom)
		h.MaxZoom = uint8(p.maxZoom)
	}
	h.CenterZoom = h.MinZoom + (h.MaxZoom-h.MinZoom)/2

	b := p.opts.Bounds
	h.MinLonE7 = toE7(b.MinLon)
	h.MinLatE7 = toE7(b.MinLat)
	h.MaxLonE7 = toE7(b.MaxLon)
	h.MaxLatE7 = toE7(b.MaxLat)
	center := b.Center()
	h.CenterLonE7 = toE7(center[0])
	h.CenterLatE7 = toE7(center[1])
	return h
}

func (p *PMTiles) metadata() ([]byte, error) {
	return json.Marshal(map[string]string{
		"name":        p.opts.name(p.path),
		"description": p.opts.Description,
		"attribution": p.opts.Attribution,
		"format":      p.opts.format(),
		"type":        "baselayer",
	})
}

func (p *PMTiles) writeFile(header pmtiles.HeaderV3, root, metadata, leaves []byte, order []blob) error {
	f, err := os.Create(p.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, part := range [][]byte{pmtiles.SerializeHeader(header), root, metadata, leaves} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	for _, b := range order {
		if _, err := io.Copy(w, io.NewSectionReader(p.tmp, int64(b.offset), int64(b.length))); err != nil {
			return fmt.Errorf("failed to copy tile data: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// buildDirectories возвращает корневую директорию и, если она не помещается
// в maxRootSize, блок листовых директорий. Размер листа удваивается,
// пока корень не уложится в лимит.
func buildDirectories(entries []pmtiles.EntryV3) (root, leaves []byte) {
	root = pmtiles.SerializeEntries(entries, pmtiles.NoCompression)
	if len(root) <= maxRootSize {
		return root, nil
	}

	for leafSize := initialLeafSize; ; leafSize *= 2 {
		var rootEntries []pmtiles.EntryV3
		leaves = nil
		for i := 0; i < len(entries); i += leafSize {
			end := min(i+leafSize, len(entries))
			leaf := pmtiles.SerializeEntries(entries[i:end], pmtiles.NoCompression)
			// RunLength 0 помечает ссылку на лист
			rootEntries = append(rootEntries, pmtiles.EntryV3{
				TileID:    entries[i].TileID,
				Offset:    uint64(len(leaves)),
				Length:    uint32(len(leaf)),
				RunLength: 0,
			})
			leaves = append(leaves, leaf...)
		}

		root = pmtiles.SerializeEntries(rootEntries, pmtiles.NoCompression)
		if len(root) <= maxRootSize {
			return root, leaves
		}
	}
}

func toE7(v float64) int32 {
	return int32(math.Round(v * 1e7))
}
