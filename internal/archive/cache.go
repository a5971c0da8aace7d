package archive

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
)

// BuildFromCache обходит кеш dir/z/y/x.ext и пишет найденные тайлы в архив.
// keep отбирает нужные тайлы (nil - все). Файлы с другой структурой имени
// пропускаются. Возвращает число записанных тайлов.
func BuildFromCache(ctx context.Context, dir string, w Writer, keep func(domain.TileCoord) bool) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInput, err, "tile cache %s is not readable", dir)
	}

	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		t, ok := cachedTile(dir, path)
		if !ok || (keep != nil && !keep(t)) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrIO, err, "failed to read %s", path)
		}
		if len(data) == 0 {
			return nil
		}
		if err := w.WriteTile(ctx, t, data); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// cachedTile разбирает путь вида z/y/x.ext относительно корня кеша
func cachedTile(root, path string) (domain.TileCoord, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return domain.TileCoord{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return domain.TileCoord{}, false
	}

	name, ext, ok := strings.Cut(parts[2], ".")
	if !ok || strings.Contains(ext, ".") {
		return domain.TileCoord{}, false
	}

	z, errZ := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	x, errX := strconv.Atoi(name)
	if errZ != nil || errY != nil || errX != nil {
		return domain.TileCoord{}, false
	}
	if z < 0 || z > 30 || x < 0 || y < 0 || x >= 1<<uint(z) || y >= 1<<uint(z) {
		return domain.TileCoord{}, false
	}
	return domain.TileCoord{Z: z, X: x, Y: y}, true
}
