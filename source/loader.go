package source

import (
	"context"
	"encoding/binary"
	"image/png"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/klauspost/compress/gzip"
)

// LoadDirectory fills a cache with the DEM tiles found under dir, laid out
// as z/x/y.png raster tiles or z/x/y.bin.gz gzipped little-endian float32
// grids. Files that do not match the layout are ignored; tiles that fail to
// decode are logged and skipped. Returns the number of tiles added.
func LoadDirectory(ctx context.Context, dir string, encoding dem.Encoding, cache *Cache) (int, error) {
	var loaded int

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		id, ok := tileIDFromPath(dir, path)
		if !ok {
			return nil
		}
		if !id.Canonical.IsValid() {
			instrumentTileLoadError()
			logs.WithTag("path", path).
				Warn(errors.New("dem fixture addresses a tile outside its zoom"))
			return nil
		}

		data, err := loadTileData(path, encoding)
		if err != nil {
			instrumentTileLoadError()
			logs.WithTag("path", path).
				Warn(errors.New("loading dem fixture failed").Wrap(err))
			return nil
		}

		cache.Add(id, data)
		loaded++
		logs.WithTag("tile", id.String()).
			WithTag("dim", data.Dim()).
			Debug("dem tile loaded")
		return nil
	})
	if err != nil {
		return loaded, errors.New("walking dem directory failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	return loaded, nil
}

func tileIDFromPath(dir, path string) (models.OverscaledTileID, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return models.OverscaledTileID{}, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return models.OverscaledTileID{}, false
	}

	name := parts[2]
	switch {
	case strings.HasSuffix(name, ".png"):
		name = strings.TrimSuffix(name, ".png")
	case strings.HasSuffix(name, ".bin.gz"):
		name = strings.TrimSuffix(name, ".bin.gz")
	default:
		return models.OverscaledTileID{}, false
	}

	z, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return models.OverscaledTileID{}, false
	}
	x, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return models.OverscaledTileID{}, false
	}
	y, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return models.OverscaledTileID{}, false
	}

	return models.NewOverscaledTileID(uint32(z), 0, uint32(x), uint32(y)), true
}

func loadTileData(path string, encoding dem.Encoding) (*dem.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("opening dem fixture failed").Wrap(err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".png") {
		img, err := png.Decode(f)
		if err != nil {
			return nil, errors.New("decoding dem png failed").Wrap(err)
		}
		return dem.NewFromImage(img, encoding)
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.New("opening dem gzip stream failed").Wrap(err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.New("reading dem height grid failed").Wrap(err)
	}
	if len(raw)%4 != 0 {
		return nil, errors.New("dem height grid is not a float32 sequence").
			WithTag("bytes", len(raw))
	}

	count := len(raw) / 4
	dim := int(math.Sqrt(float64(count)))
	if dim*dim != count {
		return nil, errors.New("dem height grid is not square").
			WithTag("count", count)
	}

	heights := make([]float64, count)
	for i := range heights {
		heights[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return dem.NewFromHeights(dim, heights)
}
