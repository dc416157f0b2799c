// Package terrain answers elevation queries against a quantized DEM tile
// set: point sampling, batched tile-local sampling and ray intersection.
package terrain

import (
	"sync"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/featureflag"
	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/fjall/source"
)

// Provider supplies the capability hooks the elevation engine samples
// through. A concrete renderer implements it.
type Provider interface {
	// SourceCache returns the active DEM-bearing tile cache, nil when
	// terrain is inactive.
	SourceCache() *source.Cache

	// Exaggeration returns the current height multiplier. It is read on
	// every operation, never cached, so style changes apply to the next
	// query immediately.
	Exaggeration() float64

	// FindDEMTile returns the best loaded DEM tile covering the identity,
	// or nil. Whether that means an exact match or the nearest loaded
	// ancestor is the implementation's choice.
	FindDEMTile(id models.OverscaledTileID) *dem.Tile
}

// Terrain is the reference Provider: a tile cache paired with a live
// exaggeration factor. Screen picking stays unimplemented; embedding
// renderers override it with a depth-buffer backed implementation.
type Terrain struct {
	UnimplementedPicker

	cache *source.Cache
	flags featureflag.FeatureFlag

	mutex        sync.RWMutex
	exaggeration float64
}

// New creates a terrain provider over the given tile cache.
func New(cache *source.Cache, exaggeration float64, flags featureflag.FeatureFlag) *Terrain {
	return &Terrain{
		cache:        cache,
		flags:        flags,
		exaggeration: exaggeration,
	}
}

func (t *Terrain) SourceCache() *source.Cache {
	return t.cache
}

// Exaggeration returns the current height multiplier, fixed to 1 when
// exaggeration is disabled by feature flag.
func (t *Terrain) Exaggeration() float64 {
	if t.flags.Enabled(featureflag.FlagDisableExaggeration) {
		return 1
	}

	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.exaggeration
}

// SetExaggeration changes the height multiplier for subsequent queries.
func (t *Terrain) SetExaggeration(v float64) {
	t.mutex.Lock()
	t.exaggeration = v
	t.mutex.Unlock()
}

// FindDEMTile returns the deepest resident tile covering the identity.
func (t *Terrain) FindDEMTile(id models.OverscaledTileID) *dem.Tile {
	if t.cache == nil {
		return nil
	}
	return t.cache.FindDEMTile(id)
}
