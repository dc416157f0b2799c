package source

import (
	"sort"
	"sync"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/maypok86/otter/v2"
)

// DefaultCapacity is the tile residency bound used when no capacity is
// configured.
const DefaultCapacity = 128

// Cache holds the DEM tiles available to the sampling engine. Residency is
// bounded by an LRU policy. Lookups never trigger loads; tiles enter the
// cache only through Add.
type Cache struct {
	maxZoom uint32
	cache   *otter.Cache[models.OverscaledTileID, *dem.Tile]
	uids    models.SequentialIDGenerator

	mutex       sync.RWMutex
	tiles       map[models.OverscaledTileID]*dem.Tile
	dataMaxZoom uint32
}

// NewCache creates a tile cache. maxZoom is the zoom at which point queries
// resolve tile identities; zero derives it from the deepest tile added.
// capacity bounds the number of resident tiles, DefaultCapacity when not
// positive.
func NewCache(maxZoom uint32, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &Cache{
		maxZoom: maxZoom,
		tiles:   make(map[models.OverscaledTileID]*dem.Tile),
	}

	cache, err := otter.New(&otter.Options[models.OverscaledTileID, *dem.Tile]{
		MaximumSize: capacity,
		OnDeletion: func(e otter.DeletionEvent[models.OverscaledTileID, *dem.Tile]) {
			c.drop(e.Value)
		},
	})
	if err != nil {
		return nil, errors.New("creating dem tile cache failed").Wrap(err)
	}
	c.cache = cache

	return c, nil
}

// MaxZoom returns the zoom at which point queries resolve tile identities.
func (c *Cache) MaxZoom() uint32 {
	if c.maxZoom != 0 {
		return c.maxZoom
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.dataMaxZoom
}

// Add stores a decoded height grid under the given identity and returns the
// stored tile, stamped with a uid unique among resident tiles.
func (c *Cache) Add(id models.OverscaledTileID, data *dem.Data) *dem.Tile {
	t := &dem.Tile{
		ID:   id,
		UID:  c.uids.New(),
		Data: data,
	}

	c.mutex.Lock()
	c.tiles[id] = t
	if id.Z > c.dataMaxZoom {
		c.dataMaxZoom = id.Z
	}
	c.mutex.Unlock()

	c.cache.Set(id, t)
	instrumentTileAdded(id.Canonical.Z)
	return t
}

// DEMTile returns the tile stored under exactly the given identity, or nil.
// The lookup counts as a use for the eviction policy.
func (c *Cache) DEMTile(id models.OverscaledTileID) *dem.Tile {
	t, ok := c.cache.GetIfPresent(id)
	if !ok {
		return nil
	}
	return t
}

// FindDEMTile returns the tile stored under id or, failing that, the nearest
// resident ancestor covering it. Identities deeper than MaxZoom are clamped
// before the walk. Nil when nothing covers the identity.
func (c *Cache) FindDEMTile(id models.OverscaledTileID) *dem.Tile {
	if maxZoom := c.MaxZoom(); id.Z > maxZoom {
		id = id.ScaledTo(maxZoom)
	}

	for {
		if t := c.DEMTile(id); t != nil {
			return t
		}
		if id.Z == 0 {
			return nil
		}
		id = id.ScaledTo(id.Z - 1)
	}
}

// Tiles returns a snapshot of the resident tiles ordered by identity.
func (c *Cache) Tiles() []*dem.Tile {
	c.mutex.RLock()
	tiles := make([]*dem.Tile, 0, len(c.tiles))
	for _, t := range c.tiles {
		tiles = append(tiles, t)
	}
	c.mutex.RUnlock()

	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i].ID, tiles[j].ID
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Canonical.X != b.Canonical.X {
			return a.Canonical.X < b.Canonical.X
		}
		if a.Canonical.Y != b.Canonical.Y {
			return a.Canonical.Y < b.Canonical.Y
		}
		return a.Wrap < b.Wrap
	})
	return tiles
}

// Len returns the number of resident tiles.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.tiles)
}

func (c *Cache) drop(t *dem.Tile) {
	c.mutex.Lock()
	if cur, ok := c.tiles[t.ID]; ok && cur == t {
		delete(c.tiles, t.ID)
	}
	c.mutex.Unlock()

	c.uids.Reuse(t.UID)
	instrumentTileDropped()
}
