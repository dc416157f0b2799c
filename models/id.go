package models

import "sync"

// SequentialIDGenerator hands out compact uint32 identifiers, reusing
// released ones before growing the sequence. The zero value is ready to use
// and never produces the zero id.
type SequentialIDGenerator struct {
	mutex    sync.Mutex
	lastID   uint32
	released []uint32
}

// New returns the next free id. Released ids are handed out first, most
// recently released on top.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n := len(g.released); n != 0 {
		id := g.released[n-1]
		g.released = g.released[:n-1]
		return id
	}

	g.lastID++
	return g.lastID
}

// Reuse marks the given id as free so a later New can return it.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.released = append(g.released, id)
}
