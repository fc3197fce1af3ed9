package loader

import (
	"fmt"
	"sync"
)

// Unit is an initialized implementation unit.
type Unit struct {
	ID      string
	Source  string // module ID or plugin path the unit was loaded from
	Symbols Symbols
}

// Cache holds initialized units keyed by unit ID. It is owned by the caller
// and shared by reference; a unit's InitFunc runs at most once per Cache.
type Cache struct {
	mu    sync.Mutex
	units map[string]*Unit
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{units: make(map[string]*Unit)}
}

// load returns the cached unit for id or initializes it. Failed
// initializations are not cached.
func (c *Cache) load(id, source string, init InitFunc) (*Unit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if u, ok := c.units[id]; ok {
		if u.Source != source {
			return nil, fmt.Errorf("%w: unit %s already loaded from %s, not %s", ErrImplementationLoad, id, u.Source, source)
		}
		return u, nil
	}

	symbols, err := init()
	if err != nil {
		return nil, fmt.Errorf("%w: initializing unit %s: %w", ErrImplementationLoad, id, err)
	}
	if symbols == nil {
		symbols = Symbols{}
	}

	u := &Unit{ID: id, Source: source, Symbols: symbols}
	c.units[id] = u
	return u, nil
}

// Unit returns the cached unit for id, if any.
func (c *Cache) Unit(id string) (*Unit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.units[id]
	return u, ok
}

// Len returns the number of initialized units.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.units)
}
