package loader

import (
	"fmt"
	"sort"
	"sync"
)

// Symbols are the named values a unit exports.
type Symbols map[string]any

// InitFunc initializes a unit and returns its symbols.
type InitFunc func() (Symbols, error)

// Catalog maps logical module IDs to the units compiled into the binary.
type Catalog struct {
	mu    sync.RWMutex
	units map[string]InitFunc
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{units: make(map[string]InitFunc)}
}

// Register adds a unit under id. Registering an id twice is an error.
func (c *Catalog) Register(id string, init InitFunc) error {
	if id == "" || init == nil {
		return fmt.Errorf("registering unit %q: id and init are required", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.units[id]; exists {
		return fmt.Errorf("unit %q is already registered", id)
	}
	c.units[id] = init
	return nil
}

// MustRegister is Register for package initialization; it panics on error.
func (c *Catalog) MustRegister(id string, init InitFunc) {
	if err := c.Register(id, init); err != nil {
		panic(err)
	}
}

// Static returns an InitFunc that exports a fixed symbol table.
func Static(symbols Symbols) InitFunc {
	return func() (Symbols, error) { return symbols, nil }
}

func (c *Catalog) lookup(id string) (InitFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	init, ok := c.units[id]
	return init, ok
}

// IDs returns the registered module IDs, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.units))
	for id := range c.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
