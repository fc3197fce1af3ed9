package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/registry"
)

var (
	// ErrImplementationNotFound is returned when an entry's locator names
	// nothing that exists, or when it has no locator at all.
	ErrImplementationNotFound = errors.New("implementation not found")
	// ErrImplementationLoad is returned when a unit exists but cannot be
	// initialized, or its factory fails.
	ErrImplementationLoad = errors.New("implementation failed to load")
	// ErrSymbolNotFound is returned when the unit does not export the entry's class.
	ErrSymbolNotFound = errors.New("entry symbol not found")
	// ErrTypeMismatch is returned when the entry symbol is not an agent factory.
	ErrTypeMismatch = errors.New("entry symbol is not an agent factory")
)

// Loader resolves registry entries to agent instances.
type Loader struct {
	Catalog *Catalog
	Cache   *Cache
	Host    agent.Host
}

// New returns a Loader. A nil cache gets a private one.
func New(catalog *Catalog, cache *Cache, host agent.Host) *Loader {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Loader{Catalog: catalog, Cache: cache, Host: host.WithDefaults()}
}

// Resolve constructs a fresh agent for the named registry entry.
func (l *Loader) Resolve(ctx context.Context, name string, reg *registry.Registry) (agent.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}

	unit, err := l.Unit(entry)
	if err != nil {
		return nil, err
	}

	symbolName := entry.EntryPoint()
	symbol, ok := unit.Symbols[symbolName]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not export %s", ErrSymbolNotFound, unit.Source, symbolName)
	}

	factory, ok := asFactory(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is %T", ErrTypeMismatch, unit.Source, symbolName, symbol)
	}

	a, err := factory(name, agent.Config(entry.Config).Clone(), l.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: constructing agent %s: %w", ErrImplementationLoad, name, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s.%s returned no agent", ErrTypeMismatch, unit.Source, symbolName)
	}

	l.Host.Logger.Debug("resolved agent", "agent", name, "unit", unit.ID, "symbol", symbolName)
	return a, nil
}

// Unit initializes (or fetches from the cache) the unit an entry points at.
func (l *Loader) Unit(entry *registry.Entry) (*Unit, error) {
	switch {
	case entry.ModulePath != "":
		path := entry.ModulePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.Host.RepoRoot, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: module path for agent '%s': %s", ErrImplementationNotFound, entry.Name, path)
		}
		return l.Cache.load(PluginUnitID(entry.Name), path, pluginUnit(path))

	case entry.Module != "":
		init, ok := l.Catalog.lookup(entry.Module)
		if !ok {
			return nil, fmt.Errorf("%w: module %q for agent '%s' is not compiled in", ErrImplementationNotFound, entry.Module, entry.Name)
		}
		return l.Cache.load(entry.Module, entry.Module, init)
	}

	return nil, fmt.Errorf("%w: agent '%s' missing module_path or module", ErrImplementationNotFound, entry.Name)
}

func asFactory(symbol any) (agent.Factory, bool) {
	switch f := symbol.(type) {
	case agent.Factory:
		return f, f != nil
	case func(string, agent.Config, agent.Host) (agent.Agent, error):
		return f, f != nil
	}
	return nil, false
}
