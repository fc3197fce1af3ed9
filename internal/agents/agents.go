// Package agents registers the built-in agent implementations with a loader
// catalog under their logical module IDs.
package agents

import (
	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/agents/deploy"
	"github.com/freqkflag/agentrunner/internal/agents/lintfix"
	"github.com/freqkflag/agentrunner/internal/agents/logtail"
	"github.com/freqkflag/agentrunner/internal/agents/status"
	"github.com/freqkflag/agentrunner/internal/loader"
)

// Module IDs accepted in a registry entry's "module" field.
const (
	DeployModule  = "agents/deploy"
	StatusModule  = "agents/status"
	LintfixModule = "agents/lintfix"
	LogtailModule = "agents/logtail"
)

// Register adds every built-in unit to c.
func Register(c *loader.Catalog) error {
	units := []struct {
		id      string
		symbols loader.Symbols
	}{
		{DeployModule, loader.Symbols{"DeployAgent": agent.Factory(deploy.New)}},
		{StatusModule, loader.Symbols{"StatusAgent": agent.Factory(status.New)}},
		{LintfixModule, loader.Symbols{
			"LintResolverAgent": agent.Factory(lintfix.New),
			"DefaultResolvers":  lintfix.DefaultResolvers,
		}},
		{LogtailModule, loader.Symbols{"LoggerAgent": agent.Factory(logtail.New)}},
	}
	for _, u := range units {
		if err := c.Register(u.id, loader.Static(u.symbols)); err != nil {
			return err
		}
	}
	return nil
}

// Catalog returns a new catalog holding the built-in units.
func Catalog() *loader.Catalog {
	c := loader.NewCatalog()
	if err := Register(c); err != nil {
		panic(err)
	}
	return c
}
