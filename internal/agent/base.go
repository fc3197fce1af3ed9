package agent

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Base carries the name, static config and host of an agent. Concrete agents
// embed it and extend the flag set it returns.
type Base struct {
	name string
	cfg  Config
	host Host
}

// NewBase returns a Base for the named agent. cfg is copied.
func NewBase(name string, cfg Config, host Host) Base {
	if cfg == nil {
		cfg = Config{}
	}
	return Base{name: name, cfg: cfg.Clone(), host: host.WithDefaults()}
}

func (b *Base) Name() string   { return b.name }
func (b *Base) Config() Config { return b.cfg }
func (b *Base) Host() Host     { return b.host }

// Logger returns the host logger scoped to this agent.
func (b *Base) Logger() *slog.Logger {
	return b.host.Logger.With("agent", b.name, "invocation", b.host.InvocationID)
}

func (b *Base) Description() string    { return b.cfg.String("description") }
func (b *Base) AllowedHosts() []string { return b.cfg.Strings("allowed_hosts") }
func (b *Base) Outputs() []string      { return b.cfg.Strings("outputs") }
func (b *Base) Tags() []string         { return b.cfg.Strings("tags") }

// Flags returns a new flag set named after the agent whose usage text leads
// with the configured description, or "Run agent <name>".
func (b *Base) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(b.name, pflag.ContinueOnError)
	fs.SortFlags = false
	desc := strings.TrimSpace(b.Description())
	if desc == "" {
		desc = "Run agent " + b.name
	}
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "usage: %s [flags]\n\n%s\n", b.name, desc)
		if fs.HasFlags() {
			fmt.Fprintf(out, "\nflags:\n%s", fs.FlagUsages())
		}
	}
	return fs
}

// ResolvePath expands value and anchors relative results at the repo root.
func (b *Base) ResolvePath(value string) string {
	expanded := os.ExpandEnv(expandHome(value))
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(b.host.RepoRoot, expanded)
	}
	return filepath.Clean(expanded)
}

// InfraRoot returns the first existing of the infra_root and
// fallback_infra_root config values and ~/infra, falling back to the repo root.
func (b *Base) InfraRoot() string {
	for _, candidate := range []string{b.cfg.String("infra_root"), b.cfg.String("fallback_infra_root"), "~/infra"} {
		if candidate == "" {
			continue
		}
		p := b.ResolvePath(candidate)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return b.host.RepoRoot
}

// ExpandPath expands a leading ~ and environment variables and returns an
// absolute path.
func ExpandPath(value string) (string, error) {
	p, err := filepath.Abs(os.ExpandEnv(expandHome(value)))
	if err != nil {
		return "", fmt.Errorf("expanding path %q: %w", value, err)
	}
	return p, nil
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
