// Package logtail merges new lines from infra log files into a single
// change log, remembering how far each file has been read.
package logtail

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/changelog"
	"github.com/freqkflag/agentrunner/internal/platform"
	"github.com/freqkflag/agentrunner/internal/state"
)

const (
	DefaultTargetLog = "CHANGE.log"
	DefaultStateFile = ".state/logger-agent.json"
)

// Alias maps a hostname fragment to a short host label.
type Alias struct {
	Match string
	Label string
}

// DefaultAliases are consulted in order when no host_aliases are configured.
var DefaultAliases = []Alias{
	{"home.macmini", "mac"},
	{"macmini", "mac"},
	{"twist3dkink", "mac"},
	{"twist3dkink.online", "mac"},
	{"vps.host", "vps"},
	{"freqkflag", "vps"},
	{"freqkflag.co", "vps"},
}

// Agent tails source_logs and appends new content to target_log.
type Agent struct {
	agent.Base

	infraRoot string
	targetLog string
	stateFile string
	direct    []string
	patterns  []string
	aliases   []Alias

	// Now and Hostname default to time.Now and os.Hostname.
	Now      func() time.Time
	Hostname func() (string, error)

	host   string
	dryRun bool
}

// New is the agent.Factory for the logger agent.
func New(name string, cfg agent.Config, host agent.Host) (agent.Agent, error) {
	a := &Agent{
		Base:     agent.NewBase(name, cfg, host),
		aliases:  DefaultAliases,
		Now:      time.Now,
		Hostname: os.Hostname,
	}
	a.infraRoot = a.InfraRoot()
	a.targetLog = a.underInfra(cfg.StringOr("target_log", DefaultTargetLog))
	a.stateFile = a.underInfra(cfg.StringOr("state_file", DefaultStateFile))

	for _, src := range cfg.Strings("source_logs") {
		if strings.ContainsAny(src, "*?[]") {
			a.patterns = append(a.patterns, a.underInfra(src))
		} else {
			a.direct = append(a.direct, a.underInfra(src))
		}
	}

	if m := cfg.Map("host_aliases"); len(m) > 0 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		a.aliases = nil
		for _, k := range keys {
			a.aliases = append(a.aliases, Alias{Match: strings.ToLower(k), Label: fmt.Sprint(m[k])})
		}
	}
	return a, nil
}

// underInfra expands value and anchors relative results at the infra root.
func (a *Agent) underInfra(value string) string {
	p := os.ExpandEnv(value)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if abs, err := agent.ExpandPath(p); err == nil {
			return abs
		}
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(a.infraRoot, p)
}

func (a *Agent) Flags() *pflag.FlagSet {
	fs := a.Base.Flags()
	fs.StringVar(&a.host, "host", "", "Host label override. Defaults to LOGGER_AGENT_HOST / AGENT_HOST / autodetect.")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Print planned CHANGE.log entries without writing files.")
	return fs
}

func (a *Agent) Handle(ctx context.Context, args []string) (int, error) {
	if len(args) > 0 {
		return 0, agent.Usagef("unrecognized arguments: %s", strings.Join(args, " "))
	}
	if info, err := os.Stat(a.infraRoot); err != nil || !info.IsDir() {
		return 0, agent.Usagef("infra root not found at %s", a.infraRoot)
	}

	store, err := state.Open(ctx, a.stateFile)
	if err != nil {
		return 1, err
	}
	defer store.Close()

	offsets, err := store.Load(ctx)
	if err != nil {
		return 1, err
	}

	label := a.HostLabel(a.host)
	sources, err := a.Sources()
	if err != nil {
		return 1, err
	}

	var blocks []string
	for _, src := range sources {
		data, err := readNew(src, offsets)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 1, err
		}
		if block := a.block(label, src, data); block != "" {
			blocks = append(blocks, block)
		}
	}

	a.Logger().Debug("collected log blocks", "sources", len(sources), "blocks", len(blocks))

	stdout := a.Host().Stdout
	if len(blocks) > 0 {
		if err := a.appendBlocks(blocks, stdout); err != nil {
			return 1, err
		}
	}

	if a.dryRun {
		if len(blocks) == 0 {
			fmt.Fprintln(stdout, "No new log entries detected.")
		}
		return 0, nil
	}
	if err := store.Save(ctx, offsets); err != nil {
		return 1, err
	}
	return 0, nil
}

// HostLabel picks the label for block headers: the override, then
// LOGGER_AGENT_HOST, AGENT_HOST, an alias of the hostname, or the hostname.
func (a *Agent) HostLabel(override string) string {
	if override != "" {
		return override
	}
	for _, key := range []string{"LOGGER_AGENT_HOST", "AGENT_HOST"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	hostname, err := a.Hostname()
	if err != nil {
		return "unknown"
	}
	hostname = strings.ToLower(hostname)
	for _, alias := range a.aliases {
		if strings.Contains(hostname, alias.Match) {
			return alias.Label
		}
	}
	return hostname
}

// Sources returns the existing source files, deduplicated and sorted. The
// target log itself is never a source.
func (a *Agent) Sources() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if p == a.targetLog || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	for _, p := range a.direct {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			add(p)
		}
	}
	for _, pattern := range a.patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", pattern, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				add(m)
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

// readNew returns the bytes appended to path since the recorded offset and
// updates offsets. A changed file identity or a shrunken file restarts at 0.
func readNew(path string, offsets state.Offsets) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	id := platform.FileID(info)

	var offset int64
	if rec, ok := offsets[path]; ok && rec.Inode == id && rec.Offset <= info.Size() {
		offset = rec.Offset
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	offsets[path] = state.Record{Inode: id, Offset: offset + int64(len(data))}
	return data, nil
}

func (a *Agent) block(label, source string, data []byte) string {
	body := strings.TrimRight(strings.ToValidUTF8(string(data), "\uFFFD"), "\n")
	if body == "" {
		return ""
	}
	ts := a.Now().UTC().Format(changelog.TimeLayout)
	return fmt.Sprintf("# %s — %s — %s\n## source: %s\n%s\n", ts, label, a.Name(), source, body)
}

func (a *Agent) appendBlocks(blocks []string, stdout io.Writer) error {
	trimmed := make([]string, len(blocks))
	for i, b := range blocks {
		trimmed[i] = strings.Trim(b, "\n")
	}
	output := strings.TrimRight(strings.Join(trimmed, "\n\n"), " \t\r\n") + "\n"

	if a.dryRun {
		_, err := io.WriteString(stdout, output)
		return err
	}

	if err := agent.EnsureParent(a.targetLog); err != nil {
		return err
	}
	leading := false
	if info, err := os.Stat(a.targetLog); err == nil && info.Size() > 0 {
		leading = true
	}

	f, err := os.OpenFile(a.targetLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", a.targetLog, err)
	}
	if leading {
		output = "\n" + output
	}
	if _, err := io.WriteString(f, output); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", a.targetLog, err)
	}
	return f.Close()
}
