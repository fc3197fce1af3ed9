// Package lintfix resolves lint findings by running the first available
// fixer configured for the offending file.
package lintfix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/changelog"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

// Agent selects a resolver for --file (and optionally --rule) and runs its
// command groups followed by its verify groups.
type Agent struct {
	agent.Base
	resolvers []Resolver

	file          string
	rule          string
	message       string
	listResolvers bool
	dryRun        bool
}

// New is the agent.Factory for the lint resolver agent. A malformed
// "resolvers" config value is a construction error.
func New(name string, cfg agent.Config, host agent.Host) (agent.Agent, error) {
	a := &Agent{Base: agent.NewBase(name, cfg, host), resolvers: DefaultResolvers}
	if raw, ok := cfg["resolvers"].([]any); ok && len(raw) > 0 {
		rs, err := ParseResolvers(raw)
		if err != nil {
			return nil, err
		}
		a.resolvers = rs
	}
	return a, nil
}

// Resolvers returns the resolvers in selection order.
func (a *Agent) Resolvers() []Resolver { return a.resolvers }

func (a *Agent) Flags() *pflag.FlagSet {
	fs := a.Base.Flags()
	fs.StringVar(&a.file, "file", "", "Path to linted file relative to the repository root.")
	fs.StringVar(&a.rule, "rule", "", "Lint rule identifier (optional, used for resolver selection).")
	fs.StringVar(&a.message, "message", "", "Original lint message for logging context.")
	fs.BoolVar(&a.listResolvers, "list-resolvers", false, "List configured resolvers and exit.")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Print commands without executing them.")
	return fs
}

func (a *Agent) Handle(ctx context.Context, args []string) (int, error) {
	if len(args) > 0 {
		return 0, agent.Usagef("unrecognized arguments: %s", strings.Join(args, " "))
	}
	if a.listResolvers {
		a.printResolvers()
		return 0, nil
	}
	if a.file == "" {
		return 0, agent.Usagef("--file is required unless --list-resolvers is used")
	}

	host := a.Host()
	target := a.file
	if !filepath.IsAbs(target) {
		target = filepath.Join(host.RepoRoot, target)
	}
	target = filepath.Clean(target)
	if _, err := os.Stat(target); err != nil {
		return 0, agent.Usagef("target file does not exist: %s", target)
	}

	rel, err := filepath.Rel(host.RepoRoot, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0, agent.Usagef("target file is outside the repository: %s", target)
	}
	rel = filepath.ToSlash(rel)

	resolver, ok := Select(a.resolvers, rel, a.rule)
	if !ok {
		msg := fmt.Sprintf("no resolver found for file '%s'", rel)
		if a.rule != "" {
			msg += fmt.Sprintf(" with rule '%s'", a.rule)
		}
		return 0, agent.Usagef("%s", msg)
	}

	id := resolver.ID
	if id == "" {
		id = "<unknown>"
	}

	vars := map[string]string{
		"file":       rel,
		"abs_file":   target,
		"rule":       a.rule,
		"message":    a.message,
		"repo_root":  host.RepoRoot,
		"infra_root": a.InfraRoot(),
	}

	if err := a.runResolver(ctx, resolver, vars); err != nil {
		a.Logger().Warn("resolver failed", "resolver", id, "file", rel, "error", err)
		a.logEvent(rel, id, "failure: "+err.Error())
		return 1, nil
	}
	a.logEvent(rel, id, "success")
	return 0, nil
}

func (a *Agent) printResolvers() {
	out := a.Host().Stdout
	for _, r := range a.resolvers {
		id := r.ID
		if id == "" {
			id = "<unnamed>"
		}
		fmt.Fprintf(out, "- %s\n", id)
		fmt.Fprintf(out, "  patterns: %s\n", strings.Join(r.Patterns, ", "))
		if len(r.Rules) > 0 {
			fmt.Fprintf(out, "  rules: %s\n", strings.Join(r.Rules, ", "))
		}
	}
}

func (a *Agent) runResolver(ctx context.Context, r *Resolver, vars map[string]string) error {
	if len(r.Commands) == 0 {
		return errors.New("resolver has no commands configured")
	}

	env := os.Environ()
	for k, v := range r.Env {
		expanded, err := Expand(v, vars)
		if err != nil {
			return err
		}
		env = runtime.SetEnv(env, k, expanded)
	}

	for _, group := range r.Commands {
		argv, err := a.pick(group, vars)
		if err != nil {
			return err
		}
		if argv == nil {
			return errors.New("no available command for resolver")
		}
		if err := a.execute(ctx, argv, env); err != nil {
			return err
		}
	}

	for _, group := range r.Verify {
		argv, err := a.pick(group, vars)
		if err != nil {
			return err
		}
		if argv == nil {
			continue
		}
		if err := a.execute(ctx, argv, env); err != nil {
			return err
		}
	}
	return nil
}

// pick returns the first candidate in group whose executable is available.
func (a *Agent) pick(group Group, vars map[string]string) ([]string, error) {
	for _, candidate := range group {
		if len(candidate) == 0 {
			continue
		}
		argv := make([]string, len(candidate))
		for i, part := range candidate {
			expanded, err := Expand(part, vars)
			if err != nil {
				return nil, err
			}
			argv[i] = expanded
		}
		if runtime.Available(argv[0], a.Host().RepoRoot) {
			return argv, nil
		}
	}
	return nil, nil
}

func (a *Agent) execute(ctx context.Context, argv, env []string) error {
	host := a.Host()
	cmd := &runtime.Command{
		Path:   argv[0],
		Args:   argv[1:],
		Dir:    host.RepoRoot,
		Env:    env,
		Stdout: host.Stdout,
		Stderr: host.Stderr,
	}
	if a.dryRun {
		fmt.Fprintln(host.Stdout, "DRY RUN:", cmd.String())
		return nil
	}

	out, err := host.Executor.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("command '%s' failed with code %d", cmd.String(), out.ExitCode)
	}
	return nil
}

func (a *Agent) logEvent(rel, resolverID, status string) {
	msg := fmt.Sprintf("%s -> %s -> %s", rel, resolverID, status)
	if a.rule != "" {
		msg += ", rule=" + a.rule
	}
	w := changelog.New(a.InfraRoot(), a.Name(), a.Host().InvocationID)
	if err := w.Append(msg); err != nil {
		a.Logger().Warn("changelog not written", "error", err)
	}
}
