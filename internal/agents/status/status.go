// Package status runs the repository's status and health-check scripts.
package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/changelog"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

const (
	StatusScript = "./scripts/status.sh"
	HealthScript = "./scripts/health-check.sh"
)

// Agent runs the status script and, unless skipped, the health check,
// stopping at the first failure.
type Agent struct {
	agent.Base

	skipHealth bool
	dryRun     bool
}

// New is the agent.Factory for the status agent.
func New(name string, cfg agent.Config, host agent.Host) (agent.Agent, error) {
	return &Agent{Base: agent.NewBase(name, cfg, host)}, nil
}

func (a *Agent) Flags() *pflag.FlagSet {
	fs := a.Base.Flags()
	fs.BoolVar(&a.skipHealth, "skip-health", false, "Skip scripts/health-check.sh.")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Print commands without executing.")
	return fs
}

func (a *Agent) commands() []*runtime.Command {
	cmds := []*runtime.Command{{Path: StatusScript}}
	if !a.skipHealth {
		cmds = append(cmds, &runtime.Command{Path: HealthScript})
	}
	return cmds
}

func (a *Agent) Handle(ctx context.Context, args []string) (int, error) {
	if len(args) > 0 {
		return 0, agent.Usagef("unrecognized arguments: %s", strings.Join(args, " "))
	}

	host := a.Host()
	cmds := a.commands()
	if a.dryRun {
		for _, c := range cmds {
			fmt.Fprintln(host.Stdout, "DRY RUN:", c.String())
		}
		return 0, nil
	}

	detail := "status+health"
	if a.skipHealth {
		detail = "status-only"
	}

	rc := 0
	for _, c := range cmds {
		c.Dir = host.RepoRoot
		c.Stdout, c.Stderr = host.Stdout, host.Stderr

		out, err := host.Executor.Run(ctx, c)
		if err != nil {
			a.logEvent(fmt.Sprintf("%s -> failure: %v", detail, err))
			return 1, err
		}
		if out.ExitCode != 0 {
			rc = out.ExitCode
			a.Logger().Warn("check failed", "command", c.Path, "exit_code", rc)
			break
		}
	}

	status := "success"
	if rc != 0 {
		status = fmt.Sprintf("failure rc=%d", rc)
	}
	a.logEvent(fmt.Sprintf("%s -> %s", detail, status))
	return rc, nil
}

func (a *Agent) logEvent(message string) {
	w := changelog.New(a.InfraRoot(), a.Name(), a.Host().InvocationID)
	if err := w.Append(message); err != nil {
		a.Logger().Warn("changelog not written", "error", err)
	}
}
