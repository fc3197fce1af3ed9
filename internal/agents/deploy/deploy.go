// Package deploy runs the repository's deploy script for one target host
// with secrets injected by Infisical.
package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/changelog"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

// DefaultEnv is the Infisical environment used when neither --env nor the
// default_env config key is set.
const DefaultEnv = "production"

// Agent runs `infisical run --env=<env> -- ./scripts/deploy.ah <target>`.
type Agent struct {
	agent.Base

	target string
	env    string
	dryRun bool
}

// New is the agent.Factory for the deploy agent.
func New(name string, cfg agent.Config, host agent.Host) (agent.Agent, error) {
	return &Agent{Base: agent.NewBase(name, cfg, host)}, nil
}

func (a *Agent) Flags() *pflag.FlagSet {
	fs := a.Base.Flags()
	fs.StringVar(&a.target, "target", "", "Deployment target (e.g. vps.host, home.macmini, home.linux).")
	fs.StringVar(&a.env, "env", a.Config().StringOr("default_env", DefaultEnv), "Infisical environment to use for deployment.")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Print the command without executing.")
	return fs
}

// Command returns the deploy command for target and env.
func Command(target, env string) *runtime.Command {
	return &runtime.Command{
		Path: "infisical",
		Args: []string{"run", "--env=" + env, "--", "./scripts/deploy.ah", target},
	}
}

func (a *Agent) Handle(ctx context.Context, args []string) (int, error) {
	if len(args) > 0 {
		return 0, agent.Usagef("unrecognized arguments: %s", strings.Join(args, " "))
	}
	if a.target == "" {
		return 0, agent.Usagef("the following arguments are required: --target")
	}
	env := a.env
	if env == "" {
		env = a.Config().StringOr("default_env", DefaultEnv)
	}

	host := a.Host()
	cmd := Command(a.target, env)
	if a.dryRun {
		fmt.Fprintln(host.Stdout, "DRY RUN:", cmd.String())
		return 0, nil
	}

	cmd.Dir = host.RepoRoot
	cmd.Stdout, cmd.Stderr = host.Stdout, host.Stderr

	a.Logger().Info("deploying", "target", a.target, "env", env)
	out, err := host.Executor.Run(ctx, cmd)
	if err != nil {
		a.logEvent(fmt.Sprintf("deploy target=%s env=%s -> failure: %v", a.target, env, err))
		return 1, err
	}

	status := "success"
	if out.ExitCode != 0 {
		status = fmt.Sprintf("failure rc=%d", out.ExitCode)
	}
	a.logEvent(fmt.Sprintf("deploy target=%s env=%s -> %s", a.target, env, status))
	return out.ExitCode, nil
}

func (a *Agent) logEvent(message string) {
	w := changelog.New(a.InfraRoot(), a.Name(), a.Host().InvocationID)
	if err := w.Append(message); err != nil {
		a.Logger().Warn("changelog not written", "error", err)
	}
}
