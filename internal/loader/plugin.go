package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/branding"
	"github.com/freqkflag/agentrunner/internal/platform"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

// PluginUnitID returns the unit ID of the exec plugin backing the named agent.
func PluginUnitID(name string) string {
	return "agent_" + strings.ReplaceAll(name, "-", "_")
}

// pluginUnit returns the InitFunc for the executable at path. The unit
// exports a single factory under registry.DefaultEntryPoint.
func pluginUnit(path string) InitFunc {
	return func() (Symbols, error) {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !platform.IsExecutable(path, info) {
			return nil, fmt.Errorf("%s is not an executable file", path)
		}
		factory := agent.Factory(func(name string, cfg agent.Config, host agent.Host) (agent.Agent, error) {
			return &execAgent{Base: agent.NewBase(name, cfg, host), path: path}, nil
		})
		return Symbols{registry.DefaultEntryPoint: factory}, nil
	}
}

// execAgent runs an external program as the agent. Arguments are passed
// through untouched and the program's exit code is the agent's.
type execAgent struct {
	agent.Base
	path string
}

func (a *execAgent) Passthrough() bool { return true }

func (a *execAgent) Handle(ctx context.Context, args []string) (int, error) {
	cfg, err := json.Marshal(a.Config())
	if err != nil {
		return 1, fmt.Errorf("encoding config: %w", err)
	}

	host := a.Host()
	env := os.Environ()
	env = runtime.SetEnv(env, branding.EnvVar("agent"), a.Name())
	env = runtime.SetEnv(env, branding.EnvVar("config"), string(cfg))
	env = runtime.SetEnv(env, branding.EnvVar("repo_root"), host.RepoRoot)
	env = runtime.SetEnv(env, branding.EnvVar("invocation_id"), host.InvocationID)

	a.Logger().Debug("starting exec plugin", "path", a.path, "args", args)
	out, err := host.Executor.Run(ctx, &runtime.Command{
		Path:   a.path,
		Args:   args,
		Dir:    host.RepoRoot,
		Env:    env,
		Stdin:  os.Stdin,
		Stdout: host.Stdout,
		Stderr: host.Stderr,
	})
	if err != nil {
		return 1, err
	}
	return out.ExitCode, nil
}
