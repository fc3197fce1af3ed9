package cli

import (
	"github.com/spf13/cobra"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/loader"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
	"github.com/freqkflag/agentrunner/internal/script"
)

var runCmd = &cobra.Command{
	Use:   "run <agent> [-- args...]",
	Short: "Execute an agent",
	Long: `Execute a registered agent. Everything after the agent name is passed to
the agent; a single leading "--" is dropped.

With --script <path> the agent is resolved but not run. Instead the Lua
script at <path> (relative to the working directory) runs with the agent,
the registry and the repository root in scope, and its exit() value becomes
the exit code. Scripts run with the full privileges of the runner.`,
	Example: `  agentrunner run deploy-agent -- --target web --dry-run
  agentrunner run deploy-agent --script ./checks/preflight.lua`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: runRun,
}

func init() {
	// Flags after the agent name belong to the agent.
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	name, agentArgs := args[0], args[1:]
	if len(agentArgs) > 0 && agentArgs[0] == "--" {
		agentArgs = agentArgs[1:]
	}

	reg, repoRoot, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	ld := newLoader(cmd, repoRoot)

	if len(agentArgs) >= 2 && agentArgs[0] == "--script" {
		return runScript(cmd, ld, reg, name, agentArgs[1], agentArgs[2:])
	}

	a, err := ld.Resolve(cmd.Context(), name, reg)
	if err != nil {
		return err
	}
	logger.Debug("dispatching agent", "agent", name, "args", len(agentArgs))
	return exitWith(agent.Run(cmd.Context(), a, agentArgs, cmd.OutOrStdout(), cmd.ErrOrStderr()))
}

func runScript(cmd *cobra.Command, ld *loader.Loader, reg *registry.Registry, name, scriptArg string, extra []string) error {
	path, source, err := script.Read(scriptArg)
	if err != nil {
		return err
	}

	a, err := ld.Resolve(cmd.Context(), name, reg)
	if err != nil {
		return err
	}

	logger.Debug("executing script", "agent", name, "script", path)
	code := script.Run(cmd.Context(), script.Env{
		Agent:      a,
		Registry:   reg,
		RepoRoot:   ld.Host.RepoRoot,
		ScriptPath: path,
		Args:       extra,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		Executor:   runtime.OSExecutor{},
		Logger:     logger,
	}, source)
	return exitWith(code)
}
