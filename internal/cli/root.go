package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/agents"
	"github.com/freqkflag/agentrunner/internal/branding"
	"github.com/freqkflag/agentrunner/internal/config"
	"github.com/freqkflag/agentrunner/internal/loader"
	"github.com/freqkflag/agentrunner/internal/logging"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var (
	registryFlag string
	repoRootFlag string
	logLevelFlag string
)

var (
	// catalog holds the built-in agent units. cache is shared by every
	// resolution in the process so each unit initializes once.
	catalog = agents.Catalog()
	cache   = loader.NewCache()

	logger       = slog.New(slog.NewTextHandler(io.Discard, nil))
	invocationID string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` dispatches infrastructure automation agents declared in
agents/registry.yaml. Each agent is either built in or an executable in the
repository, and runs with its registry entry as static configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		if err := config.BindFlags(cmd.Flags()); err != nil {
			return err
		}

		l, err := logging.New(cmd.ErrOrStderr(), config.LogLevel())
		if err != nil {
			return &agent.UsageError{Msg: err.Error()}
		}
		invocationID = uuid.NewString()
		logger = l
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&registryFlag, "registry", "", "Registry document (default <repo-root>/agents/registry.yaml)")
	pf.StringVar(&repoRootFlag, "repo-root", "", "Repository root (default: discovered from the working directory)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &agent.UsageError{Msg: err.Error()}
	})
}

// ExitCodeError carries a non-zero agent exit code out of a command without
// printing anything further.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// exitWith turns an agent exit code into a command result.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitCodeError{Code: code}
}

// usageArgs reports positional argument errors as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &agent.UsageError{Msg: err.Error()}
		}
		return nil
	}
}

// Execute runs the root command with build info injected via ldflags and
// returns the process exit code.
func Execute(ctx context.Context, version, commit, date string) int {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	var exit *ExitCodeError
	if errors.As(err, &exit) {
		return exit.Code
	}
	var usage *agent.UsageError
	if errors.As(err, &usage) {
		path := branding.CLIName()
		if cmd != nil {
			path = cmd.CommandPath()
		}
		fmt.Fprintf(stderr, "Error: %s\nRun '%s --help' for usage.\n", usage.Msg, path)
		return agent.ExitUsage
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

// openRegistry resolves the repository root and loads the registry document.
func openRegistry(cmd *cobra.Command) (*registry.Registry, string, error) {
	repoRoot, err := config.RepoRoot(cmd.Context())
	if err != nil {
		return nil, "", err
	}
	path, err := config.RegistryPath(repoRoot)
	if err != nil {
		return nil, "", err
	}
	reg, err := registry.Load(path)
	if err != nil {
		return nil, "", err
	}
	logger.Debug("registry loaded", "path", path, "repo_root", repoRoot, "agents", reg.Len())
	return reg, repoRoot, nil
}

// newLoader returns a loader whose agents write to the command's streams.
func newLoader(cmd *cobra.Command, repoRoot string) *loader.Loader {
	return loader.New(catalog, cache, agent.Host{
		RepoRoot:     repoRoot,
		Stdout:       cmd.OutOrStdout(),
		Stderr:       cmd.ErrOrStderr(),
		Logger:       logger,
		Executor:     runtime.OSExecutor{},
		InvocationID: invocationID,
	})
}
