package agent

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/freqkflag/agentrunner/internal/runtime"
)

// Agent is a named unit of automation. Flags declares the arguments the agent
// accepts; Handle runs it with the positional arguments left after flag
// parsing and returns the process exit code.
type Agent interface {
	Name() string
	Flags() *pflag.FlagSet
	Handle(ctx context.Context, args []string) (int, error)
}

// Describer is implemented by agents that expose registry metadata. Base
// satisfies it.
type Describer interface {
	Description() string
	AllowedHosts() []string
	Outputs() []string
	Tags() []string
	Config() Config
}

// Passthrough is implemented by agents that take their arguments unparsed,
// such as external programs. Run hands them every argument, help flags included.
type Passthrough interface {
	Passthrough() bool
}

// Factory constructs a fresh agent from its registry name and static config.
type Factory func(name string, cfg Config, host Host) (Agent, error)

// Host is what the runner provides to every agent it constructs.
type Host struct {
	RepoRoot     string
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *slog.Logger
	Executor     runtime.Executor
	InvocationID string
}

// WithDefaults fills unset fields: process stdio, a discarding logger, the
// OS executor and the current directory as repo root.
func (h Host) WithDefaults() Host {
	if h.Stdout == nil {
		h.Stdout = os.Stdout
	}
	if h.Stderr == nil {
		h.Stderr = os.Stderr
	}
	if h.Logger == nil {
		h.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if h.Executor == nil {
		h.Executor = runtime.OSExecutor{}
	}
	if h.RepoRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			h.RepoRoot = wd
		}
	}
	return h
}
