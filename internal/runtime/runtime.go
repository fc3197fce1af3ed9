package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/freqkflag/agentrunner/internal/platform"
)

// Executor runs external commands on behalf of agents.
type Executor interface {
	// Run executes cmd and reports its exit status. A non-zero exit is not an
	// error; the error return is reserved for commands that could not start.
	Run(ctx context.Context, cmd *Command) (*Output, error)
}

// Command describes one subprocess invocation.
type Command struct {
	Path  string   // executable name or path
	Args  []string // arguments, not including Path
	Dir   string   // working directory; empty means the current one
	Env   []string // full environment; nil inherits the runner's
	Stdin io.Reader

	// Stdout and Stderr receive the streamed output; nil means os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Output captures the result of a command execution.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// String renders the command line for dry-run output and logs.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

// Run executes the command, streaming stdout/stderr to the configured writers
// while also capturing them into the returned Output.
func (OSExecutor) Run(ctx context.Context, c *Command) (*Output, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Stdin

	stdout := c.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := c.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(stdout, &stdoutBuf)
	cmd.Stderr = io.MultiWriter(stderr, &stderrBuf)

	err := cmd.Run()

	output := &Output{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output.ExitCode = exitErr.ExitCode()
			return output, nil
		}
		return output, fmt.Errorf("executing %s: %w", c.Path, err)
	}

	return output, nil
}

// SetEnv sets or replaces an environment variable in the env slice.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// Available reports whether executable can be run: an absolute path must be
// executable, a path relative to repoRoot is accepted when it exists and is
// executable, and anything else is searched for on PATH.
func Available(executable, repoRoot string) bool {
	if filepath.IsAbs(executable) {
		info, err := os.Stat(executable)
		return err == nil && platform.IsExecutable(executable, info)
	}

	if repoRoot != "" {
		candidate := filepath.Join(repoRoot, executable)
		if info, err := os.Stat(candidate); err == nil && platform.IsExecutable(candidate, info) {
			return true
		}
	}

	_, err := exec.LookPath(executable)
	return err == nil
}
