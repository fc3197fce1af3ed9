// Package runtimetest provides an in-memory runtime.Executor for agent tests.
package runtimetest

import (
	"context"
	"io"
	"sync"

	"github.com/freqkflag/agentrunner/internal/runtime"
)

// Recorder records every command it is asked to run and answers with the
// exit code and stdout configured for the command's executable (0 and ""
// by default).
type Recorder struct {
	mu       sync.Mutex
	Commands []runtime.Command
	Codes    map[string]int
	Stdout   map[string]string
	Err      error
}

// Run implements runtime.Executor.
func (r *Recorder) Run(_ context.Context, cmd *runtime.Command) (*runtime.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Commands = append(r.Commands, *cmd)
	if r.Err != nil {
		return nil, r.Err
	}
	out := r.Stdout[cmd.Path]
	if cmd.Stdout != nil && out != "" {
		_, _ = io.WriteString(cmd.Stdout, out)
	}
	return &runtime.Output{ExitCode: r.Codes[cmd.Path], Stdout: out}, nil
}

// Lines returns the recorded commands rendered as command lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.Commands))
	for i := range r.Commands {
		out[i] = r.Commands[i].String()
	}
	return out
}
