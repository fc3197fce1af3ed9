package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

var (
	// ErrScriptNotFound is returned when the script path does not exist.
	ErrScriptNotFound = errors.New("script file not found")
	// ErrScriptFault wraps any failure raised while the script runs.
	ErrScriptFault = errors.New("script fault")
)

// Env is the execution context a script runs against.
type Env struct {
	Agent      agent.Agent
	Registry   *registry.Registry
	RepoRoot   string
	ScriptPath string
	Args       []string

	Stdout   io.Writer
	Stderr   io.Writer
	Executor runtime.Executor
	Logger   *slog.Logger
}

// Fault describes a script that raised an error instead of finishing or exiting.
type Fault struct {
	Path       string
	Message    string
	StackTrace string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("executing script %s: %s", f.Path, f.Message)
}

func (f *Fault) Unwrap() error { return ErrScriptFault }

// ResolvePath anchors a relative script path at the working directory and
// checks that it exists.
func ResolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving script path %s: %w", p, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, abs)
	}
	return abs, nil
}

// Read resolves and reads the script at p.
func Read(p string) (path, source string, err error) {
	path, err = ResolvePath(p)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading script %s: %w", path, err)
	}
	return path, string(data), nil
}

// Run executes source and returns the process exit code. A fault is reported
// on env.Stderr as "Error executing script <path>: <msg>" followed by the Lua
// stack trace, and yields 1.
func Run(ctx context.Context, env Env, source string) int {
	code, err := Execute(ctx, env, source)
	if err != nil {
		stderr := env.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		var fault *Fault
		if errors.As(err, &fault) {
			fmt.Fprintf(stderr, "Error executing script %s: %s\n", fault.Path, fault.Message)
			if fault.StackTrace != "" {
				fmt.Fprintln(stderr, fault.StackTrace)
			}
		} else {
			fmt.Fprintf(stderr, "Error executing script %s: %v\n", env.ScriptPath, err)
		}
		return 1
	}
	return code
}

// Execute runs source as a Lua chunk. Completion and exit() with no value or
// nil give 0; exit(n) with an integral number gives n; any other exit value
// gives 1. Faults are returned as *Fault with code 1.
//
// Globals: agent, registry, REPO_ROOT, SCRIPT_PATH, sys (argv, exit), exit,
// print (to env.Stdout), path, subprocess, json, tempfile and env.
func Execute(ctx context.Context, env Env, source string) (int, error) {
	env = env.withDefaults()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	if err := openLibs(L); err != nil {
		return 1, err
	}

	s := &session{env: env, ctx: ctx}
	defer s.cleanup()

	if err := s.install(L); err != nil {
		return 1, fmt.Errorf("preparing script context: %w", err)
	}

	env.Logger.Debug("executing script", "path", env.ScriptPath)

	fn, err := L.Load(strings.NewReader(source), env.ScriptPath)
	if err == nil {
		L.Push(fn)
		err = L.PCall(0, lua.MultRet, nil)
	}

	// exit() unwinds as a Lua error; a script that traps it with pcall still
	// terminates with the requested code once it returns.
	if s.exited {
		return s.exitCode, nil
	}
	if err != nil {
		return 1, newFault(env.ScriptPath, err)
	}
	return 0, nil
}

func (e Env) withDefaults() Env {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Executor == nil {
		e.Executor = runtime.OSExecutor{}
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

func newFault(path string, err error) *Fault {
	f := &Fault{Path: path, Message: err.Error()}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if apiErr.Object != nil {
			f.Message = apiErr.Object.String()
		}
		f.StackTrace = apiErr.StackTrace
	}
	return f
}

func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("opening lua library %s: %w", lib.name, err)
		}
	}
	return nil
}

// exitCode maps the value passed to exit() to a process exit code.
func exitCode(v lua.LValue) int {
	switch n := v.(type) {
	case *lua.LNilType:
		return 0
	case lua.LNumber:
		f := float64(n)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	return 1
}
