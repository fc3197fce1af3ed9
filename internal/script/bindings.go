package script

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

// session holds the per-execution state shared by the bindings.
type session struct {
	env Env
	ctx context.Context

	exited   bool
	exitCode int
	temps    []string
}

func (s *session) install(L *lua.LState) error {
	luajson.Preload(L)
	if err := L.DoString(`json = require("json")`); err != nil {
		return err
	}

	agentTable, err := s.agentTable(L)
	if err != nil {
		return err
	}
	L.SetGlobal("agent", agentTable)

	registryTable, err := s.registryTable(L)
	if err != nil {
		return err
	}
	L.SetGlobal("registry", registryTable)

	L.SetGlobal("REPO_ROOT", lua.LString(s.env.RepoRoot))
	L.SetGlobal("SCRIPT_PATH", lua.LString(s.env.ScriptPath))

	exit := L.NewFunction(s.exit)
	L.SetGlobal("exit", exit)

	argv := L.NewTable()
	argv.Append(lua.LString(s.env.ScriptPath))
	for _, a := range s.env.Args {
		argv.Append(lua.LString(a))
	}
	sys := L.NewTable()
	sys.RawSetString("argv", argv)
	sys.RawSetString("exit", exit)
	L.SetGlobal("sys", sys)

	L.SetGlobal("print", L.NewFunction(s.print))

	L.SetGlobal("path", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"join":   pathJoin,
		"abs":    pathAbs,
		"base":   pathBase,
		"dir":    pathDir,
		"ext":    pathExt,
		"exists": pathExists,
		"isdir":  pathIsDir,
		"expand": pathExpand,
	}))
	L.SetGlobal("subprocess", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"run": s.subprocessRun,
	}))
	L.SetGlobal("tempfile", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"file": s.tempFile,
		"dir":  s.tempDir,
	}))
	L.SetGlobal("env", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": envGet,
	}))
	return nil
}

// cleanup removes everything created through tempfile.
func (s *session) cleanup() {
	for i := len(s.temps) - 1; i >= 0; i-- {
		_ = os.RemoveAll(s.temps[i])
	}
}

func (s *session) exit(L *lua.LState) int {
	s.exited = true
	s.exitCode = exitCode(L.Get(1))
	L.RaiseError("exit(%d)", s.exitCode)
	return 0
}

func (s *session) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, top)
	for i := 1; i <= top; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(s.env.Stdout, strings.Join(parts, "\t"))
	return 0
}

func (s *session) agentTable(L *lua.LState) (*lua.LTable, error) {
	t := L.NewTable()
	a := s.env.Agent
	if a == nil {
		return t, nil
	}
	t.RawSetString("name", lua.LString(a.Name()))

	if d, ok := a.(agent.Describer); ok {
		cfg, err := toLua(L, d.Config())
		if err != nil {
			return nil, err
		}
		t.RawSetString("config", cfg)
		t.RawSetString("description", lua.LString(d.Description()))
		t.RawSetString("allowed_hosts", stringList(L, d.AllowedHosts()))
		t.RawSetString("outputs", stringList(L, d.Outputs()))
		t.RawSetString("tags", stringList(L, d.Tags()))
	}

	t.RawSetString("run", L.NewFunction(func(L *lua.LState) int {
		args := checkStrings(L, 1)
		code := agent.Run(s.ctx, a, args, s.env.Stdout, s.env.Stderr)
		L.Push(lua.LNumber(code))
		return 1
	}))
	return t, nil
}

func (s *session) registryTable(L *lua.LState) (*lua.LTable, error) {
	t := L.NewTable()
	if s.env.Registry == nil {
		return t, nil
	}
	for _, e := range s.env.Registry.List() {
		cfg, err := toLua(L, e.Config)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", e.Name, err)
		}
		t.RawSetString(e.Name, cfg)
	}
	return t, nil
}

// subprocess.run(argv [, {cwd=, capture=, check=}]) -> {code=, stdout=, stderr=}
func (s *session) subprocessRun(L *lua.LState) int {
	argv := checkStrings(L, 1)
	if len(argv) == 0 {
		L.ArgError(1, "command must not be empty")
	}
	opts := L.OptTable(2, L.NewTable())

	cmd := &runtime.Command{
		Path:   argv[0],
		Args:   argv[1:],
		Dir:    s.env.RepoRoot,
		Stdout: s.env.Stdout,
		Stderr: s.env.Stderr,
	}
	if cwd, ok := opts.RawGetString("cwd").(lua.LString); ok {
		cmd.Dir = string(cwd)
	}
	if lua.LVAsBool(opts.RawGetString("capture")) {
		cmd.Stdout, cmd.Stderr = io.Discard, io.Discard
	}

	out, err := s.env.Executor.Run(s.ctx, cmd)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	if lua.LVAsBool(opts.RawGetString("check")) && out.ExitCode != 0 {
		L.RaiseError("command %q exited with code %d", cmd.String(), out.ExitCode)
		return 0
	}

	result := L.NewTable()
	result.RawSetString("code", lua.LNumber(out.ExitCode))
	result.RawSetString("stdout", lua.LString(out.Stdout))
	result.RawSetString("stderr", lua.LString(out.Stderr))
	L.Push(result)
	return 1
}

func (s *session) tempFile(L *lua.LState) int {
	f, err := os.CreateTemp("", L.OptString(1, "agentrunner-")+"*")
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	_ = f.Close()
	s.temps = append(s.temps, f.Name())
	L.Push(lua.LString(f.Name()))
	return 1
}

func (s *session) tempDir(L *lua.LState) int {
	dir, err := os.MkdirTemp("", L.OptString(1, "agentrunner-")+"*")
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	s.temps = append(s.temps, dir)
	L.Push(lua.LString(dir))
	return 1
}

func envGet(L *lua.LState) int {
	if v, ok := os.LookupEnv(L.CheckString(1)); ok {
		L.Push(lua.LString(v))
		return 1
	}
	L.Push(L.Get(2))
	return 1
}

func pathJoin(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.CheckString(i))
	}
	L.Push(lua.LString(filepath.Join(parts...)))
	return 1
}

func pathAbs(L *lua.LState) int {
	p, err := filepath.Abs(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LString(p))
	return 1
}

func pathBase(L *lua.LState) int {
	L.Push(lua.LString(filepath.Base(L.CheckString(1))))
	return 1
}

func pathDir(L *lua.LState) int {
	L.Push(lua.LString(filepath.Dir(L.CheckString(1))))
	return 1
}

func pathExt(L *lua.LState) int {
	L.Push(lua.LString(filepath.Ext(L.CheckString(1))))
	return 1
}

func pathExists(L *lua.LState) int {
	_, err := os.Stat(L.CheckString(1))
	L.Push(lua.LBool(err == nil))
	return 1
}

func pathIsDir(L *lua.LState) int {
	info, err := os.Stat(L.CheckString(1))
	L.Push(lua.LBool(err == nil && info.IsDir()))
	return 1
}

func pathExpand(L *lua.LState) int {
	p, err := agent.ExpandPath(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LString(p))
	return 1
}

// toLua converts a JSON-compatible Go value into Lua values.
func toLua(L *lua.LState, v any) (lua.LValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return luajson.Decode(L, data)
}

func stringList(L *lua.LState, items []string) *lua.LTable {
	t := L.CreateTable(len(items), 0)
	for _, item := range items {
		t.Append(lua.LString(item))
	}
	return t
}

// checkStrings reads an optional array of strings at argument n.
func checkStrings(L *lua.LState, n int) []string {
	if L.Get(n) == lua.LNil {
		return nil
	}
	t := L.CheckTable(n)
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		v := t.RawGetInt(i)
		switch v.(type) {
		case lua.LString, lua.LNumber:
			out = append(out, v.String())
		default:
			L.ArgError(n, fmt.Sprintf("element %d must be a string, got %s", i, v.Type()))
		}
	}
	return out
}

