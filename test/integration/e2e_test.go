//go:build integration

package integration_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freqkflag/agentrunner/internal/runtime"
	"github.com/freqkflag/agentrunner/internal/script"
)

// TestScriptDrivesAgentAndSubprocess runs a script that inspects the
// registry, shells out, and then runs the agent it was given.
func TestScriptDrivesAgentAndSubprocess(t *testing.T) {
	env := setupTestEnv(t)
	writeScript(t, filepath.Join(env.RepoDir, "scripts", "status.sh"), "echo from-status\n")
	writeScript(t, filepath.Join(env.RepoDir, "scripts", "health-check.sh"), "exit 0\n")
	reg := env.writeRegistry(t, `agents:
  status-agent:
    description: Status and health
    module: agents/status
    class: StatusAgent
    infra_root: {infra}
    tags: [ops]
`)

	scriptPath := filepath.Join(t.TempDir(), "flow.lua")
	writeFile(t, scriptPath, `
local entry = registry["status-agent"]
print("tag=" .. entry.tags[1])

local r = subprocess.run({"sh", "-c", "echo $1", "sh", "captured"}, {capture = true})
print("sub=" .. r.stdout:gsub("%s+$", ""))

local code = agent.run({"--skip-health"})
sys.exit(code + 5)
`)

	a, err := env.loader().Resolve(context.Background(), "status-agent", reg)
	if err != nil {
		t.Fatal(err)
	}
	path, source, err := script.Read(scriptPath)
	if err != nil {
		t.Fatal(err)
	}

	code := script.Run(context.Background(), script.Env{
		Agent:      a,
		Registry:   reg,
		RepoRoot:   env.RepoDir,
		ScriptPath: path,
		Stdout:     &env.Stdout,
		Stderr:     &env.Stderr,
		Executor:   runtime.OSExecutor{},
	}, source)

	if code != 5 {
		t.Fatalf("exit = %d, want 5 (stderr %q)", code, env.Stderr.String())
	}
	out := env.Stdout.String()
	for _, want := range []string{"tag=ops\n", "sub=captured\n", "from-status\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	assertFileContains(t, filepath.Join(env.InfraDir, "server-changelog.md"), "status-only -> success")
}

func TestScriptFaultIsContained(t *testing.T) {
	env := setupTestEnv(t)
	reg := env.writeRegistry(t, `agents:
  deploy-agent:
    module: agents/deploy
    class: DeployAgent
`)
	a, err := env.loader().Resolve(context.Background(), "deploy-agent", reg)
	if err != nil {
		t.Fatal(err)
	}

	code := script.Run(context.Background(), script.Env{
		Agent:      a,
		Registry:   reg,
		RepoRoot:   env.RepoDir,
		ScriptPath: "inline.lua",
		Stdout:     &env.Stdout,
		Stderr:     &env.Stderr,
	}, "local x = nil\nreturn x.field\n")

	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if env.Stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", env.Stdout.String())
	}
	if !strings.HasPrefix(env.Stderr.String(), "Error executing script inline.lua: ") {
		t.Errorf("stderr = %q", env.Stderr.String())
	}
}
