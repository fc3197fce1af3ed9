//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"github.com/freqkflag/agentrunner/internal/agent"
	"github.com/freqkflag/agentrunner/internal/agents"
	"github.com/freqkflag/agentrunner/internal/loader"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

// testEnv holds an isolated repository and infra root.
type testEnv struct {
	HomeDir  string // HOME for the test
	RepoDir  string // repository root holding agents/registry.yaml
	InfraDir string // infra_root for agents that write changelogs

	Stdout bytes.Buffer
	Stderr bytes.Buffer
}

// setupTestEnv creates isolated temp directories and points HOME at one of
// them so ~/infra lookups never touch the real home directory.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("integration tests use POSIX shell scripts")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping")
	}

	env := &testEnv{
		HomeDir:  t.TempDir(),
		RepoDir:  t.TempDir(),
		InfraDir: t.TempDir(),
	}
	t.Setenv("HOME", env.HomeDir)
	return env
}

// writeRegistry writes agents/registry.yaml, substituting {infra} and loads it.
func (e *testEnv) writeRegistry(t *testing.T, doc string) *registry.Registry {
	t.Helper()
	path := filepath.Join(e.RepoDir, "agents", "registry.yaml")
	writeFile(t, path, strings.ReplaceAll(doc, "{infra}", e.InfraDir))
	reg, err := registry.Load(path)
	if err != nil {
		t.Fatalf("loading registry: %v", err)
	}
	return reg
}

// loader returns a loader over the built-in catalog running real commands.
func (e *testEnv) loader() *loader.Loader {
	return loader.New(agents.Catalog(), loader.NewCache(), agent.Host{
		RepoRoot:     e.RepoDir,
		Stdout:       &e.Stdout,
		Stderr:       &e.Stderr,
		Executor:     runtime.OSExecutor{},
		InvocationID: "it-0001",
	})
}

// run resolves name and runs it with args, returning the exit code.
func (e *testEnv) run(t *testing.T, reg *registry.Registry, name string, args ...string) int {
	t.Helper()
	a, err := e.loader().Resolve(context.Background(), name, reg)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", name, err)
	}
	return agent.Run(context.Background(), a, args, &e.Stdout, &e.Stderr)
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// writeScript creates an executable shell script.
func writeScript(t *testing.T, path, body string) {
	t.Helper()
	writeFile(t, path, "#!/bin/sh\n"+body)
	if err := os.Chmod(path, 0755); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}
