package logtail

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freqkflag/agentrunner/internal/agent"
)

const stamp = "2026-05-06T07:08:09.000000+00:00"

type harness struct {
	infra  string
	cfg    agent.Config
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOGGER_AGENT_HOST", "")
	t.Setenv("AGENT_HOST", "")

	infra := t.TempDir()
	write(t, filepath.Join(infra, "server-changelog.md"), "deploy ok\n")
	write(t, filepath.Join(infra, "app", "a.log"), "a1\na2\n")
	write(t, filepath.Join(infra, "app", "sub", "b.log"), "b1\n")

	return &harness{
		infra: infra,
		cfg: agent.Config{
			"infra_root":  infra,
			"source_logs": []any{"server-changelog.md", "**/*.log", "missing.md"},
		},
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func appendTo(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func (h *harness) run(t *testing.T, args ...string) int {
	t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()

	a, err := New("logger-agent", h.cfg.Clone(), agent.Host{RepoRoot: h.infra, Stdout: &h.stdout, Stderr: &h.stderr})
	require.NoError(t, err)
	la := a.(*Agent)
	la.Now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }
	la.Hostname = func() (string, error) { return "Build-Box", nil }

	return agent.Run(context.Background(), a, args, &h.stdout, &h.stderr)
}

func (h *harness) changeLog(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.infra, DefaultTargetLog))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func block(source, body string) string {
	return "# " + stamp + " — build-box — logger-agent\n## source: " + source + "\n" + body
}

func TestLogtail_FirstRunMergesAllSources(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run(t), h.stderr.String())

	want := strings.Join([]string{
		block(filepath.Join(h.infra, "app", "a.log"), "a1\na2"),
		block(filepath.Join(h.infra, "app", "sub", "b.log"), "b1"),
		block(filepath.Join(h.infra, "server-changelog.md"), "deploy ok"),
	}, "\n\n") + "\n"
	assert.Equal(t, want, h.changeLog(t))
	assert.FileExists(t, filepath.Join(h.infra, DefaultStateFile))
}

func TestLogtail_OnlyNewContentOnLaterRuns(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run(t))
	first := h.changeLog(t)

	require.Equal(t, 0, h.run(t))
	assert.Equal(t, first, h.changeLog(t), "nothing new must leave CHANGE.log untouched")

	appendTo(t, filepath.Join(h.infra, "app", "a.log"), "a3\n")
	require.Equal(t, 0, h.run(t))

	want := first + "\n" + block(filepath.Join(h.infra, "app", "a.log"), "a3") + "\n"
	assert.Equal(t, want, h.changeLog(t))
}

func TestLogtail_RotatedFileReadFromStart(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("rotation detection relies on inode numbers")
	}
	h := newHarness(t)
	require.Equal(t, 0, h.run(t))
	first := h.changeLog(t)

	b := filepath.Join(h.infra, "app", "sub", "b.log")
	require.NoError(t, os.Rename(b, b+".1"))
	write(t, b, "fresh\n")
	require.Equal(t, 0, h.run(t))

	assert.Equal(t, first+"\n"+block(b, "fresh")+"\n", h.changeLog(t))
}

func TestLogtail_TruncatedFileReadFromStart(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run(t))
	first := h.changeLog(t)

	a := filepath.Join(h.infra, "app", "a.log")
	require.NoError(t, os.WriteFile(a, []byte("x\n"), 0644))
	require.Equal(t, 0, h.run(t))

	assert.Equal(t, first+"\n"+block(a, "x")+"\n", h.changeLog(t))
}

func TestLogtail_DryRun(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run(t, "--dry-run", "--host", "vps"))

	assert.Contains(t, h.stdout.String(), "# "+stamp+" — vps — logger-agent\n## source: ")
	assert.Empty(t, h.changeLog(t))
	assert.NoFileExists(t, filepath.Join(h.infra, DefaultStateFile))

	require.Equal(t, 0, h.run(t))
	require.Equal(t, 0, h.run(t, "--dry-run"))
	assert.Equal(t, "No new log entries detected.\n", h.stdout.String())
}

func TestLogtail_SQLiteState(t *testing.T) {
	h := newHarness(t)
	h.cfg["state_file"] = ".state/logger-agent.db"

	require.Equal(t, 0, h.run(t), h.stderr.String())
	first := h.changeLog(t)
	require.Equal(t, 0, h.run(t), h.stderr.String())

	assert.Equal(t, first, h.changeLog(t))
	assert.FileExists(t, filepath.Join(h.infra, ".state", "logger-agent.db"))
}

func TestLogtail_MissingInfraRoot(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	missing := filepath.Join(t.TempDir(), "gone")
	var stderr bytes.Buffer

	a, err := New("logger-agent", agent.Config{"infra_root": missing}, agent.Host{RepoRoot: missing, Stderr: &stderr})
	require.NoError(t, err)

	code := agent.Run(context.Background(), a, nil, &bytes.Buffer{}, &stderr)
	assert.Equal(t, agent.ExitUsage, code)
	assert.Contains(t, stderr.String(), "infra root not found")
}

func TestHostLabel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	a, err := New("logger-agent", agent.Config{}, agent.Host{RepoRoot: t.TempDir()})
	require.NoError(t, err)
	la := a.(*Agent)

	t.Setenv("LOGGER_AGENT_HOST", "")
	t.Setenv("AGENT_HOST", "")

	la.Hostname = func() (string, error) { return "Home.MacMini.local", nil }
	assert.Equal(t, "mac", la.HostLabel(""))

	la.Hostname = func() (string, error) { return "ci-runner", nil }
	assert.Equal(t, "ci-runner", la.HostLabel(""))
	assert.Equal(t, "override", la.HostLabel("override"))

	t.Setenv("AGENT_HOST", "from-agent-host")
	assert.Equal(t, "from-agent-host", la.HostLabel(""))
	t.Setenv("LOGGER_AGENT_HOST", "from-logger")
	assert.Equal(t, "from-logger", la.HostLabel(""))
}

func TestHostLabel_ConfiguredAliases(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOGGER_AGENT_HOST", "")
	t.Setenv("AGENT_HOST", "")

	a, err := New("logger-agent", agent.Config{"host_aliases": map[string]any{"runner": "ci"}}, agent.Host{RepoRoot: t.TempDir()})
	require.NoError(t, err)
	la := a.(*Agent)
	la.Hostname = func() (string, error) { return "gh-runner-7", nil }

	assert.Equal(t, "ci", la.HostLabel(""))
}
