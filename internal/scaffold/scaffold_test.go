package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freqkflag/agentrunner/internal/platform"
	"github.com/freqkflag/agentrunner/internal/registry"
)

const existing = `# Agents for this repository.
agents:
  deploy-agent:
    description: Deploy
    module: agents/deploy
    class: DeployAgent
`

func writeRegistry(t *testing.T, root, content string) string {
	t.Helper()
	path := filepath.Join(root, "agents", "registry.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewData(t *testing.T) {
	d := NewData("backup", "")
	if d.Description != "Custom agent backup" {
		t.Errorf("Description = %q", d.Description)
	}
	if d.ModulePath() != "agents/bin/backup.sh" {
		t.Errorf("ModulePath() = %q", d.ModulePath())
	}
	if d.CLIName != "agentrunner" || d.EnvPrefix != "AGENTRUNNER" {
		t.Errorf("branding not applied: %+v", d)
	}
}

func TestGenerateAppendsToRegistry(t *testing.T) {
	root := t.TempDir()
	regPath := writeRegistry(t, root, existing)

	result, err := Generate(root, regPath, NewData("backup", "Nightly backup"))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if result.Created {
		t.Error("Created = true for an existing registry")
	}

	info, err := os.Stat(result.Program)
	if err != nil {
		t.Fatalf("program not written: %v", err)
	}
	if !platform.IsExecutable(result.Program, info) {
		t.Errorf("program %s is not executable", result.Program)
	}
	body, _ := os.ReadFile(result.Program)
	for _, want := range []string{"#!/bin/sh\n", "# backup: Nightly backup", "agentrunner run backup --", "$AGENTRUNNER_INVOCATION_ID"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("program missing %q:\n%s", want, body)
		}
	}

	reg, err := registry.Load(regPath)
	if err != nil {
		t.Fatalf("registry no longer loads: %v", err)
	}
	entries := reg.List()
	if len(entries) != 2 || entries[0].Name != "deploy-agent" || entries[1].Name != "backup" {
		t.Fatalf("entries = %v", entries)
	}
	if entries[1].ModulePath != "agents/bin/backup.sh" || entries[1].Description != "Nightly backup" {
		t.Errorf("entry = %+v", entries[1])
	}

	raw, _ := os.ReadFile(regPath)
	if !strings.HasPrefix(string(raw), "# Agents for this repository.") {
		t.Errorf("leading comment lost:\n%s", raw)
	}
}

func TestGenerateCreatesRegistry(t *testing.T) {
	root := t.TempDir()
	regPath := filepath.Join(root, "agents", "registry.yaml")

	result, err := Generate(root, regPath, NewData("first", ""))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !result.Created {
		t.Error("Created = false for a new registry")
	}

	reg, err := registry.Load(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	raw, _ := os.ReadFile(regPath)
	if strings.Contains(string(raw), "{") {
		t.Errorf("expected block style registry, got:\n%s", raw)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		agent   string
		regFile string
		setup   func(t *testing.T, root string)
		wantErr string
	}{
		{name: "invalid name", agent: "-bad", regFile: "registry.yaml", wantErr: "invalid agent name"},
		{name: "name with slash", agent: "a/b", regFile: "registry.yaml", wantErr: "invalid agent name"},
		{name: "already registered", agent: "deploy-agent", regFile: "registry.yaml", wantErr: "already registered"},
		{name: "json registry", agent: "backup", regFile: "registry.json", wantErr: "is JSON"},
		{
			name: "program exists", agent: "backup", regFile: "registry.yaml", wantErr: "already exists",
			setup: func(t *testing.T, root string) {
				p := filepath.Join(root, "agents", "bin", "backup.sh")
				if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0755); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeRegistry(t, root, existing)
			if tt.setup != nil {
				tt.setup(t, root)
			}
			regPath := filepath.Join(root, "agents", tt.regFile)

			_, err := Generate(root, regPath, NewData(tt.agent, ""))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Generate() error = %v, want %q", err, tt.wantErr)
			}

			raw, _ := os.ReadFile(filepath.Join(root, "agents", "registry.yaml"))
			if string(raw) != existing {
				t.Errorf("registry modified on error:\n%s", raw)
			}
		})
	}
}
