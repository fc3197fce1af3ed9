package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func TestLoad_PreservesDocumentOrder(t *testing.T) {
	tests := []struct {
		file  string
		names []string
	}{
		{"valid-registry.yaml", []string{"deploy-agent", "status-agent", "logger-agent", "backup-hook"}},
		{"valid-registry.json", []string{"zeta", "alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			reg, err := Load(testPath(tt.file))
			if err != nil {
				t.Fatalf("Load(%s) error: %v", tt.file, err)
			}
			var got []string
			for _, e := range reg.List() {
				got = append(got, e.Name)
			}
			if !reflect.DeepEqual(got, tt.names) {
				t.Errorf("List() names = %v, want %v", got, tt.names)
			}
			if reg.Len() != len(tt.names) {
				t.Errorf("Len() = %d, want %d", reg.Len(), len(tt.names))
			}
			if reg.Path != testPath(tt.file) {
				t.Errorf("Path = %q, want %q", reg.Path, testPath(tt.file))
			}
		})
	}
}

func TestLoad_EntryFields(t *testing.T) {
	reg, err := Load(testPath("valid-registry.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	deploy, err := reg.Lookup("deploy-agent")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if deploy.Module != "agents/deploy" {
		t.Errorf("Module = %q, want %q", deploy.Module, "agents/deploy")
	}
	if deploy.EntryPoint() != "DeployAgent" {
		t.Errorf("EntryPoint() = %q, want %q", deploy.EntryPoint(), "DeployAgent")
	}
	if !reflect.DeepEqual(deploy.AllowedHosts, []string{"vps.host", "home.macmini"}) {
		t.Errorf("AllowedHosts = %v", deploy.AllowedHosts)
	}
	if !reflect.DeepEqual(deploy.Tags, []string{"deploy", "infra"}) {
		t.Errorf("Tags = %v", deploy.Tags)
	}
	if len(deploy.Requires) != 1 || deploy.Requires[0].Name != "infisical" || deploy.Requires[0].MinVersion != "0.20.0" {
		t.Errorf("Requires = %+v", deploy.Requires)
	}

	// Unknown keys survive verbatim in Config.
	if got := deploy.Config["default_env"]; got != "production" {
		t.Errorf("Config[default_env] = %v, want production", got)
	}
	if got := deploy.Config["description"]; got != deploy.Description {
		t.Errorf("Config[description] = %v, want %q", got, deploy.Description)
	}

	hook, err := reg.Lookup("backup-hook")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if hook.ModulePath != "scripts/agents/backup-hook.sh" {
		t.Errorf("ModulePath = %q", hook.ModulePath)
	}
	if hook.EntryPoint() != DefaultEntryPoint {
		t.Errorf("EntryPoint() = %q, want %q", hook.EntryPoint(), DefaultEntryPoint)
	}
}

func TestLookup_ExactCaseSensitive(t *testing.T) {
	reg, err := Load(testPath("valid-registry.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	for _, name := range []string{"Deploy-Agent", "deploy", "deploy-agent ", ""} {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Lookup(name)
			if !errors.Is(err, ErrUnknownAgent) {
				t.Fatalf("Lookup(%q) error = %v, want ErrUnknownAgent", name, err)
			}
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(testPath("nonexistent.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load error = %v, want ErrNotFound", err)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	files := []string{
		"invalid-not-yaml.yaml",
		"invalid-missing-agents.yaml",
		"invalid-bad-tags.yaml",
		"invalid-bad-name.yaml",
		"invalid-requirement.yaml",
		"duplicate-names.yaml",
	}

	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			reg, err := Load(testPath(file))
			if reg != nil {
				t.Errorf("Load(%s) returned a registry, want nil", file)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Load(%s) error = %v, want *ParseError", file, err)
			}
			if perr.Path != testPath(file) {
				t.Errorf("ParseError.Path = %q, want %q", perr.Path, testPath(file))
			}
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse(nil, "empty.yaml")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse(nil) error = %v, want *ParseError", err)
	}
}

func TestLocate_FallbackOrder(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, DefaultDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := Locate(root); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate on empty dir error = %v, want ErrNotFound", err)
	}

	jsonPath := filepath.Join(dir, "registry.json")
	if err := os.WriteFile(jsonPath, []byte(`{"agents": {}}`), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Locate(root)
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if got != jsonPath {
		t.Errorf("Locate = %q, want %q", got, jsonPath)
	}

	yamlPath := filepath.Join(dir, "registry.yaml")
	if err := os.WriteFile(yamlPath, []byte("agents: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = Locate(root)
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if got != yamlPath {
		t.Errorf("Locate = %q, want %q (yaml wins over json)", got, yamlPath)
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(&Entry{Name: "a"}, &Entry{Name: "a"})
	if err == nil {
		t.Fatal("expected error for duplicate names, got nil")
	}

	reg, err := New(&Entry{Name: "b"}, &Entry{Name: "a"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	list := reg.List()
	if list[0].Name != "b" || list[1].Name != "a" {
		t.Errorf("New did not preserve order: %s, %s", list[0].Name, list[1].Name)
	}
	if list[0].Config == nil {
		t.Error("New left Config nil")
	}
}
