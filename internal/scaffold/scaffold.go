package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/freqkflag/agentrunner/internal/branding"
	"github.com/freqkflag/agentrunner/internal/platform"
	"github.com/freqkflag/agentrunner/internal/registry"
)

//go:embed templates
var templateFS embed.FS

// BinDir is the repository-relative directory generated programs go to.
const BinDir = "agents/bin"

// validName mirrors the registry schema's agent name pattern.
var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Data holds all template variables available to scaffold templates.
type Data struct {
	Name        string // e.g., "backup-agent"
	Description string // Human-readable description
	Tags        []string
	CLIName     string // Derived: branding.CLIName()
	EnvPrefix   string // Derived: branding.EnvPrefix()
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	Program  string // absolute path of the generated program
	Registry string // registry document the entry was added to
	Created  bool   // whether the registry document was created
}

// NewData creates a Data with derived fields populated.
func NewData(name, description string) *Data {
	if description == "" {
		description = "Custom agent " + name
	}
	return &Data{
		Name:        name,
		Description: description,
		Tags:        []string{"custom"},
		CLIName:     branding.CLIName(),
		EnvPrefix:   branding.EnvPrefix(),
	}
}

// ModulePath returns the registry module_path of the generated program.
func (d *Data) ModulePath() string {
	return BinDir + "/" + d.Name + ".sh"
}

// Generate writes the agent program under repoRoot and registers it in the
// registry document at registryPath, creating the document if needed.
// Nothing is written when the name is invalid or already taken.
func Generate(repoRoot, registryPath string, data *Data) (*Result, error) {
	if !validName.MatchString(data.Name) {
		return nil, fmt.Errorf("invalid agent name %q: must match %s", data.Name, validName)
	}
	if strings.EqualFold(filepath.Ext(registryPath), ".json") {
		return nil, fmt.Errorf("registry %s is JSON; add %q by hand or switch to registry.yaml", registryPath, data.Name)
	}

	doc, created, err := readDocument(registryPath)
	if err != nil {
		return nil, err
	}
	updated, err := addEntry(doc, data)
	if err != nil {
		return nil, err
	}
	if _, err := registry.Parse(updated, registryPath); err != nil {
		return nil, fmt.Errorf("generated registry is invalid: %w", err)
	}

	program := filepath.Join(repoRoot, filepath.FromSlash(data.ModulePath()))
	if _, err := os.Stat(program); err == nil {
		return nil, fmt.Errorf("%s already exists; remove it first", program)
	}

	body, err := render("templates/exec/agent.sh.tmpl", data)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(program), 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(program), err)
	}
	if err := os.WriteFile(program, body, 0755); err != nil {
		return nil, fmt.Errorf("writing %s: %w", program, err)
	}
	if err := platform.Chmod(program, 0755); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(registryPath), 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(registryPath), err)
	}
	if err := os.WriteFile(registryPath, updated, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", registryPath, err)
	}

	return &Result{Program: program, Registry: registryPath, Created: created}, nil
}

func render(name string, data *Data) ([]byte, error) {
	src, err := fs.ReadFile(templateFS, name)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}
	tmpl, err := template.New(filepath.Base(name)).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// readDocument parses the registry at path, or returns an empty document
// when it does not exist yet.
func readDocument(path string) (*yaml.Node, bool, error) {
	created := false
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data, created = []byte("agents: {}\n"), true
	case err != nil:
		return nil, false, fmt.Errorf("reading registry %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, &registry.ParseError{Path: path, Err: err}
	}
	return &doc, created, nil
}

// addEntry appends the agent to the document's agents mapping, keeping the
// existing entries and their order, and returns the re-encoded document.
func addEntry(doc *yaml.Node, data *Data) ([]byte, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("registry document is not a mapping")
	}
	root := doc.Content[0]

	var agents *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "agents" {
			agents = root.Content[i+1]
			break
		}
	}
	if agents == nil {
		agents = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "agents"}, agents)
	}
	if agents.Kind != yaml.MappingNode {
		return nil, errors.New("registry 'agents' is not a mapping")
	}
	for i := 0; i < len(agents.Content); i += 2 {
		if agents.Content[i].Value == data.Name {
			return nil, fmt.Errorf("agent %q is already registered", data.Name)
		}
	}

	entry := registry.Entry{
		Description: data.Description,
		ModulePath:  data.ModulePath(),
		Tags:        data.Tags,
	}
	var value yaml.Node
	if err := value.Encode(&entry); err != nil {
		return nil, fmt.Errorf("encoding entry %s: %w", data.Name, err)
	}
	// Flow style from an empty "agents: {}" would otherwise carry over.
	agents.Style = 0
	agents.Content = append(agents.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: data.Name}, &value)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding registry: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
