package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

var (
	// ErrNotFound is returned when the registry document does not exist.
	ErrNotFound = errors.New("registry not found")
	// ErrUnknownAgent is returned by Lookup for names that are not registered.
	ErrUnknownAgent = errors.New("unknown agent")
)

// ParseError reports a registry document that exists but cannot be used.
// Issues is populated when the failure came from schema validation.
type ParseError struct {
	Path   string
	Issues []ValidationIssue
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parsing registry %s: %v", e.Path, e.Err)
	for _, issue := range e.Issues {
		if issue.Path != "" {
			fmt.Fprintf(&b, "\n  %s: %s", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(&b, "\n  %s", issue.Message)
		}
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Locate returns the first registry file that exists under
// <repoRoot>/agents/, trying DefaultFileNames in order.
func Locate(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, DefaultDir)
	for _, name := range DefaultFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no %s in %s", ErrNotFound, strings.Join(DefaultFileNames, ", "), dir)
}

// Load reads and parses the registry document at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a registry document. JSON documents are accepted as YAML.
// Entry order follows the document; duplicate names are rejected.
func Parse(data []byte, path string) (*Registry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	result, err := validateNode(&doc)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if !result.Valid {
		return nil, &ParseError{Path: path, Issues: result.Issues, Err: errors.New("schema validation failed")}
	}

	agents := mappingValue(&doc, "agents")
	if agents == nil {
		return nil, &ParseError{Path: path, Err: errors.New("missing 'agents' mapping")}
	}

	reg := &Registry{Path: path, index: make(map[string]*Entry)}
	for i := 0; i+1 < len(agents.Content); i += 2 {
		keyNode, valNode := agents.Content[i], agents.Content[i+1]
		name := keyNode.Value

		if _, dup := reg.index[name]; dup {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("agent %q declared more than once (line %d)", name, keyNode.Line)}
		}

		entry, err := decodeEntry(name, valNode)
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		reg.entries = append(reg.entries, entry)
		reg.index[name] = entry
	}

	return reg, nil
}

// New builds an in-memory registry from entries, preserving their order.
func New(entries ...*Entry) (*Registry, error) {
	reg := &Registry{index: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, errors.New("registry entry has no name")
		}
		if _, dup := reg.index[e.Name]; dup {
			return nil, fmt.Errorf("agent %q declared more than once", e.Name)
		}
		if e.Config == nil {
			e.Config = map[string]any{}
		}
		reg.entries = append(reg.entries, e)
		reg.index[e.Name] = e
	}
	return reg, nil
}

// Lookup returns the entry registered under name. Matching is exact and
// case-sensitive.
func (r *Registry) Lookup(name string) (*Entry, error) {
	if e, ok := r.index[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: agent '%s' is not registered", ErrUnknownAgent, name)
}

// List returns all entries in document order.
func (r *Registry) List() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int { return len(r.entries) }

// decodeEntry decodes one agent mapping into both the typed Entry and the raw
// config map.
func decodeEntry(name string, node *yaml.Node) (*Entry, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("agent %q: expected a mapping (line %d)", name, node.Line)
	}

	var entry Entry
	if err := node.Decode(&entry); err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}

	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}

	entry.Name = name
	entry.Config = normalizeYAML(raw).(map[string]any)
	return &entry, nil
}

// mappingValue returns the value node stored under key in the document's
// top-level mapping, or nil.
func mappingValue(doc *yaml.Node, key string) *yaml.Node {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			if v := root.Content[i+1]; v.Kind == yaml.MappingNode {
				return v
			}
			return nil
		}
	}
	return nil
}
