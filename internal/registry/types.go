package registry

// DefaultEntryPoint is the symbol looked up in an implementation unit when an
// entry does not name one.
const DefaultEntryPoint = "Agent"

// Entry is one agent declaration from the registry document. The well-known
// fields are decoded for convenience; Config keeps the whole mapping verbatim
// and is what gets handed to the agent.
type Entry struct {
	Name         string         `yaml:"-" json:"-"`
	Description  string         `yaml:"description" json:"description,omitempty"`
	ModulePath   string         `yaml:"module_path,omitempty" json:"module_path,omitempty"`
	Module       string         `yaml:"module,omitempty" json:"module,omitempty"`
	Class        string         `yaml:"class,omitempty" json:"class,omitempty"`
	AllowedHosts []string       `yaml:"allowed_hosts,omitempty" json:"allowed_hosts,omitempty"`
	Outputs      []string       `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Tags         []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	StateFile    string         `yaml:"state_file,omitempty" json:"state_file,omitempty"`
	Requires     []Requirement  `yaml:"requires,omitempty" json:"requires,omitempty"`
	Config       map[string]any `yaml:"-" json:"-"`
}

// Requirement declares an external tool an agent shells out to.
type Requirement struct {
	Name        string   `yaml:"name" json:"name"`
	MinVersion  string   `yaml:"min_version,omitempty" json:"min_version,omitempty"`
	VersionArgs []string `yaml:"version_args,omitempty" json:"version_args,omitempty"`
}

// EntryPoint returns the symbol name to resolve, falling back to DefaultEntryPoint.
func (e *Entry) EntryPoint() string {
	if e.Class == "" {
		return DefaultEntryPoint
	}
	return e.Class
}

// Registry is the ordered, name-indexed set of entries loaded from one document.
type Registry struct {
	// Path is the file the registry was loaded from; empty for in-memory registries.
	Path string

	entries []*Entry
	index   map[string]*Entry
}

// DefaultFileNames is the lookup order for the registry document under
// <repo-root>/agents/.
var DefaultFileNames = []string{"registry.yaml", "registry.yml", "registry.json"}

// DefaultDir is the repository-relative directory holding the registry.
const DefaultDir = "agents"
