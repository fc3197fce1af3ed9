package lintfix

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolver fixes lint findings for files matching its patterns.
type Resolver struct {
	ID       string            `json:"id"`
	Patterns []string          `json:"patterns,omitempty"`
	Rules    []string          `json:"rules,omitempty"`
	Commands []Group           `json:"commands,omitempty"`
	Verify   []Group           `json:"verify,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
}

// Group is an ordered list of alternative command lines; the first whose
// executable is available runs.
type Group [][]string

// UnmarshalJSON accepts a single command line (["ruff", "check"]) as a group
// with one candidate.
func (g *Group) UnmarshalJSON(data []byte) error {
	var candidates [][]string
	if err := json.Unmarshal(data, &candidates); err == nil {
		*g = candidates
		return nil
	}
	var single []string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("command group must be a list of strings or a list of lists: %w", err)
	}
	*g = Group{single}
	return nil
}

// DefaultResolvers is used when the agent has no resolvers configured.
var DefaultResolvers = []Resolver{
	{
		ID:       "python-ruff",
		Patterns: []string{"*.py", "scripts/**/*.py", ".cursor/**/*.py"},
		Commands: []Group{
			{
				{"uv", "run", "ruff", "check", "--fix", "{file}"},
				{"ruff", "check", "--fix", "{file}"},
			},
			{
				{"uv", "run", "ruff", "format", "{file}"},
				{"ruff", "format", "{file}"},
			},
		},
		Verify: []Group{
			{
				{"uv", "run", "ruff", "check", "{file}"},
				{"ruff", "check", "{file}"},
			},
		},
	},
}

// ParseResolvers decodes the "resolvers" config value.
func ParseResolvers(v any) ([]Resolver, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding resolvers: %w", err)
	}
	var out []Resolver
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding resolvers: %w", err)
	}
	return out, nil
}

// Select returns the first resolver whose patterns match rel (a slash
// separated repo-relative path) and, when both a rule and rule patterns are
// given, whose rules match rule.
func Select(resolvers []Resolver, rel, rule string) (*Resolver, bool) {
	for i := range resolvers {
		r := &resolvers[i]
		if len(r.Patterns) > 0 && !matchAny(r.Patterns, rel) {
			continue
		}
		if rule != "" && len(r.Rules) > 0 && !matchAny(r.Rules, rule) {
			continue
		}
		return r, true
	}
	return nil, false
}

// matchAny reports whether name matches one of the glob patterns. "**"
// spans directories; a pattern without a slash also matches the base name,
// so "*.py" selects Python files anywhere in the tree.
func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, path.Base(name)); ok {
				return true
			}
		}
	}
	return false
}

// Expand substitutes {key} placeholders from vars. "{{" and "}}" are literal
// braces; an unknown key is an error.
func Expand(s string, vars map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder in %q", s)
			}
			key := s[i+1 : i+end]
			val, ok := vars[key]
			if !ok {
				return "", fmt.Errorf("unknown placeholder {%s} in %q", key, s)
			}
			b.WriteString(val)
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
