package agent

import "fmt"

// Config is an agent's static configuration: its registry entry, verbatim.
type Config map[string]any

// String returns the string stored under key, or "" when absent or not a string.
func (c Config) String(key string) string {
	if s, ok := c[key].(string); ok {
		return s
	}
	return ""
}

// StringOr returns the string stored under key, or def when it is empty.
func (c Config) StringOr(key, def string) string {
	if s := c.String(key); s != "" {
		return s
	}
	return def
}

// Strings returns the list stored under key. Non-string items are formatted
// with %v; a scalar string is returned as a one-element list.
func (c Config) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Map returns the nested mapping stored under key, or nil.
func (c Config) Map(key string) map[string]any {
	if m, ok := c[key].(map[string]any); ok {
		return m
	}
	return nil
}

// Clone returns a shallow copy so an agent never shares its map with the registry.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
