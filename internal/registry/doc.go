// Package registry loads the declarative agent registry: a YAML or JSON
// document mapping each agent name to its implementation locator and static
// configuration. It preserves document order, rejects duplicate names and
// validates the document against an embedded JSON schema before any entry is
// handed to the loader.
package registry
