// Package state persists per-file read offsets for agents that tail logs.
//
// Two backends share the Store interface: a JSON document (the default) and
// a SQLite database, selected by the state file's extension.
package state
