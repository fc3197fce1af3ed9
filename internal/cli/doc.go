// Package cli defines the Cobra command tree for the agentrunner CLI. Each
// file in this package registers one top-level command (list, describe, run,
// doctor, config, version) with the root command. Commands delegate to the
// registry, loader and script packages and only handle argument parsing and
// output formatting.
package cli
