// Package config manages user-level settings stored at ~/.agentrunner/config.yaml.
// Values resolve with the precedence flag, AGENTRUNNER_* environment
// variable, config file, then built-in discovery: the repository root is
// found by walking up to a directory holding agents/registry.{yaml,yml,json},
// then by asking git.
package config
