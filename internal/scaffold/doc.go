// Package scaffold generates new exec-plugin agents from embedded templates.
// It powers the "agentrunner create" command: the agent program is written
// under agents/bin/ and an entry pointing at it is appended to the registry.
package scaffold
