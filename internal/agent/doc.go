// Package agent defines the contract every runnable agent satisfies, the
// Base type agents embed for their registry-derived metadata, and Run, which
// parses an agent's arguments and maps its outcome to a process exit code.
package agent
