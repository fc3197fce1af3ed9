// Package runtime runs the external commands agents delegate to. The Executor
// interface lets agents be tested without spawning processes; OSExecutor is
// the production implementation, streaming output while capturing it and
// mapping a non-zero exit into Output.ExitCode rather than an error.
package runtime
