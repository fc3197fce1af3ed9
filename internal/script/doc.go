// Package script runs a Lua program against a resolved agent.
//
// The program sees the agent, the registry and a fixed set of bindings as
// globals (see Execute). It runs with the runner's full privileges: there is
// no sandbox beyond the choice of which bindings exist. The interpreter's os
// and io libraries are not opened, so termination goes through exit().
package script
