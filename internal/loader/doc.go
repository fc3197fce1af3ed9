// Package loader turns registry entries into live agents.
//
// Implementations come from two places. Logical module IDs name units
// registered at compile time in a Catalog. Filesystem paths name exec
// plugins: executables the runner launches with the agent's arguments and
// static config. Either way a unit is initialized at most once per Cache and
// exposes named symbols; the entry's class selects the factory symbol used to
// construct a fresh agent on every resolution.
package loader
