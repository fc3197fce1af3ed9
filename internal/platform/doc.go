// Package platform hides the few filesystem differences the runner cares
// about between Unix and Windows: applying permission bits to state files,
// deciding whether a plugin path is executable and identifying a file across
// renames.
package platform
