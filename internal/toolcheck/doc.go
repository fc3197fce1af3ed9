// Package toolcheck verifies that the external tools agents declare in their
// registry "requires" lists are installed and new enough.
package toolcheck
