//go:build !unix

package platform

import "os"

// FileID returns "" on platforms without inode numbers; callers then rely on
// size checks alone to detect rotation.
func FileID(os.FileInfo) string { return "" }
