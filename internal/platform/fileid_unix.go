//go:build unix

package platform

import (
	"fmt"
	"os"
	"syscall"
)

// FileID returns "<inode>:<device>" for info, or "" when the platform does
// not expose them.
func FileID(info os.FileInfo) string {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d:%d", st.Ino, st.Dev)
}
