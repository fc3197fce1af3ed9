package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// windowsExecExts lists the extensions Windows treats as directly runnable.
var windowsExecExts = []string{".exe", ".bat", ".cmd", ".com", ".ps1"}

// IsExecutable reports whether info describes a regular file the current
// platform can execute. On Unix any execute bit counts; on Windows the
// extension decides.
func IsExecutable(path string, info os.FileInfo) bool {
	if info == nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range windowsExecExts {
			if ext == e {
				return true
			}
		}
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
