package util

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultWorkDir returns the per-user directory for gateway state (config
// file, logs).
func DefaultWorkDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.ExpandEnv("${USERPROFILE}"), "rpcgate")
	default:
		return filepath.Join(os.ExpandEnv("${HOME}"), ".rpcgate")
	}
}
