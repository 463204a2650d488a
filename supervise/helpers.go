package supervise

import (
	"os"
	"path/filepath"
)

// ProgramName is the base name diagnostics are prefixed with.
func ProgramName() string {
	if len(os.Args) == 0 {
		return "daemon-helper"
	}
	return filepath.Base(os.Args[0])
}
