package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects operator-supplied paths that contain
// directory traversal. Absolute paths are allowed; config and database
// files commonly live outside the working directory.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}
