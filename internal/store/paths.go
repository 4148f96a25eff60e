package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFileName is the SQLite database file inside the study directory.
const DBFileName = "panelwell.db"

// StudyDir returns the path to the .panelwell directory for the given
// study root.
func StudyDir(root string) string {
	return filepath.Join(root, ".panelwell")
}

// DBPath returns the path to the study database for the given root.
func DBPath(root string) string {
	return filepath.Join(StudyDir(root), DBFileName)
}

// EnsureStudyDir creates the .panelwell directory if it doesn't exist.
func EnsureStudyDir(root string) error {
	if err := os.MkdirAll(StudyDir(root), 0755); err != nil {
		return fmt.Errorf("failed to create study directory: %w", err)
	}
	return nil
}
