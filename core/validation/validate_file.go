package validation

import (
	"fmt"
	"os"
)

// FileExistsError indicates a file does not exist with a descriptive message.
type FileExistsError struct {
	Path    string
	Message string
}

func (e *FileExistsError) Error() string {
	return e.Message
}

// CheckFileExists checks that a regular file exists at the given path.
// Returns nil on success or a *FileExistsError describing the failure.
func CheckFileExists(path string) error {
	if path == "" {
		return &FileExistsError{
			Path:    path,
			Message: "file path cannot be empty",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileExistsError{
				Path:    path,
				Message: fmt.Sprintf("file not found: %s", path),
			}
		}
		return &FileExistsError{
			Path:    path,
			Message: fmt.Sprintf("error checking file %s: %v", path, err),
		}
	}

	if info.IsDir() {
		return &FileExistsError{
			Path:    path,
			Message: fmt.Sprintf("path is a directory, not a file: %s", path),
		}
	}

	return nil
}
