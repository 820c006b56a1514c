package container

import (
	"os"

	"github.com/pkg/errors"
)

// ReadFile reads an entire file into memory, wrapping any error with
// the path for context the way the rest of the module reports faults.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read file %q", path)
	}
	return data, nil
}

// WriteFile writes data to path, creating it with 0644 permissions if
// it does not already exist.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write file %q", path)
	}
	return nil
}
