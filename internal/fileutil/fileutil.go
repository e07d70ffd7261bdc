// Package fileutil has the file operations used to publish an export
// database: directory creation, a private temporary file next to the
// destination, and the final replace.
//
// Owner-only modes (perm&0077 == 0) are enforced with a DACL on Windows.
package fileutil

import "os"

// isOwnerOnly reports whether perm grants nothing to group or other.
func isOwnerOnly(perm os.FileMode) bool {
	return perm&0o077 == 0
}

// CreateTemp creates a new empty file in dir with mode perm and returns its
// name. The name is built from pattern as with os.CreateTemp.
func CreateTemp(dir, pattern string, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := chmod(name, perm); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
