//go:build !windows

package fileutil

import (
	"os"
	"path/filepath"
)

// MkdirAll creates path and any missing parents with mode perm.
func MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func chmod(path string, perm os.FileMode) error {
	return os.Chmod(path, perm)
}

// ReplaceFile renames src over dst, then syncs the parent directory so the
// new entry survives a crash. A failed directory sync is not an error.
func ReplaceFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	d, err := os.Open(filepath.Dir(dst))
	if err != nil {
		return nil
	}
	defer d.Close()
	_ = d.Sync()
	return nil
}
