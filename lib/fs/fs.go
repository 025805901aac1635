// Package fs provides the atomic directory/file primitives the part
// lifecycle relies on: parts are built under tmp_<name>/ and published
// with a single rename.
package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mergetable/mergetable/lib/logger"
)

// IsPathExist returns true if path exists.
func IsPathExist(path string) bool {
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	return !os.IsNotExist(err)
}

// MkdirAllFailIfExist creates path, failing if it already exists.
func MkdirAllFailIfExist(path string) error {
	if IsPathExist(path) {
		return fmt.Errorf("the %q already exists", path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("cannot create directory %q: %w", path, err)
	}
	return nil
}

// MkdirAllIfNotExist creates path if it doesn't exist yet.
func MkdirAllIfNotExist(path string) error {
	if IsPathExist(path) {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

// SyncPath fsyncs the given directory or file, so renames into it are
// guaranteed to survive a crash.
func SyncPath(path string) {
	d, err := os.Open(path)
	if err != nil {
		logger.Panicf("FATAL: cannot open %q: %s", path, err)
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		logger.Panicf("FATAL: cannot fsync %q: %s", path, err)
	}
	if err := d.Close(); err != nil {
		logger.Panicf("FATAL: cannot close %q: %s", path, err)
	}
}

// MustWriteSync writes data to path and fsyncs it and its parent dir.
func MustWriteSync(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Panicf("FATAL: cannot write %q: %s", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Panicf("FATAL: cannot reopen %q for fsync: %s", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		logger.Panicf("FATAL: cannot fsync %q: %s", path, err)
	}
	_ = f.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		logger.Panicf("FATAL: cannot resolve absolute path for %q: %s", path, err)
	}
	SyncPath(filepath.Dir(absPath))
}

// MustRemoveAll removes path and everything under it.
//
// Missing paths are treated as already removed.
func MustRemoveAll(path string) {
	if err := os.RemoveAll(path); err != nil {
		logger.Panicf("FATAL: cannot remove %q: %s", path, err)
	}
}

// MustRenamePublish renames tmpPath to finalPath and fsyncs the parent
// directory, giving part creation an atomic directory-rename
// publication.
func MustRenamePublish(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("cannot rename %q to %q: %w", tmpPath, finalPath, err)
	}
	absPath, err := filepath.Abs(finalPath)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path for %q: %w", finalPath, err)
	}
	SyncPath(filepath.Dir(absPath))
	return nil
}

// ReadFileAt reads exactly len(p) bytes from f at offset off.
func ReadFileAt(f *os.File, p []byte, off int64) error {
	n, err := f.ReadAt(p, off)
	if err != nil {
		return fmt.Errorf("cannot read %d bytes at offset %d of %q: %w", len(p), off, f.Name(), err)
	}
	if n != len(p) {
		return fmt.Errorf("short read at offset %d of %q: got %d bytes, want %d", off, f.Name(), n, len(p))
	}
	return nil
}

// FileSize returns the size in bytes of the file at path.
func FileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// MustGetModTime returns the file's modification time in unix millis.
func MustGetModTime(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		logger.Panicf("FATAL: cannot stat %q: %s", path, err)
	}
	return fi.ModTime().UnixMilli()
}
