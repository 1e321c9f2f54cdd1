package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/natefinch/atomic"
)

// Source names where a store's state came from when it was opened.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceBackup  Source = "backup"
	SourceEmpty   Source = "empty"
	// SourceLost marks a store whose file vanished from a data directory
	// that still holds other state. Nothing is recreated in its place.
	SourceLost Source = "lost"
)

// BackupPath is the secondary copy kept next to a store file.
func BackupPath(path string) string { return path + ".bak" }

// CorruptPath is where an unreadable store file is moved before recovery.
func CorruptPath(path string) string { return path + ".corrupt" }

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// moveAside renames an unreadable file out of the way so it can be
// inspected later instead of being overwritten.
func moveAside(path string) error {
	if err := os.Rename(path, CorruptPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: move aside %s: %w", ErrStorage, path, err)
	}
	return nil
}

// copyFile replaces dst with the contents of src in one atomic rename.
func copyFile(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrStorage, src, err)
	}
	defer f.Close()
	if err := atomic.WriteFile(dst, f); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, dst, err)
	}
	return nil
}
