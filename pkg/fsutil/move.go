// Package fsutil provides crash-safe file relocation helpers.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// DirPerm is the permission used for directories created by stackzip.
const DirPerm = 0o750

// tempPattern is the suffix pattern for in-flight copies.
const tempPattern = ".tmp-*"

// MoveFile moves src to dst. A same-device move is a single rename. Across
// devices the content is copied to a temporary file beside dst, synced and
// renamed into place before src is removed, so dst is never seen half written.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("rename %s: %w", filepath.Base(src), err)
	}

	return moveAcross(src, dst)
}

// moveAcross relocates src to dst without relying on rename between them.
// src is removed only once dst is complete.
func moveAcross(src, dst string) error {
	err := copyInto(src, dst)
	if err != nil {
		return err
	}

	err = os.Remove(src)
	if err != nil {
		return fmt.Errorf("remove moved source: %w", err)
	}

	return nil
}

// SyncDir fsyncs a directory so a completed rename survives a crash.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer d.Close()

	err = d.Sync()
	if err != nil && !errors.Is(err, syscall.EINVAL) {
		return fmt.Errorf("sync dir: %w", err)
	}

	return nil
}

func copyInto(src, dst string) (retErr error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+tempPattern)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	_, err = io.Copy(tmp, in)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	err = tmp.Sync()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	err = os.Rename(tmp.Name(), dst)
	if err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}

	return nil
}
