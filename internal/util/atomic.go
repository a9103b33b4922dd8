// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirPerm is used when WriteFileAtomic has to create parent directories.
const DefaultDirPerm os.FileMode = 0700

// WriteFileAtomic writes data to path so that readers only ever observe the
// previous content or the complete new content.
//
// The data goes to a temp file in the target directory, is fsynced, gets
// its final permissions and is then renamed over path. Rename is only
// atomic within one filesystem, which is why the temp file is a sibling.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteFileAtomicDir(path, data, perm, DefaultDirPerm)
}

// WriteFileAtomicDir is WriteFileAtomic with an explicit mode for any parent
// directories it creates.
func WriteFileAtomicDir(path string, data []byte, perm, dirPerm os.FileMode) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(absPath)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	// Windows refuses to rename an open file.
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, absPath); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	committed = true
	return nil
}
