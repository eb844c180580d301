// Package sandbox writes output files atomically, refusing any path that
// resolves outside a root directory.
package sandbox

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePath checks if targetPath is safely within root.
// Relative paths are taken relative to root; absolute ones must still
// resolve inside it. Symlinks are resolved before the check.
// Returns the resolved absolute path or an error.
func ValidatePath(root, targetPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving output root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving output root symlinks: %w", err)
	}

	candidate := targetPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(realRoot, targetPath)
	}
	candidate = filepath.Clean(candidate)

	// The path may not exist yet, so resolve as much as we can.
	resolved, err := resolveExistingPath(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving output path: %w", err)
	}

	// Trailing separator avoids matching "root2" for "root".
	rootPrefix := realRoot + string(filepath.Separator)
	if resolved != realRoot && !strings.HasPrefix(resolved, rootPrefix) {
		return "", fmt.Errorf("path '%s' resolves to '%s' which is outside the output root '%s'", targetPath, resolved, realRoot)
	}

	return resolved, nil
}

// resolveExistingPath resolves symlinks for the longest existing prefix of the path,
// then appends the non-existing suffix.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if dir == path {
		return path, nil
	}

	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedDir, base), nil
}

// SafeWrite atomically writes content to a path within root.
func SafeWrite(root, path string, content []byte, perm os.FileMode) error {
	return SafeCreate(root, path, perm, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

// SafeCreate atomically replaces path within root with whatever write
// produces. The destination is untouched if write fails.
func SafeCreate(root, path string, perm os.FileMode, write func(io.Writer) error) error {
	resolved, err := ValidatePath(root, path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, ".linkset-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, resolved); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", resolved, err)
	}

	success = true
	return nil
}
