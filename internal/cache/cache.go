// Package cache stores archive symbol indices keyed by the SHA-256 of the
// archive bytes, so an unchanged archive is not rescanned on the next run.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/linkset/internal/objfile"
)

const entryVersion = 1

// entry is the on-disk form of one cached index.
type entry struct {
	Version int            `yaml:"version"`
	Digest  string         `yaml:"digest"`
	Size    int64          `yaml:"size"`
	Index   *objfile.Index `yaml:"index"`
}

// Cache provides content-addressed index storage.
type Cache struct {
	fs  afero.Fs
	dir string
}

// New creates a Cache at the given directory.
// The directory is created if it does not exist.
func New(fs afero.Fs, dir string) (*Cache, error) {
	objDir := filepath.Join(dir, "objects")
	if err := fs.MkdirAll(objDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", objDir, err)
	}
	return &Cache{fs: fs, dir: dir}, nil
}

// DefaultDir returns the default cache directory.
// Uses XDG_CACHE_HOME if set, otherwise ~/.cache/linkset.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "linkset")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return filepath.Join(os.TempDir(), "linkset-cache")
		}
		return filepath.Join("/tmp", "linkset-cache")
	}
	return filepath.Join(home, ".cache", "linkset")
}

// GetIndex returns the cached index for an archive with the given bytes.
// Entries that fail to decode or carry a different digest are removed and
// reported as a miss.
func (c *Cache) GetIndex(data []byte) (*objfile.Index, bool, error) {
	hash := ComputeHash(data)
	path := c.objectPath(hash)
	fi, err := c.fs.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err == nil && fi.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", hash, err)
	}
	raw, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", hash, err)
	}

	var e entry
	if err := yaml.Unmarshal(raw, &e); err != nil || e.Version != entryVersion ||
		e.Digest != hash || e.Size != int64(len(data)) || e.Index == nil {
		_ = c.fs.Remove(path)
		return nil, false, nil
	}
	return e.Index, true, nil
}

// PutIndex stores idx for the archive with the given bytes.
// No-op if already cached.
func (c *Cache) PutIndex(data []byte, idx *objfile.Index) error {
	if idx == nil {
		return fmt.Errorf("cache put: nil index")
	}
	hash := ComputeHash(data)
	path := c.objectPath(hash)

	if ok, _ := afero.Exists(c.fs, path); ok {
		return nil
	}

	raw, err := yaml.Marshal(&entry{
		Version: entryVersion,
		Digest:  hash,
		Size:    int64(len(data)),
		Index:   idx,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", hash, err)
	}

	dir := filepath.Dir(path)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache subdirectory: %w", err)
	}

	// Atomic write: temp file + rename.
	tmp, err := afero.TempFile(c.fs, dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = c.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(raw); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache temp file: %w", err)
	}

	if err := c.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming cache temp file: %w", err)
	}

	success = true
	return nil
}

// Has checks if an index for the given archive bytes is stored.
func (c *Cache) Has(data []byte) bool {
	ok, _ := afero.Exists(c.fs, c.objectPath(ComputeHash(data)))
	return ok
}

// Size returns the number of cached entries and their total size in bytes.
func (c *Cache) Size() (int, int64, error) {
	var n int
	var total int64
	err := afero.Walk(c.fs, c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
			total += info.Size()
		}
		return nil
	})
	return n, total, err
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	objDir := filepath.Join(c.dir, "objects")
	if err := c.fs.RemoveAll(objDir); err != nil {
		return fmt.Errorf("clearing cache %s: %w", c.dir, err)
	}
	return c.fs.MkdirAll(objDir, 0o755)
}

// Path returns the cache directory path.
func (c *Cache) Path() string {
	return c.dir
}

func (c *Cache) objectPath(hash string) string {
	return filepath.Join(c.dir, "objects", hash[:2], hash+".yaml")
}

// ComputeHash computes the SHA256 hash of content and returns the hex string.
func ComputeHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
