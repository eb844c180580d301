// Package fileid provides stable identities for input files so the same
// physical file reached through different path spellings is added once.
package fileid

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ID is an opaque, comparable identity for a physical file.
type ID struct {
	volume uint64
	index  uint64
	path   string
}

// FromDevIno builds an identity from a device (or volume) and file number.
func FromDevIno(volume, index uint64) ID {
	return ID{volume: volume, index: index}
}

// FromPath builds an identity from a canonical path. It is used where the
// filesystem has no notion of file numbers.
func FromPath(path string) ID {
	return ID{path: filepath.Clean(path)}
}

// IsZero reports whether id was never assigned.
func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) String() string {
	if id.path != "" {
		return "path:" + id.path
	}
	return fmt.Sprintf("%x:%x", id.volume, id.index)
}

// Provider computes the identity of the file at path.
type Provider interface {
	ID(path string) (ID, error)
}

// OSProvider identifies files on the host filesystem by device and inode
// (or volume serial and file index on Windows).
type OSProvider struct{}

// ID returns the identity of path on the host filesystem.
func (OSProvider) ID(path string) (ID, error) {
	return statID(path)
}

// PathProvider identifies files by their cleaned absolute path inside Fs.
// It suits in-memory filesystems, which have no file numbers.
type PathProvider struct {
	Fs afero.Fs
	// Dir anchors relative paths. Empty means "/".
	Dir string
}

// ID returns the path-based identity of path. The file must exist.
func (p PathProvider) ID(path string) (ID, error) {
	dir := p.Dir
	if dir == "" {
		dir = "/"
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(dir, abs)
	}
	abs = filepath.Clean(abs)
	if p.Fs != nil {
		if _, err := p.Fs.Stat(abs); err != nil {
			return ID{}, err
		}
	}
	return FromPath(abs), nil
}

// ForFs picks the provider matching fs: host identities for the OS
// filesystem, path identities for anything else.
func ForFs(fs afero.Fs) Provider {
	if _, ok := fs.(*afero.OsFs); ok {
		return OSProvider{}
	}
	return PathProvider{Fs: fs}
}
