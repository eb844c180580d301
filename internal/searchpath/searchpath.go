// Package searchpath locates input files and libraries named on the command
// line or in directive sections.
package searchpath

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrNotFound is the kind of every lookup failure.
var ErrNotFound = errors.New("not found")

// Kind selects the extension tried for a bare name.
type Kind int

const (
	// File names get ".obj" appended.
	File Kind = iota
	// Library names get ".lib" appended.
	Library
)

func (k Kind) String() string {
	if k == Library {
		return "library"
	}
	return "file"
}

// Flavor selects the library naming conventions.
type Flavor int

const (
	MSVC Flavor = iota
	// MinGW also accepts lib<name>.a and lib<name>.dll.a once the MSVC
	// names failed in every directory.
	MinGW
)

// ParseFlavor parses "msvc" or "mingw".
func ParseFlavor(s string) (Flavor, error) {
	switch strings.ToLower(s) {
	case "", "msvc":
		return MSVC, nil
	case "mingw":
		return MinGW, nil
	}
	return MSVC, fmt.Errorf("unknown flavor '%s' — must be msvc or mingw", s)
}

func (f Flavor) String() string {
	if f == MinGW {
		return "mingw"
	}
	return "msvc"
}

// NotFoundError reports a name that matched nothing.
type NotFoundError struct {
	Name  string
	Kind  Kind
	Tried []string
}

func (e *NotFoundError) Error() string {
	if e.Kind == Library {
		return fmt.Sprintf("could not open '%s': library not found in search path", e.Name)
	}
	return fmt.Sprintf("could not open '%s': no such file or directory", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Resolver resolves names against an ordered directory list. Dirs is never
// modified after construction.
type Resolver struct {
	fs     afero.Fs
	dirs   []string
	flavor Flavor
	log    logrus.FieldLogger
}

// New creates a resolver over dirs, searched in order.
func New(fs afero.Fs, dirs []string, flavor Flavor, log logrus.FieldLogger) *Resolver {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Resolver{
		fs:     fs,
		dirs:   append([]string(nil), dirs...),
		flavor: flavor,
		log:    log.WithField("component", "searchpath"),
	}
}

// Dirs returns a copy of the search list.
func (r *Resolver) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// With returns a resolver searching r's directories followed by dirs.
// r itself is left unchanged.
func (r *Resolver) With(dirs ...string) *Resolver {
	out := *r
	out.dirs = append(r.Dirs(), dirs...)
	return &out
}

// HasPathSep reports whether name names a path rather than a bare file.
func HasPathSep(name string) bool {
	return strings.ContainsAny(name, `/\`)
}

func hasExt(name string) bool {
	return strings.Contains(name, ".")
}

// Candidates lists every path Find tries for name, in order.
func (r *Resolver) Candidates(name string, kind Kind) []string {
	if HasPathSep(name) || filepath.IsAbs(name) {
		return []string{name}
	}
	var out []string
	primary := r.primaryNames(name, kind)
	for _, dir := range r.dirs {
		for _, base := range primary {
			out = append(out, filepath.Join(dir, base))
		}
	}
	for _, base := range r.secondaryNames(name, kind) {
		for _, dir := range r.dirs {
			out = append(out, filepath.Join(dir, base))
		}
	}
	return out
}

// primaryNames returns the names tried in each directory: the bare name,
// then the name with the default extension when it has none.
func (r *Resolver) primaryNames(name string, kind Kind) []string {
	if hasExt(name) {
		return []string{name}
	}
	if kind == Library {
		return []string{name, name + ".lib"}
	}
	return []string{name, name + ".obj"}
}

func (r *Resolver) secondaryNames(name string, kind Kind) []string {
	if r.flavor != MinGW || kind != Library {
		return nil
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return []string{"lib" + stem + ".a", "lib" + stem + ".dll.a"}
}

// Find resolves name to an existing path. Within each directory the bare
// name is tried before the default extension; MinGW names are tried only
// after every directory failed.
func (r *Resolver) Find(name string, kind Kind) (string, error) {
	tried := r.Candidates(name, kind)
	for _, p := range tried {
		if r.exists(p) {
			r.log.WithFields(logrus.Fields{"name": name, "path": p}).Debug("Resolved")
			return p, nil
		}
	}
	return "", &NotFoundError{Name: name, Kind: kind, Tried: tried}
}

func (r *Resolver) exists(p string) bool {
	fi, err := r.fs.Stat(p)
	return err == nil && !fi.IsDir()
}
