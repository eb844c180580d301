// Package objfile turns input file bytes into what the resolver consumes:
// the symbol contributions and directive text of an object, or the symbol
// index and members of an archive.
package objfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCorrupt is the kind of every error raised for malformed input bytes.
var ErrCorrupt = errors.New("corrupt input")

// FormatError reports malformed input bytes.
type FormatError struct {
	Format string
	Name   string
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Name, e.Format, e.Msg)
}

func (e *FormatError) Unwrap() error { return ErrCorrupt }

func corruptf(format, name, msg string, args ...any) error {
	return &FormatError{Format: format, Name: name, Msg: fmt.Sprintf(msg, args...)}
}

// Binding classifies a symbol contribution.
type Binding int

const (
	Undefined Binding = iota
	Strong
	Weak
)

func (b Binding) String() string {
	switch b {
	case Strong:
		return "strong"
	case Weak:
		return "weak"
	default:
		return "undefined"
	}
}

// Symbol is one external symbol an object defines or references.
type Symbol struct {
	Name    string
	Binding Binding
}

// Object is the parsed form of an object file or import member.
type Object struct {
	Machine uint16
	Symbols []Symbol
	// Directives holds the raw .drectve text; HasDirectives distinguishes
	// an empty section from none.
	Directives    string
	HasDirectives bool
	// Import is set for short import objects found in import libraries.
	Import *Import
}

// Import describes a short import object.
type Import struct {
	DLL    string
	Symbol string
	Type   ImportType
}

// ImportType is the kind of an imported symbol.
type ImportType int

const (
	ImportCode ImportType = iota
	ImportData
	ImportConst
)

// Format recognizes one input format by its leading bytes.
type Format interface {
	Name() string
	Match(data []byte) bool
}

// ObjectFormat parses objects.
type ObjectFormat interface {
	Format
	ParseObject(name string, data []byte) (*Object, error)
}

// ArchiveFormat parses archives.
type ArchiveFormat interface {
	Format
	ParseArchive(name string, data []byte) (*Archive, error)
}

// Registry holds the known formats in detection order.
type Registry struct {
	formats []Format
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry knows ar archives, short import objects and COFF objects.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Ar{})
	r.Register(ShortImport{})
	r.Register(COFF{})
	return r
}

// Register appends f. Earlier formats win when several match.
func (r *Registry) Register(f Format) {
	r.formats = append(r.formats, f)
}

// Detect returns the first registered format matching data.
func (r *Registry) Detect(name string, data []byte) (Format, error) {
	for _, f := range r.formats {
		if f.Match(data) {
			return f, nil
		}
	}
	return nil, &FormatError{Format: "unknown", Name: name,
		Msg: "unrecognized file format — supported formats: " + r.supported()}
}

func (r *Registry) supported() string {
	names := make([]string, 0, len(r.formats))
	for _, f := range r.formats {
		names = append(names, f.Name())
	}
	if len(names) == 0 {
		return "(none registered)"
	}
	return strings.Join(names, ", ")
}
