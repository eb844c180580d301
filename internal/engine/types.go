package engine

import (
	"github.com/bianoble/linkset/internal/directive"
	"github.com/bianoble/linkset/internal/entry"
	"github.com/bianoble/linkset/internal/fileid"
	"github.com/bianoble/linkset/internal/objfile"
	"github.com/bianoble/linkset/internal/symtab"
	"github.com/bianoble/linkset/internal/target"
)

// InputKind tags an InputFile.
type InputKind int

const (
	KindObject InputKind = iota
	KindArchive
	KindMember
	KindImport
)

func (k InputKind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindMember:
		return "member"
	case KindImport:
		return "import"
	default:
		return "object"
	}
}

// Input is one command-line input, in command-line order.
type Input struct {
	Name         string
	Library      bool
	WholeArchive bool
}

// InputFile is one file added to the link. Archive members have the
// archive's path and no identity of their own.
type InputFile struct {
	ID      fileid.ID
	Path    string
	Kind    InputKind
	Member  string
	Offset  int64
	Machine uint16
	Import  *objfile.Import
	// Symbols counts the external symbols the file contributed.
	Symbols int
}

// Label is the display name used in diagnostics.
func (f *InputFile) Label() string {
	if f.Kind == KindMember || f.Kind == KindImport {
		return objfile.MemberLabel(f.Path, f.Member)
	}
	return f.Path
}

// Stats counts the work done by a run.
type Stats struct {
	Tasks           int `yaml:"tasks"`
	FilesAdded      int `yaml:"files_added"`
	MembersLoaded   int `yaml:"members_loaded"`
	NoOps           int `yaml:"no_ops"`
	Prefetched      int `yaml:"prefetched"`
	DirectiveTokens int `yaml:"directive_tokens"`
	CachedIndexes   int `yaml:"cached_indexes"`
}

// Closure is the outcome of a run: every input in the order it was added,
// the final symbol table and the chosen entry point.
type Closure struct {
	Inputs     []*InputFile
	Symbols    []symtab.Symbol
	Entry      string
	Subsystem  entry.Subsystem
	Machine    target.Machine
	Exports    []directive.Export
	Facts      []symtab.Fact
	Alternates []symtab.Alternate
	Unresolved []string
	// Errors holds the non-fatal errors; they are also joined into the
	// error Run returns.
	Errors []error
	// Partial is set when a fatal error stopped the run early.
	Partial bool
	Stats   Stats
}

// Objects returns the inputs that contribute code: objects, loaded
// members and imports.
func (c *Closure) Objects() []*InputFile {
	var out []*InputFile
	for _, f := range c.Inputs {
		if f.Kind != KindArchive {
			out = append(out, f)
		}
	}
	return out
}
