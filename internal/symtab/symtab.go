// Package symtab holds the global symbol table of a link: every symbol name
// mapped to its resolution state, with first-match precedence for archive
// symbols and strong-over-weak precedence for definitions.
package symtab

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
)

// ErrDuplicate is the kind of a conflicting strong definition.
var ErrDuplicate = errors.New("duplicate symbol")

// State is the resolution state of a symbol.
type State int

const (
	Undefined State = iota
	Lazy
	Defined
)

func (s State) String() string {
	switch s {
	case Lazy:
		return "lazy"
	case Defined:
		return "defined"
	default:
		return "undefined"
	}
}

// MemberRef identifies an archive member by archive handle and the offset
// of its header.
type MemberRef struct {
	Archive int
	Offset  int64
}

// Symbol is one entry of the table.
type Symbol struct {
	Name  string
	State State

	// Member is the archive member providing a Lazy symbol.
	Member MemberRef

	// File and Weak describe a Defined symbol.
	File string
	Weak bool

	// Alias is set when the symbol was satisfied by an alternate name.
	Alias string

	// Referenced is set once any input needs a definition.
	Referenced bool
}

// DuplicateError reports two strong definitions of Name.
type DuplicateError struct {
	Name   string
	First  string
	Second string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate symbol: %s\n>>> defined at %s\n>>> defined at %s", e.Name, e.First, e.Second)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Table maps symbol names to symbols. Iteration follows insertion order.
type Table struct {
	fold  bool
	caser cases.Caser
	syms  map[string]*Symbol
	order []*Symbol

	alts    map[string]int
	altList []Alternate
}

// New creates an empty table. With caseInsensitive set, names that differ
// only in case denote the same symbol; the first spelling seen is kept.
func New(caseInsensitive bool) *Table {
	t := &Table{
		fold: caseInsensitive,
		syms: make(map[string]*Symbol),
	}
	if caseInsensitive {
		t.caser = cases.Fold()
	}
	return t
}

func (t *Table) key(name string) string {
	if t.fold {
		return t.caser.String(name)
	}
	return name
}

func (t *Table) insert(name string) (*Symbol, bool) {
	k := t.key(name)
	if s, ok := t.syms[k]; ok {
		return s, false
	}
	s := &Symbol{Name: name}
	t.syms[k] = s
	t.order = append(t.order, s)
	return s, true
}

// Lookup returns the symbol for name, or nil.
func (t *Table) Lookup(name string) *Symbol {
	return t.syms[t.key(name)]
}

// IsDefined reports whether name has a definition.
func (t *Table) IsDefined(name string) bool {
	s := t.Lookup(name)
	return s != nil && s.State == Defined
}

// Len returns the number of symbols.
func (t *Table) Len() int { return len(t.order) }

// Symbols returns the symbols in insertion order.
func (t *Table) Symbols() []*Symbol {
	return t.order
}

// AddUndefined records a reference to name. When the symbol is Lazy the
// member providing it is returned with ok set, and the caller promotes it.
func (t *Table) AddUndefined(name string) (ref MemberRef, ok bool) {
	s, _ := t.insert(name)
	s.Referenced = true
	if s.State == Lazy {
		return s.Member, true
	}
	return MemberRef{}, false
}

// AddLazy records that the member at ref provides name. An existing Lazy or
// Defined symbol is left alone. When name is already referenced and still
// undefined, promote is set and the member must be loaded now.
func (t *Table) AddLazy(name string, ref MemberRef) (promote bool) {
	s, _ := t.insert(name)
	if s.State != Undefined {
		return false
	}
	s.State = Lazy
	s.Member = ref
	return s.Referenced
}

// AddDefined records a definition of name by file. A weak definition never
// replaces an existing one; a strong definition replaces a weak one and
// conflicts with another strong one.
func (t *Table) AddDefined(name, file string, weak bool) error {
	s, _ := t.insert(name)
	if s.State == Defined {
		switch {
		case weak:
			return nil
		case s.Weak:
		default:
			return &DuplicateError{Name: s.Name, First: s.File, Second: file}
		}
	}
	s.State = Defined
	s.Member = MemberRef{}
	s.File = file
	s.Weak = weak
	return nil
}

// Unresolved returns the referenced symbols left without a definition,
// in insertion order. A referenced Lazy symbol whose member failed to
// define it counts as unresolved.
func (t *Table) Unresolved() []string {
	var out []string
	for _, s := range t.order {
		if s.Referenced && s.State != Defined {
			out = append(out, s.Name)
		}
	}
	return out
}

// Snapshot copies the current symbols in insertion order.
func (t *Table) Snapshot() []Symbol {
	out := make([]Symbol, len(t.order))
	for i, s := range t.order {
		out[i] = *s
	}
	return out
}
