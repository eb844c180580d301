package engine

import (
	"errors"

	"github.com/bianoble/linkset/internal/directive"
	"github.com/bianoble/linkset/internal/entry"
	"github.com/bianoble/linkset/internal/errext"
	"github.com/bianoble/linkset/internal/objfile"
	"github.com/bianoble/linkset/internal/searchpath"
	"github.com/bianoble/linkset/internal/symtab"
)

// Error kinds. errors.Is matches them through every error Run returns.
var (
	ErrNotFound           = searchpath.ErrNotFound
	ErrDuplicateSymbol    = symtab.ErrDuplicate
	ErrUnresolvedSymbol   = errors.New("undefined symbol")
	ErrMalformedDirective = directive.ErrMalformed
	ErrDirectiveMismatch  = symtab.ErrMismatch
	ErrNoEntryPoint       = entry.ErrNoEntryPoint
	ErrAmbiguousEntry     = entry.ErrAmbiguousEntry
	ErrMachineMismatch    = errors.New("machine mismatch")
	ErrCorruptInput       = objfile.ErrCorrupt
	ErrExportOrdinal      = symtab.ErrOrdinal
)

// LinkError is a resolution failure of one of the kinds above, reported
// against the input it concerns.
type LinkError struct {
	Kind error
	// File labels the input the error is reported against.
	File string
	Msg  string
	Err  error
}

func (e *LinkError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *LinkError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ExitCode maps the error kind to a process exit code.
func (e *LinkError) ExitCode() errext.ExitCode {
	switch e.Kind {
	case ErrNotFound:
		return errext.InputNotFound
	case ErrDuplicateSymbol, ErrExportOrdinal:
		return errext.DuplicateSymbol
	case ErrUnresolvedSymbol:
		return errext.UnresolvedSymbols
	case ErrDirectiveMismatch:
		return errext.DirectiveMismatch
	case ErrNoEntryPoint, ErrAmbiguousEntry:
		return errext.EntryPoint
	case ErrMachineMismatch:
		return errext.MachineMismatch
	case ErrCorruptInput, ErrMalformedDirective:
		return errext.CorruptInput
	}
	return errext.Generic
}

var _ errext.HasExitCode = (*LinkError)(nil)

func linkErr(kind error, file string, err error) *LinkError {
	return &LinkError{Kind: kind, File: file, Err: err}
}
