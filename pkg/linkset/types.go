package linkset

import (
	"github.com/bianoble/linkset/internal/config"
	"github.com/bianoble/linkset/internal/directive"
	"github.com/bianoble/linkset/internal/engine"
	"github.com/bianoble/linkset/internal/manifest"
	"github.com/bianoble/linkset/internal/searchpath"
	"github.com/bianoble/linkset/internal/target"
)

// Type aliases re-export internal types as the public API.

type LinkOptions = config.Options
type Closure = engine.Closure
type InputFile = engine.InputFile
type Stats = engine.Stats
type LinkError = engine.LinkError
type Manifest = manifest.Manifest
type Diff = manifest.Diff
type SearchKind = searchpath.Kind

// Search kinds for Find.
const (
	SearchFile    = searchpath.File
	SearchLibrary = searchpath.Library
)

// Error kinds, matched with errors.Is.
var (
	ErrNotFound           = engine.ErrNotFound
	ErrDuplicateSymbol    = engine.ErrDuplicateSymbol
	ErrUnresolvedSymbol   = engine.ErrUnresolvedSymbol
	ErrMalformedDirective = engine.ErrMalformedDirective
	ErrDirectiveMismatch  = engine.ErrDirectiveMismatch
	ErrNoEntryPoint       = engine.ErrNoEntryPoint
	ErrAmbiguousEntry     = engine.ErrAmbiguousEntry
	ErrMachineMismatch    = engine.ErrMachineMismatch
	ErrCorruptInput       = engine.ErrCorruptInput
	ErrExportOrdinal      = engine.ErrExportOrdinal
)

// Result is the outcome of Resolve.
type Result struct {
	*Closure
	Settings *Settings
}

// CheckResult compares a recorded manifest with a fresh resolution.
type CheckResult struct {
	Expected *Manifest
	Actual   *Manifest
	Diff     *Diff
}

// FindResult shows how a name resolves against the search list.
type FindResult struct {
	Name string
	Kind SearchKind
	// Candidates are the paths tried, in order.
	Candidates []string
	// Path is empty when no candidate exists.
	Path string
}

// DirectivesResult is the parsed directive section of one object.
type DirectivesResult struct {
	Path    string
	Machine target.Machine
	// Present is false for objects without a directive section.
	Present bool
	Parsed  *directive.Parsed
	// Err is the malformed-directive error, if any.
	Err error
}

// InfoResult describes the effective configuration of a client.
type InfoResult struct {
	Settings     *Settings
	Dir          string
	CacheDir     string
	CacheEntries int
	CacheBytes   int64
}
