// Package engine turns command-line inputs into the minimal closure of
// object files a link needs. A single drain loop executes queued tasks in
// order; archive members are loaded only when a symbol they index is
// needed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/bianoble/linkset/internal/directive"
	"github.com/bianoble/linkset/internal/entry"
	"github.com/bianoble/linkset/internal/errext"
	"github.com/bianoble/linkset/internal/fileid"
	"github.com/bianoble/linkset/internal/objfile"
	"github.com/bianoble/linkset/internal/searchpath"
	"github.com/bianoble/linkset/internal/symtab"
	"github.com/bianoble/linkset/internal/target"
)

// IndexCache stores archive indices keyed by archive content.
type IndexCache interface {
	GetIndex(data []byte) (*objfile.Index, bool, error)
	PutIndex(data []byte, idx *objfile.Index) error
}

// Engine holds the collaborators of a run. An Engine may run many times;
// each run starts from an empty symbol table.
type Engine struct {
	Fs      afero.Fs
	IDs     fileid.Provider
	Search  *searchpath.Resolver
	Formats *objfile.Registry
	// Indexes is optional.
	Indexes IndexCache
	Log     logrus.FieldLogger
}

// Options configures one run.
type Options struct {
	// Machine fixes the target; unknown means the first object decides.
	Machine         target.Machine
	DefaultLibs     []string
	NoDefaultLibAll bool
	NoDefaultLibs   []string
	// Includes are force-included symbols, decorated for the machine
	// once the seed inputs have fixed it.
	Includes []string
	// Exports are /export specifications.
	Exports []string
	// Alternates are from=to pairs.
	Alternates      []string
	CaseInsensitive bool
	Entry           entry.Policy
	// Jobs bounds the prefetch workers; below 2 disables prefetch.
	Jobs int
	// Sysroot is an MSVC-style sysroot. Its library directories for the
	// link machine are appended to the search list as soon as the machine
	// is known.
	Sysroot string
}

type archiveInput struct {
	file *InputFile
	ar   *objfile.Archive
}

type run struct {
	e    *Engine
	opts Options
	log  logrus.FieldLogger

	queue    Queue
	search   *searchpath.Resolver
	syms     *symtab.Table
	facts    symtab.Facts
	exports  symtab.Exports
	files    []*InputFile
	archives []archiveInput

	visitedIDs     map[fileid.ID]struct{}
	visitedLibs    map[string]struct{}
	visitedMembers map[symtab.MemberRef]struct{}
	noDefault      map[string]struct{}
	noDefaultAll   bool

	machine        target.Machine
	machineFrom    string
	sysrootDone    bool
	subsystem      entry.Subsystem
	entryName      string
	directiveEntry string

	refs     map[string]string
	deferred []error
	stats    Stats

	prefetched []*prefetched
}

// Run resolves seeds to a closure. Fatal errors stop the drain loop and are
// returned with the partial closure. Otherwise unresolved symbols, entry
// point failures and malformed directives are collected and returned
// joined, next to the complete closure.
func (e *Engine) Run(ctx context.Context, seeds []Input, opts Options) (*Closure, error) {
	r := e.newRun(opts)

	for _, a := range opts.Alternates {
		from, to, err := directive.KeyValue("alternatename", a)
		if err != nil {
			return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
		}
		if err := r.syms.AddAlternate(from, to, "command line"); err != nil {
			return nil, linkErr(ErrDirectiveMismatch, "", err)
		}
	}
	exports := make([]directive.Export, 0, len(opts.Exports))
	for _, x := range opts.Exports {
		ex, err := directive.ParseExport(x)
		if err != nil {
			return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
		}
		exports = append(exports, ex)
	}

	for i, s := range seeds {
		t := Task{Kind: TaskAddFile, Name: s.Name, WholeArchive: s.WholeArchive, Seed: i + 1}
		if s.Library {
			t.Kind = TaskAddLibrary
		}
		r.queue.Push(t)
	}
	for _, lib := range opts.DefaultLibs {
		r.queue.Push(Task{Kind: TaskAddLibrary, Name: lib, Default: true})
	}

	stop := r.startPrefetch(ctx, seeds)
	err := r.resolve(exports)
	stop()
	if err != nil {
		c := r.closure()
		c.Partial = true
		return c, err
	}
	return r.finish()
}

func (e *Engine) newRun(opts Options) *run {
	log := e.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	r := &run{
		e:              e,
		opts:           opts,
		log:            log.WithField("component", "engine"),
		search:         e.Search,
		syms:           symtab.New(opts.CaseInsensitive),
		visitedIDs:     make(map[fileid.ID]struct{}),
		visitedLibs:    make(map[string]struct{}),
		visitedMembers: make(map[symtab.MemberRef]struct{}),
		noDefault:      make(map[string]struct{}),
		noDefaultAll:   opts.NoDefaultLibAll,
		machine:        opts.Machine,
		subsystem:      opts.Entry.Subsystem,
		refs:           make(map[string]string),
	}
	if !opts.Machine.IsUnknown() {
		r.machineFrom = "configuration"
	}
	for _, n := range opts.NoDefaultLibs {
		r.noDefault[libKey(n)] = struct{}{}
	}
	return r
}

// resolve drains the queue to a fixed point, then feeds alternate name
// targets and the entry point back in and drains again until nothing new
// is required.
func (r *run) resolve(exports []directive.Export) error {
	if err := r.useSysroot(); err != nil {
		return err
	}
	if err := r.drain(); err != nil {
		return err
	}
	// The seeds have fixed the machine, so command-line symbol requests
	// can be decorated now.
	for _, inc := range r.opts.Includes {
		r.include(r.machine.Mangle(inc), "/include")
	}
	for _, ex := range exports {
		r.addExport(r.decorate(ex), "/export")
	}

	entryDone := false
	for {
		if err := r.drain(); err != nil {
			return err
		}
		if pending := r.syms.PendingAlternates(); len(pending) > 0 {
			for _, name := range pending {
				r.include(name, "/alternatename")
			}
			continue
		}
		if entryDone {
			return nil
		}
		entryDone = true
		if err := r.inferEntry(); err != nil {
			r.deferred = append(r.deferred, err)
			return nil
		}
		if r.entryName != "" {
			r.include(r.entryName, "entry point")
		}
	}
}

func (r *run) drain() error {
	for r.queue.Len() > 0 {
		t := r.queue.Pop()
		r.stats.Tasks++
		if err := r.exec(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) exec(t Task) error {
	log := r.log.WithField("task", t.Kind.String())
	switch t.Kind {
	case TaskAddFile, TaskAddLibrary:
		log.WithField("path", t.Name).Debug("Adding input")
		return r.addInput(t)
	case TaskPromote:
		return r.promote(t)
	case TaskInclude:
		log.WithField("symbol", t.Name).Debug("Requiring symbol")
		r.include(t.Name, t.Origin)
		return nil
	}
	return fmt.Errorf("unknown task kind %d", int(t.Kind))
}

func (r *run) noop(reason string, t Task) error {
	r.stats.NoOps++
	r.log.WithFields(logrus.Fields{"task": t.Kind.String(), "path": t.Name}).Debug(reason)
	return nil
}

// libKey normalizes a library name for the visited and /nodefaultlib sets.
func libKey(name string) string {
	base := strings.ToLower(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	return strings.TrimSuffix(base, ".lib")
}

func (r *run) addInput(t Task) error {
	kind := searchpath.File
	if t.Kind == TaskAddLibrary {
		kind = searchpath.Library
		key := strings.ToLower(t.Name)
		if t.Default {
			if r.noDefaultAll {
				return r.noop("Default library suppressed by /nodefaultlib", t)
			}
			if _, ok := r.noDefault[libKey(t.Name)]; ok {
				return r.noop("Default library suppressed by /nodefaultlib", t)
			}
		}
		if _, ok := r.visitedLibs[key]; ok {
			return r.noop("Library already added", t)
		}
		r.visitedLibs[key] = struct{}{}
	}

	var (
		path    string
		id      fileid.ID
		data    []byte
		obj     *objfile.Object
		f       objfile.Format
		err     error
		loadErr error
	)
	if p := r.prefetchedFor(t); p != nil && !(errors.Is(p.locateErr, ErrNotFound) && r.sysrootDone) {
		path, id, err = p.path, p.id, p.locateErr
		data, f, obj, loadErr = p.data, p.format, p.obj, p.loadErr
		r.stats.Prefetched++
	} else {
		path, id, err = r.locate(t.Name, kind)
	}
	if err != nil {
		return r.inputError(t, err)
	}

	if t.Default {
		if _, ok := r.noDefault[libKey(path)]; ok {
			return r.noop("Default library suppressed by /nodefaultlib", t)
		}
	}
	if _, ok := r.visitedIDs[id]; ok {
		return r.noop("File already added", t)
	}
	r.visitedIDs[id] = struct{}{}

	if loadErr != nil {
		return linkErr(ErrCorruptInput, t.Origin, loadErr)
	}
	if data == nil {
		if data, err = afero.ReadFile(r.e.Fs, path); err != nil {
			return linkErr(ErrNotFound, t.Origin, fmt.Errorf("could not open '%s': %w", path, err))
		}
	}
	if f == nil {
		if f, err = r.e.Formats.Detect(path, data); err != nil {
			return linkErr(ErrCorruptInput, t.Origin, err)
		}
	}

	file := &InputFile{ID: id, Path: path}
	switch ff := f.(type) {
	case objfile.ArchiveFormat:
		file.Kind = KindArchive
		r.addFile(file)
		return r.addArchive(file, ff, data, t.WholeArchive)
	case objfile.ObjectFormat:
		if obj == nil {
			if obj, err = ff.ParseObject(path, data); err != nil {
				return linkErr(ErrCorruptInput, "", err)
			}
		}
		file.Kind = KindObject
		if obj.Import != nil {
			file.Kind = KindImport
		}
		r.addFile(file)
		return r.addObject(file, obj)
	}
	return linkErr(ErrCorruptInput, path, fmt.Errorf("format %s carries no symbols", f.Name()))
}

func (r *run) inputError(t Task, err error) error {
	if errors.Is(err, ErrNotFound) {
		le := linkErr(ErrNotFound, t.Origin, err)
		hint := fmt.Sprintf("run 'linkset find %s' to see the paths searched", t.Name)
		if r.opts.Sysroot != "" && !r.sysrootDone {
			hint = "the sysroot is searched once the machine is known; set --machine or list an object file first"
		}
		return errext.WithHint(le, hint)
	}
	return linkErr(ErrCorruptInput, t.Origin, err)
}

// useSysroot appends the sysroot library directories for the link machine
// to the search list. It waits for the machine and runs at most once.
func (r *run) useSysroot() error {
	if r.opts.Sysroot == "" || r.sysrootDone || r.machine.IsUnknown() {
		return nil
	}
	r.sysrootDone = true
	dirs, err := searchpath.DetectSysroot(r.e.Fs, r.opts.Sysroot, r.machine)
	if err != nil {
		return errext.WithHint(errext.WithExitCodeIfNone(err, errext.InvalidConfig),
			"point --winsysroot at a directory containing 'VC/Tools/MSVC' or 'Windows Kits/10/Lib'")
	}
	r.search = r.search.With(dirs...)
	r.log.WithFields(logrus.Fields{"path": r.opts.Sysroot, "machine": r.machine.Name}).
		Debugf("Searching %d sysroot directories", len(dirs))
	return nil
}

// locate resolves name against the run's search list and computes its
// identity.
func (r *run) locate(name string, kind searchpath.Kind) (string, fileid.ID, error) {
	return r.locateIn(r.search, name, kind)
}

func (r *run) locateIn(search *searchpath.Resolver, name string, kind searchpath.Kind) (string, fileid.ID, error) {
	path, err := search.Find(name, kind)
	if err != nil {
		return "", fileid.ID{}, err
	}
	id, err := r.e.IDs.ID(path)
	if err != nil {
		return "", fileid.ID{}, &searchpath.NotFoundError{Name: path, Kind: kind, Tried: []string{path}}
	}
	return path, id, nil
}

func (r *run) addFile(f *InputFile) {
	r.files = append(r.files, f)
	if f.Kind == KindMember || (f.Kind == KindImport && f.Member != "") {
		r.stats.MembersLoaded++
	} else {
		r.stats.FilesAdded++
	}
}

func (r *run) addArchive(file *InputFile, ff objfile.ArchiveFormat, data []byte, whole bool) error {
	ar, err := r.openArchive(file.Path, ff, data)
	if err != nil {
		return linkErr(ErrCorruptInput, "", errext.WithHint(err,
			"add a symbol index with 'llvm-ranlib' or rebuild the archive with 'lib'"))
	}
	handle := len(r.archives)
	r.archives = append(r.archives, archiveInput{file: file, ar: ar})
	file.Symbols = len(ar.Index.Entries)

	if whole {
		for _, off := range ar.Index.Members {
			r.queue.Push(Task{Kind: TaskPromote, Archive: handle, Offset: off, Origin: file.Path})
		}
		return nil
	}
	for _, ent := range ar.Index.Entries {
		ref := symtab.MemberRef{Archive: handle, Offset: ent.Offset}
		if r.syms.AddLazy(ent.Name, ref) {
			r.queue.Push(Task{Kind: TaskPromote, Name: ent.Name, Archive: handle, Offset: ent.Offset, Origin: file.Path})
		}
	}
	return nil
}

func (r *run) openArchive(path string, ff objfile.ArchiveFormat, data []byte) (*objfile.Archive, error) {
	if r.e.Indexes == nil {
		return ff.ParseArchive(path, data)
	}
	idx, ok, err := r.e.Indexes.GetIndex(data)
	if err != nil {
		r.log.WithError(err).WithField("path", path).Warn("Reading cached archive index")
	}
	if ok {
		r.stats.CachedIndexes++
		return objfile.NewArchive(path, data, idx)
	}
	ar, err := ff.ParseArchive(path, data)
	if err != nil {
		return nil, err
	}
	if err := r.e.Indexes.PutIndex(data, ar.Index); err != nil {
		r.log.WithError(err).WithField("path", path).Warn("Caching archive index")
	}
	return ar, nil
}

func (r *run) promote(t Task) error {
	ref := symtab.MemberRef{Archive: t.Archive, Offset: t.Offset}
	if _, ok := r.visitedMembers[ref]; ok {
		r.stats.NoOps++
		return nil
	}
	r.visitedMembers[ref] = struct{}{}
	if ref.Archive < 0 || ref.Archive >= len(r.archives) {
		return fmt.Errorf("promote: no archive with handle %d", ref.Archive)
	}
	a := r.archives[ref.Archive]

	name, data, err := a.ar.Member(ref.Offset)
	if err != nil {
		return linkErr(ErrCorruptInput, "", err)
	}
	file := &InputFile{Path: a.file.Path, Member: name, Offset: ref.Offset, Kind: KindMember}
	r.log.WithFields(logrus.Fields{
		"task":   t.Kind.String(),
		"path":   a.file.Path,
		"member": name,
		"symbol": t.Name,
	}).Debug("Loading archive member")

	f, err := r.e.Formats.Detect(file.Label(), data)
	if err != nil {
		return linkErr(ErrCorruptInput, "", err)
	}
	of, ok := f.(objfile.ObjectFormat)
	if !ok {
		return linkErr(ErrCorruptInput, file.Label(), fmt.Errorf("nested %s member is not supported", f.Name()))
	}
	obj, err := of.ParseObject(file.Label(), data)
	if err != nil {
		return linkErr(ErrCorruptInput, "", err)
	}
	if obj.Import != nil {
		file.Kind = KindImport
	}
	r.addFile(file)
	return r.addObject(file, obj)
}

// include requires a definition of name on behalf of origin.
func (r *run) include(name, origin string) {
	if name == "" {
		return
	}
	ref, lazy := r.syms.AddUndefined(name)
	if s := r.syms.Lookup(name); s != nil {
		if _, ok := r.refs[s.Name]; !ok {
			r.refs[s.Name] = origin
		}
	}
	if lazy {
		r.queue.Push(Task{Kind: TaskPromote, Name: name, Archive: ref.Archive, Offset: ref.Offset, Origin: origin})
	}
}

func (r *run) addObject(file *InputFile, obj *objfile.Object) error {
	label := file.Label()
	file.Machine = obj.Machine
	file.Import = obj.Import
	file.Symbols = len(obj.Symbols)
	if err := r.checkMachine(label, obj.Machine); err != nil {
		return err
	}

	for _, s := range obj.Symbols {
		if s.Binding == objfile.Undefined {
			r.include(s.Name, label)
			continue
		}
		if err := r.syms.AddDefined(s.Name, label, s.Binding == objfile.Weak); err != nil {
			return linkErr(ErrDuplicateSymbol, "", err)
		}
	}

	if obj.HasDirectives {
		return r.applyDirectives(label, obj.Directives)
	}
	return nil
}

func (r *run) checkMachine(label string, id uint16) error {
	if id == target.MachineUnknown {
		return nil
	}
	m := target.FromCOFF(id)
	if m.IsUnknown() {
		return linkErr(ErrMachineMismatch, label, fmt.Errorf("unsupported machine type 0x%x", id))
	}
	if r.machine.IsUnknown() {
		r.machine = m
		r.machineFrom = label
		r.log.WithFields(logrus.Fields{"path": label, "machine": m.Name}).Debug("Machine fixed")
		return r.useSysroot()
	}
	if m.COFF != r.machine.COFF {
		return linkErr(ErrMachineMismatch, label,
			fmt.Errorf("machine type %s conflicts with %s (from %s)", m, r.machine, r.machineFrom))
	}
	return nil
}

func (r *run) addExport(ex directive.Export, origin string) {
	if dup, warn := r.exports.Add(ex); dup {
		if warn {
			r.log.WithField("symbol", ex.Name).Warnf("duplicate /export option: %s", ex.Name)
		}
		return
	}
	if sym := ex.Symbol(); sym != "" {
		r.include(sym, origin)
	}
}

// decorate applies the machine's decoration to the symbol a command-line
// export requires. The exported name is kept as given.
func (r *run) decorate(ex directive.Export) directive.Export {
	if sym := ex.Symbol(); sym != "" {
		if m := r.machine.Mangle(sym); m != sym {
			ex.Internal = m
		}
	}
	return ex
}

func (r *run) inferEntry() error {
	p := r.opts.Entry
	p.Machine = r.machine
	p.Subsystem = r.subsystem
	if p.Entry == "" {
		p.Entry = r.directiveEntry
	}
	res, err := entry.Infer(r.syms, p, r.log)
	r.subsystem = res.Subsystem
	if err != nil {
		kind := ErrNoEntryPoint
		if errors.Is(err, ErrAmbiguousEntry) {
			kind = ErrAmbiguousEntry
		}
		return linkErr(kind, "", err)
	}
	r.entryName = res.Entry
	if res.Inferred {
		r.log.WithFields(logrus.Fields{"symbol": res.Entry, "subsystem": res.Subsystem.String()}).Debug("Entry point inferred")
	}
	return nil
}

func (r *run) finish() (*Closure, error) {
	if n := r.syms.ResolveAlternates(); n > 0 {
		r.log.Debugf("%d symbols satisfied by alternate names", n)
	}
	c := r.closure()

	var errs []error
	if _, err := r.exports.AssignOrdinals(); err != nil {
		errs = append(errs, linkErr(ErrExportOrdinal, "", err))
	}
	for _, name := range c.Unresolved {
		msg := "undefined symbol: " + name
		if by := r.refs[name]; by != "" {
			msg += "\n>>> referenced by " + by
		}
		errs = append(errs, &LinkError{Kind: ErrUnresolvedSymbol, Msg: msg})
	}
	errs = append(errs, r.deferred...)
	c.Errors = errs
	if len(errs) == 0 {
		return c, nil
	}
	return c, errors.Join(errs...)
}

func (r *run) closure() *Closure {
	exports, _ := r.exports.AssignOrdinals()
	return &Closure{
		Inputs:     r.files,
		Symbols:    r.syms.Snapshot(),
		Entry:      r.entryName,
		Subsystem:  r.subsystem,
		Machine:    r.machine,
		Exports:    exports,
		Facts:      r.facts.List(),
		Alternates: r.syms.Alternates(),
		Unresolved: r.syms.Unresolved(),
		Errors:     r.deferred,
		Stats:      r.stats,
	}
}
