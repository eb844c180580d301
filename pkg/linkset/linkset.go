// Package linkset provides the public Go library API for linkset.
//
// linkset computes the set of object files a COFF link needs: it resolves
// command-line inputs and libraries against a search path, follows the
// directives embedded in objects and loads archive members only when a
// symbol they define is referenced.
//
// # Basic Usage
//
//	client, err := linkset.New(linkset.Options{Dir: "/path/to/build"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Resolve the inputs of a link
//	result, err := client.Resolve(ctx, linkset.LinkOptions{
//	    Inputs:      []string{"main.obj"},
//	    DefaultLibs: []string{"libcmt"},
//	})
//
//	// Compare a fresh resolution against a recorded manifest
//	check, err := client.Check(ctx, "linkset.manifest.yaml")
package linkset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/bianoble/linkset/internal/cache"
	"github.com/bianoble/linkset/internal/config"
	"github.com/bianoble/linkset/internal/directive"
	"github.com/bianoble/linkset/internal/engine"
	"github.com/bianoble/linkset/internal/entry"
	"github.com/bianoble/linkset/internal/errext"
	"github.com/bianoble/linkset/internal/fileid"
	"github.com/bianoble/linkset/internal/manifest"
	"github.com/bianoble/linkset/internal/objfile"
	"github.com/bianoble/linkset/internal/repro"
	"github.com/bianoble/linkset/internal/sandbox"
	"github.com/bianoble/linkset/internal/searchpath"
	"github.com/bianoble/linkset/internal/target"
)

// Options configures a linkset client.
type Options struct {
	// Dir is the working directory. Inputs and library search start here
	// and output files must stay inside it. Default: the process working
	// directory.
	Dir string

	// ConfigPath is the project config file. Default: <Dir>/linkset.yaml.
	ConfigPath string

	// SystemConfigPath and UserConfigPath override the default locations
	// of the inherited config layers.
	SystemConfigPath string
	UserConfigPath   string

	// NoInherit skips the system and user config layers.
	NoInherit bool

	// Env replaces the process environment when set.
	Env *config.Env

	// Fs is the filesystem inputs are read from. Default: the OS filesystem.
	Fs afero.Fs

	// Log receives diagnostics. Default: discarded.
	Log logrus.FieldLogger
}

// Client is the main entry point for the linkset library.
type Client struct {
	fs  afero.Fs
	dir string
	env config.Env
	log logrus.FieldLogger

	configPath string
	// defaultConfig is set when configPath follows dir.
	defaultConfig bool
	systemPath    string
	userPath      string
	noInherit     bool
}

// New creates a new linkset Client.
func New(opts Options) (*Client, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	var env config.Env
	if opts.Env != nil {
		env = *opts.Env
	} else if env, err = config.ReadEnv(); err != nil {
		return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
	}

	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	c := &Client{
		fs:         fs,
		dir:        dir,
		env:        env,
		log:        log,
		configPath: opts.ConfigPath,
		systemPath: opts.SystemConfigPath,
		userPath:   opts.UserConfigPath,
		noInherit:  opts.NoInherit || env.NoInherit,
	}
	if c.configPath == "" {
		c.configPath = filepath.Join(dir, config.FileName)
		c.defaultConfig = true
	}
	return c, nil
}

// Dir returns the working directory of the client.
func (c *Client) Dir() string { return c.dir }

// in returns a copy of c working in dir.
func (c *Client) in(dir string) *Client {
	cc := *c
	cc.dir = dir
	if c.defaultConfig {
		cc.configPath = filepath.Join(dir, config.FileName)
	}
	return &cc
}

// Settings is the effective configuration of a run.
type Settings struct {
	// Options is the merge of the config files, the environment and the
	// command line.
	Options config.Options
	Layers  []config.ConfigLayerInfo
	// Ignored lists the LINK options linkset does not know.
	Ignored []string
	// SearchDirs excludes the sysroot, which depends on the machine.
	SearchDirs []string
	Sysroot    string
	// SysrootDirs are the sysroot library directories for a configured
	// machine. Otherwise they are found during resolution, once the first
	// object fixes the machine.
	SysrootDirs []string
	Machine    target.Machine
	Flavor     searchpath.Flavor
	Subsystem  entry.Subsystem
	// CacheDir is empty when the index cache is off.
	CacheDir string
	Jobs     int
}

// Settings merges the config files, the environment and cli, in that
// order of precedence, and validates the result.
func (c *Client) Settings(cli LinkOptions) (*Settings, error) {
	res, err := config.LoadHierarchical(config.HierarchicalOptions{
		Fs:               c.fs,
		ProjectPath:      c.configPath,
		SystemConfigPath: c.systemPath,
		UserConfigPath:   c.userPath,
		NoInherit:        c.noInherit,
	})
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
	}

	envOpts, ignored, err := c.env.Options()
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
	}
	for _, opt := range ignored {
		c.log.WithField("option", opt).Warn("Ignoring unknown option in LINK")
	}

	o := res.Config.Options.Apply(envOpts).Apply(cli)
	if errs := config.ValidateOptions(o); len(errs) > 0 {
		return nil, errext.WithExitCodeIfNone(&config.ValidationError{Errors: errs}, errext.InvalidConfig)
	}

	s := &Settings{Options: o, Layers: res.Layers, Ignored: ignored}
	if o.Machine.Valid {
		if s.Machine, err = target.Lookup(o.Machine.String); err != nil {
			return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
		}
	}
	if s.Flavor, err = searchpath.ParseFlavor(o.Flavor.String); err != nil {
		return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
	}
	if o.Subsystem.Valid {
		if s.Subsystem, _, err = entry.ParseSubsystem(o.Subsystem.String); err != nil {
			return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
		}
	}

	if root := o.Sysroot.String; root != "" {
		s.Sysroot = c.abs(root)
		if s.Machine.IsUnknown() {
			if ok, _ := afero.DirExists(c.fs, s.Sysroot); !ok {
				err = fmt.Errorf("sysroot %s: not a directory", s.Sysroot)
			}
		} else {
			s.SysrootDirs, err = searchpath.DetectSysroot(c.fs, s.Sysroot, s.Machine)
		}
		if err != nil {
			return nil, errext.WithHint(errext.WithExitCodeIfNone(err, errext.InvalidConfig),
				"point --winsysroot at a directory containing 'VC/Tools/MSVC' or 'Windows Kits/10/Lib'")
		}
	}
	configured := make([]string, 0, len(o.SearchPaths))
	for _, p := range o.SearchPaths {
		configured = append(configured, c.abs(p))
	}
	s.SearchDirs = searchpath.Build(searchpath.Sources{
		Cwd:        c.dir,
		Configured: configured,
		Env:        searchpath.SplitList(c.env.LIB),
	})

	if o.IndexCache.Bool {
		s.CacheDir = o.CacheDir.String
		if s.CacheDir == "" {
			s.CacheDir = cache.DefaultDir()
		}
	}
	s.Jobs = runtime.GOMAXPROCS(0)
	if o.Jobs.Valid {
		s.Jobs = int(o.Jobs.Int64)
	}
	return s, nil
}

// abs anchors a relative path at the working directory.
func (c *Client) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// inputName anchors inputs that name a path; bare names are left for the
// search list, which starts at the working directory.
func (c *Client) inputName(name string) string {
	if searchpath.HasPathSep(name) {
		return c.abs(name)
	}
	return name
}

func (c *Client) engine(s *Settings) *engine.Engine {
	ids := fileid.ForFs(c.fs)
	if _, ok := ids.(fileid.PathProvider); ok {
		ids = fileid.PathProvider{Fs: c.fs, Dir: c.dir}
	}
	eng := &engine.Engine{
		Fs:      c.fs,
		IDs:     ids,
		Search:  searchpath.New(c.fs, s.SearchDirs, s.Flavor, c.log),
		Formats: objfile.DefaultRegistry(),
		Log:     c.log,
	}
	if s.CacheDir != "" {
		ic, err := cache.New(c.fs, s.CacheDir)
		if err != nil {
			c.log.WithError(err).Warn("Archive index cache disabled")
		} else {
			eng.Indexes = ic
		}
	}
	return eng
}

// seeds orders the inputs: files and whole-archive inputs as listed, then
// libraries.
func (c *Client) seeds(o config.Options) []engine.Input {
	whole := make(map[string]bool, len(o.WholeArchive))
	for _, n := range o.WholeArchive {
		whole[n] = true
	}
	seen := make(map[string]bool)
	var seeds []engine.Input
	for _, n := range o.Inputs {
		seeds = append(seeds, engine.Input{Name: c.inputName(n), WholeArchive: whole[n]})
		seen[n] = true
	}
	for _, n := range o.WholeArchive {
		if !seen[n] {
			seeds = append(seeds, engine.Input{Name: c.inputName(n), WholeArchive: true})
			seen[n] = true
		}
	}
	for _, n := range o.Libraries {
		seeds = append(seeds, engine.Input{Name: n, Library: true})
	}
	return seeds
}

func engineOptions(s *Settings) engine.Options {
	o := s.Options
	return engine.Options{
		Machine:         s.Machine,
		DefaultLibs:     o.DefaultLibs,
		NoDefaultLibAll: o.NoDefaultLibAll.Bool,
		NoDefaultLibs:   o.NoDefaultLibs,
		Includes:        o.Includes,
		Exports:         o.Exports,
		Alternates:      o.Alternates,
		CaseInsensitive: o.CaseInsensitive.Bool,
		Entry: entry.Policy{
			Machine:   s.Machine,
			Subsystem: s.Subsystem,
			Entry:     o.Entry.String,
			NoEntry:   o.NoEntry.Bool,
			DLL:       o.DLL.Bool,
			MinGW:     s.Flavor == searchpath.MinGW,
			Strict:    o.StrictEntry.Bool,
		},
		Jobs:    s.Jobs,
		Sysroot: s.Sysroot,
	}
}

// Resolve computes the closure of the inputs named by cli and the config
// layers beneath it. The result is returned even when err is non-nil so
// that partial closures and unresolved symbols can be reported; it is nil
// only when the configuration itself is invalid.
func (c *Client) Resolve(ctx context.Context, cli LinkOptions) (*Result, error) {
	s, err := c.Settings(cli)
	if err != nil {
		return nil, err
	}
	seeds := c.seeds(s.Options)
	if len(seeds) == 0 {
		return nil, errext.WithExitCodeIfNone(errors.New("no input files"), errext.InvalidConfig)
	}

	c.log.WithFields(logrus.Fields{
		"inputs":  len(seeds),
		"dirs":    len(s.SearchDirs),
		"machine": s.Machine.String(),
	}).Debug("Resolving link inputs")

	closure, err := c.engine(s).Run(ctx, seeds, engineOptions(s))
	return &Result{Closure: closure, Settings: s}, err
}

// Manifest records res together with the arguments that produced it.
func (c *Client) Manifest(res *Result, args []string) (*Manifest, error) {
	return manifest.FromClosure(c.fs, res.Closure, manifest.Invocation{Dir: c.dir, Args: args})
}

// WriteManifest saves m to path inside the working directory.
func (c *Client) WriteManifest(path string, m *Manifest) error {
	if err := manifest.Save(c.dir, path, m); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// Reproduce writes a gzip-compressed tarball of every file of res plus a
// response file holding args to path inside the working directory.
func (c *Client) Reproduce(path string, res *Result, args []string) error {
	a := repro.Archive{
		Root:  "repro",
		Files: repro.Files(res.Closure),
		Args:  args,
	}
	err := sandbox.SafeCreate(c.dir, path, 0o644, func(w io.Writer) error {
		return repro.Write(c.fs, w, a)
	})
	if err != nil {
		return fmt.Errorf("writing reproduce archive: %w", err)
	}
	return nil
}

// Check re-runs the invocation recorded in the manifest at path and
// compares the outcome with it. Unresolved symbols and other non-fatal
// errors are part of the comparison; a fatal error is returned as is.
func (c *Client) Check(ctx context.Context, path string) (*CheckResult, error) {
	want, err := manifest.Load(c.fs, c.abs(path))
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, errext.InvalidConfig)
	}
	cli, err := config.ParseCommandLine(want.Invocation.Args)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(fmt.Errorf("manifest invocation: %w", err), errext.InvalidConfig)
	}

	run := c
	if want.Invocation.Dir != "" {
		run = c.in(want.Invocation.Dir)
	}
	res, err := run.Resolve(ctx, cli)
	if res == nil || res.Closure == nil || res.Partial {
		return nil, err
	}
	got, err := run.Manifest(res, want.Invocation.Args)
	if err != nil {
		return nil, err
	}
	return &CheckResult{Expected: want, Actual: got, Diff: manifest.Compare(want, got)}, nil
}

// Find resolves name against the search list of cli. A name that is not
// found yields an empty Path and no error.
func (c *Client) Find(name string, kind SearchKind, cli LinkOptions) (*FindResult, error) {
	s, err := c.Settings(cli)
	if err != nil {
		return nil, err
	}
	r := searchpath.New(c.fs, s.SearchDirs, s.Flavor, c.log).With(s.SysrootDirs...)
	name = c.inputName(name)
	out := &FindResult{Name: name, Kind: kind, Candidates: r.Candidates(name, kind)}
	if p, err := r.Find(name, kind); err == nil {
		out.Path = p
	}
	return out, nil
}

// Directives parses the directive section of the object at path.
// A malformed section yields the options parsed before the bad token
// together with the error in DirectivesResult.Err.
func (c *Client) Directives(path string) (*DirectivesResult, error) {
	path = c.abs(path)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(fmt.Errorf("reading %s: %w", path, err), errext.InputNotFound)
	}
	f, err := objfile.DefaultRegistry().Detect(path, data)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, errext.CorruptInput)
	}
	of, ok := f.(objfile.ObjectFormat)
	if !ok {
		return nil, errext.WithExitCodeIfNone(
			fmt.Errorf("%s: is a %s file, not an object", path, f.Name()), errext.InvalidConfig)
	}
	obj, err := of.ParseObject(path, data)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, errext.CorruptInput)
	}

	out := &DirectivesResult{Path: path, Machine: target.FromCOFF(obj.Machine), Present: obj.HasDirectives}
	if obj.HasDirectives {
		out.Parsed, out.Err = directive.Parse(obj.Directives)
	}
	return out, nil
}

// Info describes the effective configuration and the archive index cache.
func (c *Client) Info(cli LinkOptions) (*InfoResult, error) {
	s, err := c.Settings(cli)
	if err != nil {
		return nil, err
	}
	out := &InfoResult{Settings: s, Dir: c.dir, CacheDir: s.CacheDir}
	if out.CacheDir == "" {
		out.CacheDir = cache.DefaultDir()
	}
	if ok, _ := afero.DirExists(c.fs, out.CacheDir); ok {
		ic, err := cache.New(c.fs, out.CacheDir)
		if err == nil {
			out.CacheEntries, out.CacheBytes, err = ic.Size()
		}
		if err != nil {
			c.log.WithError(err).Debug("Reading cache size")
		}
	}
	return out, nil
}

// ClearCache removes every cached archive index.
func (c *Client) ClearCache(cli LinkOptions) error {
	s, err := c.Settings(cli)
	if err != nil {
		return err
	}
	dir := s.CacheDir
	if dir == "" {
		dir = cache.DefaultDir()
	}
	ic, err := cache.New(c.fs, dir)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	return ic.Clear()
}
