package config

import (
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/bianoble/linkset/internal/target"
)

// nodefaultlibAll is the value of a bare --nodefaultlib.
const nodefaultlibAll = "*"

// FlagSet returns the link flags. The names double as the linker-style
// options accepted in the LINK environment variable.
func FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("link", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.StringArray("libpath", nil, "add a library search directory")
	fs.StringArrayP("library", "l", nil, "add a library input, searched like a default library")
	fs.StringArray("defaultlib", nil, "add a default library")
	fs.StringArray("nodefaultlib", nil, "ignore a default library, or all of them when no name is given")
	fs.Lookup("nodefaultlib").NoOptDefVal = nodefaultlibAll
	fs.StringArray("include", nil, "force a symbol reference")
	fs.StringArray("export", nil, "export a symbol: name[=internal][,@ordinal[,NONAME]][,DATA][,PRIVATE]")
	fs.StringArray("alternatename", nil, "resolve an undefined symbol to another: from=to")
	fs.StringArray("wholearchive", nil, "load every member of an archive")
	fs.String("machine", "", "target machine: "+strings.Join(target.Names(), ", "))
	fs.String("subsystem", "", "subsystem[,major[.minor]]")
	fs.String("entry", "", "entry point symbol")
	fs.Bool("noentry", false, "link without an entry point")
	fs.Bool("dll", false, "link a shared library")
	fs.String("flavor", "", "library naming convention: msvc or mingw")
	fs.String("winsysroot", "", "Visual Studio and Windows SDK root for library detection")
	fs.Bool("case-insensitive", false, "compare symbol names case-insensitively")
	fs.Bool("strict-entry", false, "fail when both narrow and wide entry points are defined")
	fs.Int("jobs", 0, "number of objects parsed ahead of resolution")
	fs.Bool("index-cache", false, "cache archive symbol indices")
	fs.String("cache-dir", "", "archive index cache directory")
	return fs
}

// FromFlags returns the options set on fs. Flags that were not changed
// stay null so that lower layers show through.
func FromFlags(fs *pflag.FlagSet) (Options, error) {
	var o Options
	var err error
	arr := func(name string) []string {
		if err != nil || !fs.Changed(name) {
			return nil
		}
		var v []string
		v, err = fs.GetStringArray(name)
		return v
	}
	str := func(name string) null.String {
		if err != nil || !fs.Changed(name) {
			return null.String{}
		}
		var v string
		v, err = fs.GetString(name)
		return null.StringFrom(v)
	}
	boolean := func(name string) null.Bool {
		if err != nil || !fs.Changed(name) {
			return null.Bool{}
		}
		var v bool
		v, err = fs.GetBool(name)
		return null.BoolFrom(v)
	}

	o.SearchPaths = arr("libpath")
	o.Libraries = arr("library")
	o.DefaultLibs = arr("defaultlib")
	for _, name := range arr("nodefaultlib") {
		if name == nodefaultlibAll {
			o.NoDefaultLibAll = null.BoolFrom(true)
			continue
		}
		o.NoDefaultLibs = append(o.NoDefaultLibs, name)
	}
	o.Includes = arr("include")
	o.Exports = arr("export")
	o.Alternates = arr("alternatename")
	o.WholeArchive = arr("wholearchive")
	o.Machine = str("machine")
	o.Subsystem = str("subsystem")
	o.Entry = str("entry")
	o.NoEntry = boolean("noentry")
	o.DLL = boolean("dll")
	o.Flavor = str("flavor")
	o.Sysroot = str("winsysroot")
	o.CaseInsensitive = boolean("case-insensitive")
	o.StrictEntry = boolean("strict-entry")
	o.IndexCache = boolean("index-cache")
	o.CacheDir = str("cache-dir")
	if err == nil && fs.Changed("jobs") {
		var n int
		n, err = fs.GetInt("jobs")
		o.Jobs = null.IntFrom(int64(n))
	}
	return o, err
}

// ParseArgs parses linker-style arguments such as "/defaultlib:kernel32"
// or "-DLL". Option names are case-insensitive and take their value after
// a colon. Tokens that are not options become inputs. Options linkset does
// not know are returned as ignored.
func ParseArgs(tokens []string) (Options, []string, error) {
	fs := FlagSet()
	var args, ignored []string
	for _, tok := range tokens {
		a, ok := linkerFlag(fs, tok)
		switch {
		case ok:
			args = append(args, a)
		case isOption(tok):
			ignored = append(ignored, tok)
		default:
			args = append(args, "--", tok)
		}
	}

	// Inputs are collected one at a time so that options after them still
	// parse.
	var o Options
	rest := args
	for len(rest) > 0 {
		if rest[0] == "--" {
			o.Inputs = append(o.Inputs, rest[1])
			rest = rest[2:]
			continue
		}
		if err := fs.Parse([]string{rest[0]}); err != nil {
			return o, ignored, err
		}
		rest = rest[1:]
	}

	flags, err := FromFlags(fs)
	if err != nil {
		return o, ignored, err
	}
	inputs := o.Inputs
	o = flags
	o.Inputs = inputs
	return o, ignored, nil
}

func isOption(tok string) bool {
	if len(tok) < 2 || (tok[0] != '/' && tok[0] != '-') {
		return false
	}
	// Absolute paths and relative paths with a leading dash are inputs.
	name := tok[1:]
	if i := strings.IndexAny(name, ":="); i >= 0 {
		name = name[:i]
	}
	return !strings.ContainsAny(name, `/\.`)
}

// linkerFlag rewrites a linker-style option into pflag syntax.
func linkerFlag(fs *pflag.FlagSet, tok string) (string, bool) {
	if !isOption(tok) {
		return "", false
	}
	body := strings.TrimPrefix(tok[1:], "-")
	name, value, hasValue := body, "", false
	if i := strings.IndexAny(body, ":="); i >= 0 {
		name, value, hasValue = body[:i], body[i+1:], true
	}
	name = strings.ToLower(name)
	if fs.Lookup(name) == nil {
		return "", false
	}
	if !hasValue {
		return "--" + name, true
	}
	return "--" + name + "=" + value, true
}

// ParseCommandLine parses args in the syntax Args produces: link flags
// followed by inputs.
func ParseCommandLine(args []string) (Options, error) {
	fs := FlagSet()
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	o, err := FromFlags(fs)
	if err != nil {
		return o, err
	}
	o.Inputs = append(o.Inputs, fs.Args()...)
	return o, nil
}

// Args renders the link flags changed on fs in FlagSet order, followed by
// inputs. fs may define flags of its own; only link flags are rendered.
func Args(fs *pflag.FlagSet, inputs []string) []string {
	var out []string
	FlagSet().VisitAll(func(def *pflag.Flag) {
		f := fs.Lookup(def.Name)
		if f == nil || !f.Changed {
			return
		}
		if def.Value.Type() == "stringArray" {
			vals, err := fs.GetStringArray(def.Name)
			if err != nil {
				return
			}
			for _, v := range vals {
				out = append(out, "--"+def.Name+"="+v)
			}
			return
		}
		out = append(out, "--"+def.Name+"="+f.Value.String())
	})
	if len(inputs) > 0 {
		out = append(out, "--")
		out = append(out, inputs...)
	}
	return out
}
