package config

import (
	"gopkg.in/guregu/null.v3"
)

// Config represents the linkset.yaml configuration file.
type Config struct {
	Version int `yaml:"version"`
	Options `yaml:",inline"`
}

// Options are the link settings shared by the config file, the LINK
// environment variable and the command line. Unset scalars are invalid
// nulls so that layers can be applied on top of each other.
type Options struct {
	// Inputs are objects or archives added before command-line inputs.
	Inputs []string `yaml:"inputs,omitempty"`
	// Libraries are searched for like default libraries but are never
	// suppressed by no_default_libs.
	Libraries []string `yaml:"libraries,omitempty"`
	// WholeArchive inputs have every member loaded.
	WholeArchive []string `yaml:"whole_archive,omitempty"`

	SearchPaths     []string  `yaml:"search_paths,omitempty"`
	DefaultLibs     []string  `yaml:"default_libs,omitempty"`
	NoDefaultLibs   []string  `yaml:"no_default_libs,omitempty"`
	NoDefaultLibAll null.Bool `yaml:"no_default_lib_all,omitempty"`

	Includes   []string `yaml:"includes,omitempty"`
	Exports    []string `yaml:"exports,omitempty"`
	Alternates []string `yaml:"alternate_names,omitempty"`

	Machine   null.String `yaml:"machine,omitempty"`
	Subsystem null.String `yaml:"subsystem,omitempty"`
	Entry     null.String `yaml:"entry,omitempty"`
	NoEntry   null.Bool   `yaml:"no_entry,omitempty"`
	DLL       null.Bool   `yaml:"dll,omitempty"`

	// Flavor selects library naming: "msvc" or "mingw".
	Flavor          null.String `yaml:"flavor,omitempty"`
	Sysroot         null.String `yaml:"sysroot,omitempty"`
	CaseInsensitive null.Bool   `yaml:"case_insensitive,omitempty"`
	StrictEntry     null.Bool   `yaml:"strict_entry,omitempty"`

	Jobs       null.Int    `yaml:"jobs,omitempty"`
	IndexCache null.Bool   `yaml:"index_cache,omitempty"`
	CacheDir   null.String `yaml:"cache_dir,omitempty"`
}

// Apply returns o with every list of cfg appended and every valid scalar
// of cfg taking precedence.
func (o Options) Apply(cfg Options) Options {
	o.Inputs = concat(o.Inputs, cfg.Inputs)
	o.Libraries = concat(o.Libraries, cfg.Libraries)
	o.WholeArchive = concat(o.WholeArchive, cfg.WholeArchive)
	o.SearchPaths = concat(o.SearchPaths, cfg.SearchPaths)
	o.DefaultLibs = concat(o.DefaultLibs, cfg.DefaultLibs)
	o.NoDefaultLibs = concat(o.NoDefaultLibs, cfg.NoDefaultLibs)
	o.Includes = concat(o.Includes, cfg.Includes)
	o.Exports = concat(o.Exports, cfg.Exports)
	o.Alternates = concat(o.Alternates, cfg.Alternates)

	if cfg.NoDefaultLibAll.Valid {
		o.NoDefaultLibAll = cfg.NoDefaultLibAll
	}
	if cfg.Machine.Valid {
		o.Machine = cfg.Machine
	}
	if cfg.Subsystem.Valid {
		o.Subsystem = cfg.Subsystem
	}
	if cfg.Entry.Valid {
		o.Entry = cfg.Entry
	}
	if cfg.NoEntry.Valid {
		o.NoEntry = cfg.NoEntry
	}
	if cfg.DLL.Valid {
		o.DLL = cfg.DLL
	}
	if cfg.Flavor.Valid {
		o.Flavor = cfg.Flavor
	}
	if cfg.Sysroot.Valid {
		o.Sysroot = cfg.Sysroot
	}
	if cfg.CaseInsensitive.Valid {
		o.CaseInsensitive = cfg.CaseInsensitive
	}
	if cfg.StrictEntry.Valid {
		o.StrictEntry = cfg.StrictEntry
	}
	if cfg.Jobs.Valid {
		o.Jobs = cfg.Jobs
	}
	if cfg.IndexCache.Valid {
		o.IndexCache = cfg.IndexCache
	}
	if cfg.CacheDir.Valid {
		o.CacheDir = cfg.CacheDir
	}
	return o
}

func concat(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
