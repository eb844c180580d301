package config

import (
	"testing"

	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"
)

const exampleConfig = `
version: 1

search_paths:
  - C:/sdk/lib
  - ./third_party/lib

default_libs: [libcmt, kernel32]
no_default_libs: [oldnames]

includes: [__security_init_cookie]
exports:
  - DllGetClassObject,PRIVATE
  - helper=impl_helper,@7
alternate_names:
  - __imp_foo=__imp_bar

machine: x64
subsystem: console,6.0
flavor: msvc
case_insensitive: false
jobs: 4
index_cache: true
`

func TestParseExampleConfig(t *testing.T) {
	cfg, err := Parse([]byte(exampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("version = %d, want 1", cfg.Version)
	}
	if len(cfg.SearchPaths) != 2 || cfg.SearchPaths[1] != "./third_party/lib" {
		t.Errorf("search_paths = %v", cfg.SearchPaths)
	}
	if len(cfg.DefaultLibs) != 2 || cfg.DefaultLibs[0] != "libcmt" {
		t.Errorf("default_libs = %v", cfg.DefaultLibs)
	}
	if len(cfg.Exports) != 2 {
		t.Errorf("exports = %v", cfg.Exports)
	}
	if cfg.Machine != null.StringFrom("x64") {
		t.Errorf("machine = %+v", cfg.Machine)
	}
	if cfg.Subsystem.String != "console,6.0" {
		t.Errorf("subsystem = %q", cfg.Subsystem.String)
	}
	if cfg.Jobs != null.IntFrom(4) {
		t.Errorf("jobs = %+v", cfg.Jobs)
	}
	if cfg.IndexCache != null.BoolFrom(true) {
		t.Errorf("index_cache = %+v", cfg.IndexCache)
	}
	// Explicit false is set, not null.
	if cfg.CaseInsensitive != null.BoolFrom(false) {
		t.Errorf("case_insensitive = %+v", cfg.CaseInsensitive)
	}
	if cfg.Entry.Valid || cfg.DLL.Valid {
		t.Errorf("unset scalars should be null: entry=%+v dll=%+v", cfg.Entry, cfg.DLL)
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte("version: 1\nsearch_path: [a]\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Version != 0 {
		t.Errorf("version = %d, want 0", cfg.Version)
	}
}

func TestOptionsApply(t *testing.T) {
	base := Options{
		SearchPaths: []string{"a"},
		DefaultLibs: []string{"libcmt"},
		Machine:     null.StringFrom("x86"),
		Entry:       null.StringFrom("start"),
		DLL:         null.BoolFrom(true),
	}
	overlay := Options{
		SearchPaths: []string{"b"},
		Machine:     null.StringFrom("x64"),
		DLL:         null.BoolFrom(false),
		Jobs:        null.IntFrom(2),
	}

	got := base.Apply(overlay)

	if len(got.SearchPaths) != 2 || got.SearchPaths[0] != "a" || got.SearchPaths[1] != "b" {
		t.Errorf("search paths = %v, want [a b]", got.SearchPaths)
	}
	if len(got.DefaultLibs) != 1 {
		t.Errorf("default libs = %v", got.DefaultLibs)
	}
	if got.Machine.String != "x64" {
		t.Errorf("machine = %q, want x64", got.Machine.String)
	}
	if got.Entry.String != "start" {
		t.Errorf("entry = %q, want start (unset overlay keeps base)", got.Entry.String)
	}
	if !got.DLL.Valid || got.DLL.Bool {
		t.Errorf("dll = %+v, want explicit false", got.DLL)
	}
	if got.Jobs.Int64 != 2 {
		t.Errorf("jobs = %d, want 2", got.Jobs.Int64)
	}
}

func TestOptionsApplyDoesNotAlias(t *testing.T) {
	base := Options{Includes: make([]string, 1, 8)}
	base.Includes[0] = "x"

	a := base.Apply(Options{Includes: []string{"a"}})
	b := base.Apply(Options{Includes: []string{"b"}})

	if a.Includes[1] != "a" || b.Includes[1] != "b" {
		t.Errorf("applied lists share storage: %v %v", a.Includes, b.Includes)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(exampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v\n%s", err, data)
	}
	if again.Machine != cfg.Machine || again.Jobs != cfg.Jobs || again.IndexCache != cfg.IndexCache {
		t.Errorf("scalars changed across round trip:\n%s", data)
	}
	if again.Entry.Valid {
		t.Errorf("null entry became set:\n%s", data)
	}
}
