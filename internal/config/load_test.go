package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"
)

func TestLoadValidConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/proj/linkset.yaml", []byte(exampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(fs, "/proj/linkset.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("version = %d, want 1", cfg.Version)
	}
	if len(cfg.DefaultLibs) != 2 {
		t.Errorf("default_libs = %d, want 2", len(cfg.DefaultLibs))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/nonexistent/linkset.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/linkset.yaml", []byte("version: 2\nmachine: vax\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(fs, "/linkset.yaml")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(verr.Errors), verr.Errors)
	}
	if !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/linkset.yaml", []byte("version: [1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(fs, "/linkset.yaml")
	if err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestValidateVersionInvalid(t *testing.T) {
	errs := Validate(&Config{Version: 99})
	if !containsSubstring(errs, "unsupported version") {
		t.Errorf("expected version error, got: %v", errs)
	}
}

func TestValidateVersionZero(t *testing.T) {
	errs := Validate(&Config{Version: 0})
	if !containsSubstring(errs, "unsupported version") {
		t.Errorf("expected version error, got: %v", errs)
	}
}

func TestValidateMinimal(t *testing.T) {
	if errs := Validate(&Config{Version: 1}); len(errs) != 0 {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"unknown machine", Options{Machine: null.StringFrom("vax")}, "unknown machine 'vax'"},
		{"bad subsystem", Options{Subsystem: null.StringFrom("gui")}, "subsystem:"},
		{"bad flavor", Options{Flavor: null.StringFrom("gnu")}, "invalid flavor 'gnu'"},
		{"entry and noentry", Options{Entry: null.StringFrom("start"), NoEntry: null.BoolFrom(true)}, "mutually exclusive"},
		{"negative jobs", Options{Jobs: null.IntFrom(-1)}, "must not be negative"},
		{"bad alternate", Options{Alternates: []string{"nofrom"}}, "alternate_names[0]"},
		{"bad export", Options{Exports: []string{"f,@x"}}, "exports[0]"},
		{"empty include", Options{Includes: []string{""}}, "includes[0]"},
		{"blank search path", Options{SearchPaths: []string{" "}}, "search_paths[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateOptions(tt.opts)
			if !containsSubstring(errs, tt.want) {
				t.Errorf("expected %q in %v", tt.want, errs)
			}
		})
	}
}

func TestValidateOptionsAccepts(t *testing.T) {
	o := Options{
		Machine:    null.StringFrom("AMD64"),
		Subsystem:  null.StringFrom("windows,6.1"),
		Flavor:     null.StringFrom("mingw"),
		Entry:      null.StringFrom("start"),
		NoEntry:    null.BoolFrom(false),
		Jobs:       null.IntFrom(0),
		Alternates: []string{"a=b"},
		Exports:    []string{"f=g,@3,NONAME"},
	}
	if errs := ValidateOptions(o); len(errs) != 0 {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Errors: []string{"first", "second"}}
	want := "config validation failed:\n  - first\n  - second"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func containsSubstring(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
