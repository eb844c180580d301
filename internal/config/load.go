package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/linkset/internal/directive"
	"github.com/bianoble/linkset/internal/entry"
	"github.com/bianoble/linkset/internal/searchpath"
	"github.com/bianoble/linkset/internal/target"
)

// Load reads and validates a linkset.yaml configuration file.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// Parse decodes configuration YAML without validating it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}

	return append(errs, ValidateOptions(cfg.Options)...)
}

// ValidateOptions checks the settings shared by every configuration layer.
func ValidateOptions(o Options) []string {
	var errs []string

	if o.Machine.Valid {
		if _, err := target.Lookup(o.Machine.String); err != nil {
			errs = append(errs, fmt.Sprintf("machine: unknown machine '%s' — must be one of: %s",
				o.Machine.String, strings.Join(target.Names(), ", ")))
		}
	}
	if o.Subsystem.Valid {
		if _, _, err := entry.ParseSubsystem(o.Subsystem.String); err != nil {
			errs = append(errs, fmt.Sprintf("subsystem: %v", err))
		}
	}
	if o.Flavor.Valid {
		if _, err := searchpath.ParseFlavor(o.Flavor.String); err != nil {
			errs = append(errs, fmt.Sprintf("flavor: invalid flavor '%s' — must be one of: msvc, mingw", o.Flavor.String))
		}
	}
	if o.Entry.Valid && o.NoEntry.Valid && o.NoEntry.Bool {
		errs = append(errs, "'entry' and 'no_entry' are mutually exclusive — use one or the other")
	}
	if o.Jobs.Valid && o.Jobs.Int64 < 0 {
		errs = append(errs, fmt.Sprintf("jobs: must not be negative, got %d", o.Jobs.Int64))
	}

	for i, a := range o.Alternates {
		if _, _, err := directive.KeyValue("alternatename", a); err != nil {
			errs = append(errs, fmt.Sprintf("alternate_names[%d]: %v", i, err))
		}
	}
	for i, e := range o.Exports {
		if _, err := directive.ParseExport(e); err != nil {
			errs = append(errs, fmt.Sprintf("exports[%d]: %v", i, err))
		}
	}
	for i, name := range o.Includes {
		if name == "" {
			errs = append(errs, fmt.Sprintf("includes[%d]: symbol name is required", i))
		}
	}
	for i, p := range o.SearchPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Sprintf("search_paths[%d]: path is required", i))
		}
	}

	return errs
}
