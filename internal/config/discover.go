package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

// FileName is the default project config file name.
const FileName = "linkset.yaml"

const configDirName = "linkset"

// ConfigLevel represents the precedence level of a configuration file.
type ConfigLevel string

const (
	LevelSystem  ConfigLevel = "system"
	LevelUser    ConfigLevel = "user"
	LevelProject ConfigLevel = "project"
)

// ConfigLayerInfo describes a discovered config file and its load status.
type ConfigLayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  ConfigLevel
	Loaded bool
}

// DiscoverOptions controls how config paths are discovered.
type DiscoverOptions struct {
	// ProjectPath is the project-level config path (required).
	ProjectPath string

	// SystemConfigPath overrides the default system config path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	SystemConfigPath string

	// UserConfigPath overrides the default user config path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	UserConfigPath string
}

// DiscoverPaths returns the ordered list of config file paths to check,
// from lowest precedence (system) to highest (project).
// Paths are deduplicated by resolved absolute path.
func DiscoverPaths(opts DiscoverOptions) []ConfigLayerInfo {
	var layers []ConfigLayerInfo
	seen := make(map[string]bool)

	addLayer := func(level ConfigLevel, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, ConfigLayerInfo{
			Path:  path,
			Level: level,
		})
	}

	sysPath := opts.SystemConfigPath
	if sysPath == "" {
		sysPath = defaultSystemConfigPath()
	}
	addLayer(LevelSystem, sysPath)

	userPath := opts.UserConfigPath
	if userPath == "" {
		userPath = defaultUserConfigPath()
	}
	addLayer(LevelUser, userPath)

	// Project-level config (always last, highest precedence).
	addLayer(LevelProject, opts.ProjectPath)

	return layers
}

// defaultSystemConfigPath returns the platform-standard system config path.
func defaultSystemConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, configDirName, FileName)
	default:
		return filepath.Join("/etc", configDirName, FileName)
	}
}

// defaultUserConfigPath returns the platform-standard user config path.
func defaultUserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, FileName)
}

// HierarchicalOptions controls LoadHierarchical.
type HierarchicalOptions struct {
	Fs               afero.Fs
	ProjectPath      string
	SystemConfigPath string
	UserConfigPath   string
	// NoInherit skips the system and user layers.
	NoInherit bool
}

// HierarchicalResult is the merged configuration and the layers that
// contributed to it.
type HierarchicalResult struct {
	Config *Config
	Layers []ConfigLayerInfo
}

// LoadHierarchical loads every existing layer in precedence order and
// merges them. Missing files are skipped; a file that exists but fails to
// parse or validate is an error. With no layer present the result is an
// empty version 1 configuration.
func LoadHierarchical(opts HierarchicalOptions) (*HierarchicalResult, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	var layers []ConfigLayerInfo
	if opts.NoInherit {
		layers = []ConfigLayerInfo{{Path: opts.ProjectPath, Level: LevelProject}}
	} else {
		layers = DiscoverPaths(DiscoverOptions{
			ProjectPath:      opts.ProjectPath,
			SystemConfigPath: opts.SystemConfigPath,
			UserConfigPath:   opts.UserConfigPath,
		})
	}

	var merged *Config
	for i := range layers {
		l := &layers[i]
		if l.Path == "" {
			continue
		}
		if ok, _ := afero.Exists(fs, l.Path); !ok {
			continue
		}
		data, err := afero.ReadFile(fs, l.Path)
		if err != nil {
			l.Err = err
			return nil, fmt.Errorf("reading %s config %s: %w", l.Level, l.Path, err)
		}
		cfg, err := Parse(data)
		if err == nil {
			if errs := ValidateOptions(cfg.Options); len(errs) > 0 {
				err = &ValidationError{Errors: errs}
			}
		}
		if err != nil {
			l.Err = err
			return nil, fmt.Errorf("loading %s config %s: %w", l.Level, l.Path, err)
		}
		l.Loaded = true

		if merged, err = Merge(merged, cfg); err != nil {
			return nil, err
		}
	}

	if merged == nil {
		merged = &Config{Version: 1}
	}
	if errs := Validate(merged); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &HierarchicalResult{Config: merged, Layers: layers}, nil
}
