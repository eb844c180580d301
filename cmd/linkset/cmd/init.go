package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/linkset/internal/config"
)

// initTemplate is the default linkset.yaml scaffold.
const initTemplate = `# linkset configuration
version: 1

# Objects and archives added before command-line inputs.
inputs: []

# Library directories, searched after the working directory and before LIB.
search_paths:
  - lib

# Libraries added as if an object had asked for them with /defaultlib.
# default_libs:
#   - libcmt
#   - kernel32

# Default libraries to ignore, or all of them.
# no_default_libs: [oldnames]
# no_default_lib_all: true

# Target machine: x86, x64, arm or arm64. Unset means the first object decides.
# machine: x64

# subsystem: console
# entry: mainCRTStartup
# dll: false

# Library naming convention: msvc (name.lib) or mingw (libname.a).
flavor: msvc

# Visual Studio and Windows SDK root; library directories are detected.
# sysroot: C:/BuildTools

# Cache archive symbol indices between runs.
index_cache: false
`

func getInitCmd() *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init",
		Short: "Create a starter linkset.yaml configuration",
		Long: `Creates a linkset.yaml file in the working directory with a commented
template of the most common link options.

Use --force to overwrite an existing configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath := configPath
			if outPath == "" {
				outPath = filepath.Join(workDir, config.FileName)
			}
			if !filepath.IsAbs(outPath) {
				abs, err := filepath.Abs(outPath)
				if err != nil {
					return fmt.Errorf("resolving path: %w", err)
				}
				outPath = abs
			}

			if !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
				}
			}

			if err := os.WriteFile(outPath, []byte(initTemplate), 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			info("Created %s", outPath)
			info("")
			info("Next steps:")
			info("  1. Edit the search paths and default libraries")
			info("  2. Run 'linkset info' to check the search path")
			info("  3. Run 'linkset resolve <objects>' to list what the link needs")
			return nil
		},
	}
	c.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return c
}
