package searchpath

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/bianoble/linkset/internal/target"
)

// Sources are the inputs of a search list, concatenated in field order
// after the working directory.
type Sources struct {
	Cwd        string
	Configured []string
	Env        []string
}

// Build assembles the search list: the working directory, configured
// directories, then the LIB environment list. Sysroot directories are
// appended later, once the machine is known. Empty entries are skipped.
func Build(src Sources) []string {
	var out []string
	add := func(dirs ...string) {
		for _, d := range dirs {
			if d = strings.TrimSpace(d); d != "" {
				out = append(out, d)
			}
		}
	}
	add(src.Cwd)
	add(src.Configured...)
	add(src.Env...)
	return out
}

// SplitList splits a ';'-separated directory list such as LIB.
func SplitList(s string) []string {
	var out []string
	for _, d := range strings.Split(s, ";") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// DetectSysroot returns the library directories of an MSVC-style sysroot
// for machine m: the newest VC/Tools/MSVC/<version>/lib/<arch>, then the
// ucrt and um directories of the newest Windows Kits/10/Lib/<version>.
// Missing directories are skipped; a sysroot with none of them is an error.
func DetectSysroot(fs afero.Fs, root string, m target.Machine) ([]string, error) {
	if m.IsUnknown() {
		return nil, fmt.Errorf("sysroot %s: machine must be known to pick library directories", root)
	}
	var out []string
	if v, ok := highestVersion(fs, filepath.Join(root, "VC", "Tools", "MSVC")); ok {
		dir := filepath.Join(root, "VC", "Tools", "MSVC", v, "lib", m.LibDir)
		if isDir(fs, dir) {
			out = append(out, dir)
		}
	}
	sdk := filepath.Join(root, "Windows Kits", "10", "Lib")
	if v, ok := highestVersion(fs, sdk); ok {
		for _, sub := range []string{"ucrt", "um"} {
			dir := filepath.Join(sdk, v, sub, m.LibDir)
			if isDir(fs, dir) {
				out = append(out, dir)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sysroot %s: no MSVC or Windows SDK library directories for %s", root, m)
	}
	return out, nil
}

func isDir(fs afero.Fs, p string) bool {
	ok, err := afero.IsDir(fs, p)
	return err == nil && ok
}

// highestVersion returns the subdirectory of dir with the greatest dotted
// numeric name.
func highestVersion(fs afero.Fs, dir string) (string, bool) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", false
	}
	var best string
	var bestParts []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		parts, ok := parseVersion(e.Name())
		if !ok {
			continue
		}
		if bestParts == nil || compareVersions(parts, bestParts) > 0 {
			best, bestParts = e.Name(), parts
		}
	}
	return best, bestParts != nil
}

func parseVersion(s string) ([]int, bool) {
	fields := strings.Split(s, ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, false
		}
		parts[i] = n
	}
	return parts, true
}

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
