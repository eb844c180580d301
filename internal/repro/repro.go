// Package repro packs every input of a resolution into a gzip-compressed
// tarball together with the argument list, so the run can be replayed
// elsewhere.
package repro

import (
	"archive/tar"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	"github.com/bianoble/linkset/internal/engine"
)

// ResponseFile is the name of the argument list inside the archive.
const ResponseFile = "response.txt"

// epoch is the modification time of every entry.
var epoch = time.Unix(0, 0).UTC()

// Archive describes the tarball contents.
type Archive struct {
	// Root is the single top-level directory of the tarball.
	Root string
	// Files are read from the filesystem and stored under Root by their
	// absolute path.
	Files []string
	Args  []string
}

// Files returns the distinct files of c in the order they were added.
// Archive members are covered by their archive.
func Files(c *engine.Closure) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range c.Inputs {
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		out = append(out, f.Path)
	}
	return out
}

// EntryName is the name a file is stored under.
func EntryName(root, file string) string {
	p := filepath.ToSlash(file)
	if vol := filepath.VolumeName(file); vol != "" {
		p = strings.TrimSuffix(vol, ":") + p[len(vol):]
	}
	return path.Join(root, strings.TrimLeft(p, "/"))
}

// Write writes a as a gzip-compressed tar to w.
func Write(fs afero.Fs, w io.Writer, a Archive) error {
	zw := gzip.NewWriter(w)
	tw := tar.NewWriter(zw)

	dirs := make(map[string]bool)
	mkdirs := func(name string) error {
		var parents []string
		for d := path.Dir(name); d != "." && d != "/" && !dirs[d]; d = path.Dir(d) {
			parents = append(parents, d)
			dirs[d] = true
		}
		for i := len(parents) - 1; i >= 0; i-- {
			if err := tw.WriteHeader(&tar.Header{
				Name:     parents[i] + "/",
				Mode:     0o755,
				ModTime:  epoch,
				Typeflag: tar.TypeDir,
			}); err != nil {
				return err
			}
		}
		return nil
	}
	add := func(name string, data []byte) error {
		if err := mkdirs(name); err != nil {
			return err
		}
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  epoch,
			Typeflag: tar.TypeReg,
		}); err != nil {
			return err
		}
		_, err := tw.Write(data)
		return err
	}

	if err := add(path.Join(a.Root, ResponseFile), []byte(Response(a.Args))); err != nil {
		return fmt.Errorf("writing %s: %w", ResponseFile, err)
	}
	for _, f := range a.Files {
		data, err := afero.ReadFile(fs, f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		if err := add(EntryName(a.Root, f), data); err != nil {
			return fmt.Errorf("writing %s: %w", f, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

// Response formats args one per line, quoted so that the linker
// command-line tokenizer reads them back unchanged.
func Response(args []string) string {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(quote(a))
		b.WriteByte('\n')
	}
	return b.String()
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	backslashes := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			backslashes++
			continue
		case '"':
			b.WriteString(strings.Repeat(`\`, 2*backslashes+1))
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
		}
		backslashes = 0
		b.WriteByte(s[i])
	}
	b.WriteString(strings.Repeat(`\`, 2*backslashes))
	b.WriteByte('"')
	return b.String()
}
