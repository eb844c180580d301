package sandbox

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func realRoot(t *testing.T, root string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestValidatePath(t *testing.T) {
	root := t.TempDir()
	rr := realRoot(t, root)

	tests := []struct {
		name    string
		path    string
		want    string
		escapes bool
	}{
		{"relative", "out/linkset.manifest.yaml", filepath.Join(rr, "out", "linkset.manifest.yaml"), false},
		{"root itself", ".", rr, false},
		{"absolute inside", filepath.Join(rr, "repro.tar.gz"), filepath.Join(rr, "repro.tar.gz"), false},
		{"dot dot", "../escape.yaml", "", true},
		{"nested dot dot", "a/b/../../../escape.yaml", "", true},
		{"absolute outside", filepath.Join(filepath.Dir(rr), "elsewhere.yaml"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(root, tt.path)
			if tt.escapes {
				if err == nil || !strings.Contains(err.Error(), "outside the output root") {
					t.Fatalf("expected escape error, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidatePath: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatePathInvalidRoot(t *testing.T) {
	if _, err := ValidatePath("/nonexistent-root-dir-12345", "file.yaml"); err == nil {
		t.Fatal("expected error for non-existent root")
	}
}

func TestValidatePathRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	root := t.TempDir()
	outsideDir := t.TempDir()
	if err := os.Symlink(outsideDir, filepath.Join(root, "escape-link")); err != nil {
		t.Fatalf("creating symlink: %v", err)
	}

	_, err := ValidatePath(root, "escape-link/manifest.yaml")
	if err == nil || !strings.Contains(err.Error(), "outside the output root") {
		t.Fatalf("expected symlink escape error, got %v", err)
	}
}

func TestValidatePathAllowsInternalSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	root := t.TempDir()
	realDir := filepath.Join(root, "real", "subdir")
	if err := os.MkdirAll(realDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Fatal(err)
	}

	resolved, err := ValidatePath(root, "link/subdir/file.yaml")
	if err != nil {
		t.Fatalf("ValidatePath through internal symlink: %v", err)
	}
	expected := filepath.Join(realRoot(t, root), "real", "subdir", "file.yaml")
	if resolved != expected {
		t.Errorf("got %q, want %q", resolved, expected)
	}
}

func TestResolveExistingPathDeeplyNonexistent(t *testing.T) {
	dir := t.TempDir()
	resolved, err := resolveExistingPath(filepath.Join(dir, "a", "b", "c", "file.yaml"))
	if err != nil {
		t.Fatalf("resolveExistingPath: %v", err)
	}
	expected := filepath.Join(realRoot(t, dir), "a", "b", "c", "file.yaml")
	if resolved != expected {
		t.Errorf("got %q, want %q", resolved, expected)
	}
}

func TestSafeWriteCreatesAndOverwrites(t *testing.T) {
	root := t.TempDir()

	if err := SafeWrite(root, "out/m.yaml", []byte("original"), 0o644); err != nil {
		t.Fatalf("SafeWrite: %v", err)
	}
	if err := SafeWrite(root, "out/m.yaml", []byte("updated"), 0o644); err != nil {
		t.Fatalf("SafeWrite: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(realRoot(t, root), "out", "m.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "updated" {
		t.Errorf("content = %q, want %q", data, "updated")
	}
}

func TestSafeWritePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}

	root := t.TempDir()
	if err := SafeWrite(root, "private.yaml", []byte("x"), 0o600); err != nil {
		t.Fatalf("SafeWrite: %v", err)
	}
	info, err := os.Stat(filepath.Join(realRoot(t, root), "private.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestSafeWriteRejectsEscape(t *testing.T) {
	root := t.TempDir()
	if err := SafeWrite(root, "../escape/file.yaml", []byte("bad"), 0o644); err == nil {
		t.Fatal("expected error for escape attempt")
	}
}

func TestSafeCreateStreams(t *testing.T) {
	root := t.TempDir()
	err := SafeCreate(root, "repro.tar.gz", 0o644, func(w io.Writer) error {
		for i := 0; i < 3; i++ {
			if _, err := io.WriteString(w, "chunk;"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("SafeCreate: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(realRoot(t, root), "repro.tar.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "chunk;chunk;chunk;" {
		t.Errorf("content = %q", data)
	}
}

func TestSafeCreateFailureKeepsDestination(t *testing.T) {
	root := t.TempDir()
	if err := SafeWrite(root, "m.yaml", []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := SafeCreate(root, "m.yaml", 0o644, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}

	rr := realRoot(t, root)
	data, _ := os.ReadFile(filepath.Join(rr, "m.yaml"))
	if string(data) != "keep" {
		t.Errorf("destination changed to %q", data)
	}
	leftovers, _ := filepath.Glob(filepath.Join(rr, ".linkset-*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left: %v", leftovers)
	}
}
