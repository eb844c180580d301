package linkset

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/guregu/null.v3"

	"github.com/bianoble/linkset/internal/config"
	"github.com/bianoble/linkset/internal/errext"
	"github.com/bianoble/linkset/internal/objfile/objfiletest"
	"github.com/bianoble/linkset/internal/target"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	mainObj = objfiletest.Object{Defines: []string{"main"}, Undefined: []string{"puts"}}
	libcmt  = objfiletest.Archive(
		objfiletest.ObjectMember("crt.obj", objfiletest.Object{
			Defines: []string{"mainCRTStartup"}, Undefined: []string{"main"},
		}),
		objfiletest.ObjectMember("puts.obj", objfiletest.Object{Defines: []string{"puts"}}),
		objfiletest.ObjectMember("unused.obj", objfiletest.Object{Defines: []string{"unused"}}),
	)
)

func memClient(t *testing.T, env config.Env, files map[string][]byte) (*Client, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, name, data, 0o644))
	}
	c, err := New(Options{Dir: "/w", Fs: fs, Env: &env, NoInherit: true})
	require.NoError(t, err)
	return c, fs
}

func labels(files []*InputFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Label())
	}
	return out
}

func TestResolve(t *testing.T) {
	c, _ := memClient(t, config.Env{LIB: "/sdk/lib"}, map[string][]byte{
		"/w/main.obj":         mainObj.Bytes(),
		"/sdk/lib/libcmt.lib": libcmt,
	})

	res, err := c.Resolve(context.Background(), LinkOptions{
		Inputs:      []string{"main.obj"},
		DefaultLibs: []string{"libcmt"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/w/main.obj",
		"/sdk/lib/libcmt.lib(puts.obj)",
		"/sdk/lib/libcmt.lib(crt.obj)",
	}, labels(res.Objects()))
	assert.Equal(t, "mainCRTStartup", res.Entry)
	assert.Equal(t, "x64", res.Machine.String())
	assert.Equal(t, []string{"/w", "/sdk/lib"}, res.Settings.SearchDirs)
}

func TestResolveConfigLayer(t *testing.T) {
	c, _ := memClient(t, config.Env{}, map[string][]byte{
		"/w/main.obj":           mainObj.Bytes(),
		"/w/lib/libcmt.lib":     libcmt,
		"/w/" + config.FileName: []byte("version: 1\nsearch_paths: [lib]\ndefault_libs: [libcmt]\n"),
	})

	res, err := c.Resolve(context.Background(), LinkOptions{Inputs: []string{"main.obj"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/w", "/w/lib"}, res.Settings.SearchDirs)
	assert.Len(t, res.Objects(), 3)
	require.Len(t, res.Settings.Layers, 1)
	assert.True(t, res.Settings.Layers[0].Loaded)
}

func TestResolveLINKEnvironment(t *testing.T) {
	c, _ := memClient(t, config.Env{LINK: "/NOLOGO /defaultlib:libcmt"}, map[string][]byte{
		"/w/main.obj":   mainObj.Bytes(),
		"/w/libcmt.lib": libcmt,
	})

	res, err := c.Resolve(context.Background(), LinkOptions{Inputs: []string{"main.obj"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/NOLOGO"}, res.Settings.Ignored)
	assert.Equal(t, "mainCRTStartup", res.Entry)
}

func TestResolveCommandLineOverridesEnvironment(t *testing.T) {
	c, _ := memClient(t, config.Env{LINK: "/machine:x86"}, nil)

	s, err := c.Settings(LinkOptions{Machine: null.StringFrom("x64")})
	require.NoError(t, err)
	assert.Equal(t, "x64", s.Machine.String())
}

func TestResolveInvalidConfig(t *testing.T) {
	c, _ := memClient(t, config.Env{}, map[string][]byte{"/w/main.obj": mainObj.Bytes()})

	res, err := c.Resolve(context.Background(), LinkOptions{
		Inputs:  []string{"main.obj"},
		Machine: null.StringFrom("vax"),
	})
	assert.Nil(t, res)
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, errext.InvalidConfig, errext.Code(err))
}

func TestResolveNoInputs(t *testing.T) {
	c, _ := memClient(t, config.Env{}, nil)
	_, err := c.Resolve(context.Background(), LinkOptions{})
	assert.ErrorContains(t, err, "no input files")
	assert.Equal(t, errext.InvalidConfig, errext.Code(err))
}

func TestResolveUnresolved(t *testing.T) {
	c, _ := memClient(t, config.Env{}, map[string][]byte{"/w/main.obj": mainObj.Bytes()})

	res, err := c.Resolve(context.Background(), LinkOptions{
		Inputs:  []string{"main.obj"},
		NoEntry: null.BoolFrom(true),
	})
	require.ErrorIs(t, err, ErrUnresolvedSymbol)
	require.NotNil(t, res)
	assert.False(t, res.Partial)
	assert.Equal(t, []string{"puts"}, res.Unresolved)
	assert.Equal(t, errext.UnresolvedSymbols, errext.Code(err))
}

func TestResolveNotFound(t *testing.T) {
	c, _ := memClient(t, config.Env{}, nil)

	res, err := c.Resolve(context.Background(), LinkOptions{Inputs: []string{"missing.obj"}})
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, res.Partial)
	assert.Equal(t, errext.InputNotFound, errext.Code(err))
}

func TestResolveSeedOrder(t *testing.T) {
	c, _ := memClient(t, config.Env{}, map[string][]byte{
		"/w/main.obj":     objfiletest.Object{Defines: []string{"main"}}.Bytes(),
		"/w/sub/all.lib":  libcmt,
		"/w/libextra.lib": objfiletest.Archive(objfiletest.ObjectMember("x.obj", objfiletest.Object{Defines: []string{"x"}})),
	})

	res, err := c.Resolve(context.Background(), LinkOptions{
		Inputs:       []string{"main.obj"},
		WholeArchive: []string{"sub/all.lib"},
		Libraries:    []string{"libextra"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/w/main.obj",
		"/w/sub/all.lib",
		"/w/libextra.lib",
		"/w/sub/all.lib(crt.obj)",
		"/w/sub/all.lib(puts.obj)",
		"/w/sub/all.lib(unused.obj)",
	}, labels(res.Inputs))
}

func TestSettingsSysroot(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, d := range []string{
		"/vs/VC/Tools/MSVC/14.1/lib/x64",
		"/vs/VC/Tools/MSVC/14.30/lib/x64",
		"/vs/Windows Kits/10/Lib/10.0.19041.0/um/x64",
		"/vs/Windows Kits/10/Lib/10.0.19041.0/ucrt/x64",
	} {
		require.NoError(t, fs.MkdirAll(d, 0o755))
	}
	c, err := New(Options{Dir: "/w", Fs: fs, Env: &config.Env{Winsysroot: "/vs"}, NoInherit: true})
	require.NoError(t, err)

	s, err := c.Settings(LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/w"}, s.SearchDirs)
	assert.Equal(t, "/vs", s.Sysroot)
	assert.Empty(t, s.SysrootDirs)

	s, err = c.Settings(LinkOptions{Machine: null.StringFrom("x64")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/vs/VC/Tools/MSVC/14.30/lib/x64",
		"/vs/Windows Kits/10/Lib/10.0.19041.0/ucrt/x64",
		"/vs/Windows Kits/10/Lib/10.0.19041.0/um/x64",
	}, s.SysrootDirs)

	_, err = c.Settings(LinkOptions{Machine: null.StringFrom("arm")})
	require.Error(t, err)
	assert.Equal(t, errext.InvalidConfig, errext.Code(err))

	_, err = c.Settings(LinkOptions{Sysroot: null.StringFrom("/empty")})
	require.Error(t, err)
	assert.Equal(t, errext.InvalidConfig, errext.Code(err))
}

func TestResolveSysrootFollowsObjectMachine(t *testing.T) {
	x86 := func(o objfiletest.Object) objfiletest.Object {
		o.Machine = target.MachineI386
		return o
	}
	x64 := func(o objfiletest.Object) objfiletest.Object {
		o.Machine = target.MachineAMD64
		return o
	}
	c, _ := memClient(t, config.Env{Winsysroot: "/vs"}, map[string][]byte{
		"/w/a.obj": x86(objfiletest.Object{
			Defines: []string{"_main"}, Undefined: []string{"_foo"}, Directives: "/defaultlib:libcmt",
		}).Bytes(),
		"/vs/VC/Tools/MSVC/14.30/lib/x86/libcmt.lib": objfiletest.Archive(
			objfiletest.ObjectMember("foo.obj", x86(objfiletest.Object{Defines: []string{"_foo"}})),
		),
		"/vs/VC/Tools/MSVC/14.30/lib/x64/libcmt.lib": objfiletest.Archive(
			objfiletest.ObjectMember("foo.obj", x64(objfiletest.Object{Defines: []string{"foo"}})),
		),
	})

	res, err := c.Resolve(context.Background(), LinkOptions{
		Inputs:  []string{"a.obj"},
		NoEntry: null.BoolFrom(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "x86", res.Machine.String())
	assert.Equal(t, []string{
		"/w/a.obj",
		"/vs/VC/Tools/MSVC/14.30/lib/x86/libcmt.lib(foo.obj)",
	}, labels(res.Objects()))
}

func TestResolveSysrootWaitsForMachine(t *testing.T) {
	c, _ := memClient(t, config.Env{Winsysroot: "/vs"}, map[string][]byte{
		"/w/main.obj": mainObj.Bytes(),
		"/vs/VC/Tools/MSVC/14.30/lib/x64/libcmt.lib": libcmt,
	})

	res, err := c.Resolve(context.Background(), LinkOptions{
		Libraries: []string{"libcmt"},
		Inputs:    []string{"main.obj"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/w/main.obj",
		"/vs/VC/Tools/MSVC/14.30/lib/x64/libcmt.lib(puts.obj)",
		"/vs/VC/Tools/MSVC/14.30/lib/x64/libcmt.lib(crt.obj)",
	}, labels(res.Objects()))

	res, err = c.Resolve(context.Background(), LinkOptions{Libraries: []string{"libcmt"}})
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, res.Partial)
	_, fields := errext.Format(err)
	assert.Contains(t, fields["hint"], "--machine")
}

func TestFind(t *testing.T) {
	c, _ := memClient(t, config.Env{}, map[string][]byte{"/w/lib/libfoo.a": []byte("!<arch>\n")})

	r, err := c.Find("foo", SearchLibrary, LinkOptions{
		Flavor:      null.StringFrom("mingw"),
		SearchPaths: []string{"lib"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/w/lib/libfoo.a", r.Path)
	assert.Equal(t, []string{
		"/w/foo", "/w/foo.lib", "/w/lib/foo", "/w/lib/foo.lib",
		"/w/libfoo.a", "/w/lib/libfoo.a", "/w/libfoo.dll.a", "/w/lib/libfoo.dll.a",
	}, r.Candidates)

	r, err = c.Find("bar", SearchLibrary, LinkOptions{})
	require.NoError(t, err)
	assert.Empty(t, r.Path)
}

func TestDirectives(t *testing.T) {
	c, _ := memClient(t, config.Env{}, map[string][]byte{
		"/w/a.obj":   objfiletest.Object{Directives: "/DEFAULTLIB:libcmt /export:f /merge:.a=.b"}.Bytes(),
		"/w/b.obj":   objfiletest.Object{Directives: `/defaultlib:x "/export:oops`}.Bytes(),
		"/w/c.obj":   objfiletest.Object{}.Bytes(),
		"/w/lib.lib": libcmt,
	})

	r, err := c.Directives("a.obj")
	require.NoError(t, err)
	assert.True(t, r.Present)
	assert.NoError(t, r.Err)
	assert.Equal(t, "x64", r.Machine.String())
	assert.Equal(t, []string{"f"}, r.Parsed.Exports)
	assert.Equal(t, []string{"libcmt"}, r.Parsed.Lookup("defaultlib"))

	r, err = c.Directives("b.obj")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, ErrMalformedDirective)
	assert.Equal(t, []string{"x"}, r.Parsed.Lookup("defaultlib"))

	r, err = c.Directives("c.obj")
	require.NoError(t, err)
	assert.False(t, r.Present)
	assert.Nil(t, r.Parsed)

	_, err = c.Directives("lib.lib")
	assert.ErrorContains(t, err, "not an object")

	_, err = c.Directives("none.obj")
	assert.Equal(t, errext.InputNotFound, errext.Code(err))
}

func TestIndexCacheAndInfo(t *testing.T) {
	c, _ := memClient(t, config.Env{}, map[string][]byte{
		"/w/main.obj":   mainObj.Bytes(),
		"/w/libcmt.lib": libcmt,
	})
	opts := LinkOptions{
		Inputs:      []string{"main.obj"},
		DefaultLibs: []string{"libcmt"},
		IndexCache:  null.BoolFrom(true),
		CacheDir:    null.StringFrom("/cache"),
	}

	res, err := c.Resolve(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.CachedIndexes)

	res, err = c.Resolve(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.CachedIndexes)

	info, err := c.Info(opts)
	require.NoError(t, err)
	assert.Equal(t, "/cache", info.CacheDir)
	assert.Equal(t, 1, info.CacheEntries)
	assert.Positive(t, info.CacheBytes)

	require.NoError(t, c.ClearCache(opts))
	info, err = c.Info(opts)
	require.NoError(t, err)
	assert.Equal(t, 0, info.CacheEntries)
}

// osClient sets up a real directory, as the manifest and reproduce
// outputs are written through the OS.
func osClient(t *testing.T) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.obj"), mainObj.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "libcmt.lib"), libcmt, 0o644))
	c, err := New(Options{Dir: dir, Env: &config.Env{}, NoInherit: true})
	require.NoError(t, err)
	return c, dir
}

func TestManifestCheck(t *testing.T) {
	c, dir := osClient(t)
	args := []string{"--defaultlib=libcmt", "--", "main.obj"}
	cli, err := config.ParseCommandLine(args)
	require.NoError(t, err)

	res, err := c.Resolve(context.Background(), cli)
	require.NoError(t, err)
	m, err := c.Manifest(res, args)
	require.NoError(t, err)
	require.NoError(t, c.WriteManifest("out/linkset.manifest.yaml", m))

	check, err := c.Check(context.Background(), "out/linkset.manifest.yaml")
	require.NoError(t, err)
	require.NotNil(t, check.Diff)
	assert.True(t, check.Diff.Clean(), "%+v", check.Diff)

	changed := objfiletest.Object{Defines: []string{"main", "extra"}, Undefined: []string{"puts"}}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.obj"), changed.Bytes(), 0o644))

	check, err = c.Check(context.Background(), "out/linkset.manifest.yaml")
	require.NoError(t, err)
	require.False(t, check.Diff.Clean())
	assert.Equal(t, "input "+filepath.Join(dir, "main.obj")+" sha256", check.Diff.Changes[0].Field)
}

func TestCheckFatal(t *testing.T) {
	c, dir := osClient(t)
	args := []string{"--", "main.obj"}
	cli, err := config.ParseCommandLine(args)
	require.NoError(t, err)
	res, _ := c.Resolve(context.Background(), cli)
	m, err := c.Manifest(res, args)
	require.NoError(t, err)
	require.NoError(t, c.WriteManifest("m.yaml", m))

	require.NoError(t, os.Remove(filepath.Join(dir, "main.obj")))
	_, err = c.Check(context.Background(), "m.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteManifestOutsideDir(t *testing.T) {
	c, _ := osClient(t)
	err := c.WriteManifest("../escape.yaml", &Manifest{Version: 1, Machine: "x64"})
	assert.ErrorContains(t, err, "outside the output root")
}

func TestReproduce(t *testing.T) {
	c, dir := osClient(t)
	args := []string{"--defaultlib=libcmt", "--", "main.obj"}
	cli, err := config.ParseCommandLine(args)
	require.NoError(t, err)
	res, err := c.Resolve(context.Background(), cli)
	require.NoError(t, err)

	require.NoError(t, c.Reproduce("repro.tar.gz", res, args))

	f, err := os.Open(filepath.Join(dir, "repro.tar.gz"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(zr)
	var files []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag == tar.TypeReg {
			files = append(files, filepath.Base(hdr.Name))
		}
	}
	assert.Equal(t, []string{"response.txt", "main.obj", "libcmt.lib"}, files)
}
