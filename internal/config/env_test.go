package config

import (
	"testing"
)

func TestReadEnv(t *testing.T) {
	t.Setenv("LIB", `C:\lib;D:\lib`)
	t.Setenv("LINK", "/dll")
	t.Setenv("LINKSET_WINSYSROOT", "/opt/winsdk")
	t.Setenv("LINKSET_NO_INHERIT", "1")

	env, err := ReadEnv()
	if err != nil {
		t.Fatalf("ReadEnv: %v", err)
	}
	if env.LIB != `C:\lib;D:\lib` {
		t.Errorf("LIB = %q", env.LIB)
	}
	if env.LINK != "/dll" {
		t.Errorf("LINK = %q", env.LINK)
	}
	if env.Winsysroot != "/opt/winsdk" {
		t.Errorf("Winsysroot = %q", env.Winsysroot)
	}
	if !env.NoInherit {
		t.Error("NoInherit should be true")
	}
}

func TestReadEnvBadBool(t *testing.T) {
	t.Setenv("LINKSET_NO_INHERIT", "maybe")
	if _, err := ReadEnv(); err == nil {
		t.Fatal("expected error for non-boolean LINKSET_NO_INHERIT")
	}
}

func TestReadEnvEmptyIsUnset(t *testing.T) {
	for _, k := range []string{"LIB", "LINK", "LINKSET_WINSYSROOT", "LINKSET_NO_INHERIT"} {
		t.Setenv(k, "")
	}

	env, err := ReadEnv()
	if err != nil {
		t.Fatalf("ReadEnv: %v", err)
	}
	if env != (Env{}) {
		t.Errorf("env = %+v, want zero value", env)
	}
}

func TestEnvOptions(t *testing.T) {
	env := Env{
		LINK:       `/defaultlib:"my lib" /debug extra.obj`,
		Winsysroot: "/sdk",
	}
	o, ignored, err := env.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if want := []string{"my lib"}; !equalStrings(o.DefaultLibs, want) {
		t.Errorf("default libs = %v, want %v", o.DefaultLibs, want)
	}
	if want := []string{"extra.obj"}; !equalStrings(o.Inputs, want) {
		t.Errorf("inputs = %v, want %v", o.Inputs, want)
	}
	if want := []string{"/debug"}; !equalStrings(ignored, want) {
		t.Errorf("ignored = %v, want %v", ignored, want)
	}
	if o.Sysroot.String != "/sdk" {
		t.Errorf("sysroot = %q", o.Sysroot.String)
	}
}

func TestEnvOptionsLinkOverridesSysroot(t *testing.T) {
	env := Env{LINK: "/winsysroot:/link", Winsysroot: "/env"}
	o, _, err := env.Options()
	if err != nil {
		t.Fatal(err)
	}
	if o.Sysroot.String != "/link" {
		t.Errorf("sysroot = %q, want /link", o.Sysroot.String)
	}
}

func TestEnvOptionsUnterminatedQuote(t *testing.T) {
	env := Env{LINK: `/defaultlib:"oops`}
	if _, _, err := env.Options(); err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}
