package config

import (
	"fmt"
	"os"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"

	"github.com/bianoble/linkset/internal/directive"
)

// Env holds the environment variables linkset reads.
type Env struct {
	// LIB is a ';'-separated list of library directories searched after
	// the configured ones.
	LIB string `envconfig:"LIB"`
	// LINK holds extra arguments that precede the command line.
	LINK       string `envconfig:"LINK"`
	Winsysroot string `envconfig:"LINKSET_WINSYSROOT"`
	NoInherit  bool   `envconfig:"LINKSET_NO_INHERIT"`
}

// ReadEnv reads configuration variables from the environment. A variable
// set to the empty string counts as unset.
func ReadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env, func(key string) (string, bool) {
		v, ok := os.LookupEnv(key)
		return v, ok && v != ""
	}); err != nil {
		return env, fmt.Errorf("reading environment: %w", err)
	}
	return env, nil
}

// Options returns the settings carried by the environment: the sysroot
// and everything in LINK. Unknown LINK options are returned separately.
func (e Env) Options() (Options, []string, error) {
	var o Options
	if e.Winsysroot != "" {
		o.Sysroot = null.StringFrom(e.Winsysroot)
	}
	if e.LINK == "" {
		return o, nil, nil
	}
	tokens, err := directive.Tokenize(e.LINK)
	if err != nil {
		return o, nil, fmt.Errorf("LINK: %w", err)
	}
	link, ignored, err := ParseArgs(tokens)
	if err != nil {
		return o, ignored, fmt.Errorf("LINK: %w", err)
	}
	return o.Apply(link), ignored, nil
}
