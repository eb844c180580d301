package directive

import (
	"fmt"
	"strings"
)

// Kind describes how an option takes its value.
type Kind int

const (
	// Flag options take no value.
	Flag Kind = iota
	// Joined options require ":value".
	Joined
	// OptionalJoined options accept an optional ":value".
	OptionalJoined
)

// table lists the options accepted inside directive sections.
var table = map[string]Kind{
	"alternatename":      Joined,
	"defaultlib":         Joined,
	"disallowlib":        Joined,
	"editandcontinue":    Flag,
	"entry":              Joined,
	"exclude-symbols":    Joined,
	"export":             Joined,
	"failifmismatch":     Joined,
	"guardsym":           Joined,
	"heap":               Joined,
	"include":            Joined,
	"incremental":        OptionalJoined,
	"manifestdependency": Joined,
	"merge":              Joined,
	"nodefaultlib":       OptionalJoined,
	"opt":                Joined,
	"release":            Flag,
	"section":            Joined,
	"stack":              Joined,
	"subsystem":          Joined,
	"throwingnew":        Flag,
}

// Arg is one option parsed by the generic grammar.
type Arg struct {
	// Name is the lower-cased option name without its leading / or -.
	// It is empty for tokens that are not options at all.
	Name     string
	Value    string
	HasValue bool
	// Known is false for well-formed options missing from the table.
	Known bool
	Raw   string
}

// ParseArg parses a single token with the option grammar.
func ParseArg(tok string) (Arg, error) {
	a := Arg{Raw: tok}
	if tok == "" || (tok[0] != '/' && tok[0] != '-') {
		a.Value = tok
		return a, nil
	}
	body := tok[1:]
	name := body
	if i := strings.IndexByte(body, ':'); i >= 0 {
		name = body[:i]
		a.Value = body[i+1:]
		a.HasValue = true
	}
	if name == "" {
		return a, fmt.Errorf("empty option name")
	}
	a.Name = strings.ToLower(name)

	kind, ok := table[a.Name]
	if !ok {
		return a, nil
	}
	a.Known = true
	switch kind {
	case Flag:
		if a.HasValue {
			return a, fmt.Errorf("/%s does not take a value", a.Name)
		}
	case Joined:
		if !a.HasValue || a.Value == "" {
			return a, fmt.Errorf("/%s requires a value", a.Name)
		}
	}
	return a, nil
}

// Known reports whether name is a recognized directive option.
func Known(name string) bool {
	_, ok := table[strings.ToLower(name)]
	return ok
}
