// Package directive parses the linker options embedded in object files
// (the .drectve section).
//
// /export: and /include: name symbols, and a single section may list tens
// of thousands of them, so they bypass the option grammar and are sliced
// straight out of the token stream.
package directive

import (
	"fmt"
	"strings"
)

// Parsed is the result of parsing one directive section.
type Parsed struct {
	Exports  []string
	Includes []string
	Args     []Arg
	// GenericTokens counts the tokens that went through ParseArg.
	GenericTokens int
}

// Parse tokenizes s and splits it into export and include symbol lists plus
// generic options. When a token is malformed, everything parsed before it is
// returned together with a *MalformedError.
func Parse(s string) (*Parsed, error) {
	s = strings.TrimPrefix(s, "\xef\xbb\xbf")

	var tokens []string
	var offsets []int
	tokErr := scan(s, func(tok string, off int) {
		tokens = append(tokens, tok)
		offsets = append(offsets, off)
	})

	nexp, ninc := 0, 0
	for _, tok := range tokens {
		switch fastKind(tok) {
		case fastExport:
			nexp++
		case fastInclude:
			ninc++
		}
	}

	p := &Parsed{
		Exports:  make([]string, 0, nexp),
		Includes: make([]string, 0, ninc),
	}
	for i, tok := range tokens {
		switch fastKind(tok) {
		case fastExport:
			p.Exports = append(p.Exports, tok[len("/export:"):])
			continue
		case fastInclude:
			p.Includes = append(p.Includes, tok[len("/include:"):])
			continue
		}

		p.GenericTokens++
		arg, err := ParseArg(tok)
		if err != nil {
			return p, &MalformedError{Offset: offsets[i], Token: tok, Reason: err.Error()}
		}
		p.Args = append(p.Args, arg)
	}
	return p, tokErr
}

type fast int

const (
	fastNone fast = iota
	fastExport
	fastInclude
)

func fastKind(tok string) fast {
	if len(tok) < 2 || (tok[0] != '/' && tok[0] != '-') {
		return fastNone
	}
	switch {
	case hasPrefixFold(tok[1:], "export:"):
		return fastExport
	case hasPrefixFold(tok[1:], "include:"):
		return fastInclude
	}
	return fastNone
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Lookup returns the values of every arg named name, in order.
func (p *Parsed) Lookup(name string) []string {
	var out []string
	for _, a := range p.Args {
		if a.Name == name {
			out = append(out, a.Value)
		}
	}
	return out
}

// Unknown returns the raw text of well-formed options not in the table.
func (p *Parsed) Unknown() []string {
	var out []string
	for _, a := range p.Args {
		if !a.Known {
			out = append(out, a.Raw)
		}
	}
	return out
}

// KeyValue splits "key=value" as used by /failifmismatch and
// /alternatename. Both sides must be non-empty.
func KeyValue(option, arg string) (string, string, error) {
	k, v, ok := strings.Cut(arg, "=")
	if !ok || k == "" || v == "" {
		return "", "", fmt.Errorf("/%s: expected key=value, got %q", option, arg)
	}
	return k, v, nil
}
