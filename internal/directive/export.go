package directive

import (
	"fmt"
	"strconv"
	"strings"
)

// Export is a parsed /export specification.
type Export struct {
	// Name is the exported (external) name.
	Name string
	// Internal is the symbol providing the definition, when it differs
	// from Name.
	Internal string
	// ForwardTo is set for "name=dll.symbol" forwarders.
	ForwardTo string
	Ordinal   uint16
	NoName    bool
	Data      bool
	Constant  bool
	Private   bool

	FromDirective bool
}

// Symbol returns the name whose definition the export requires.
// Forwarders require none.
func (e Export) Symbol() string {
	if e.ForwardTo != "" {
		return ""
	}
	if e.Internal != "" {
		return e.Internal
	}
	return e.Name
}

// ParseExport parses name[=internal][,@ordinal[,NONAME]][,DATA][,CONSTANT][,PRIVATE].
func ParseExport(arg string) (Export, error) {
	var e Export
	name, rest, _ := strings.Cut(arg, ",")
	if name == "" {
		return e, fmt.Errorf("invalid /export: %s", arg)
	}
	e.Name = name
	if ext, internal, ok := strings.Cut(name, "="); ok {
		if strings.Contains(internal, ".") {
			e.Name = ext
			e.ForwardTo = internal
			return e, nil
		}
		if ext == "" || internal == "" {
			return e, fmt.Errorf("invalid /export: %s", arg)
		}
		e.Name = ext
		e.Internal = internal
	}

	for rest != "" {
		var tok string
		tok, rest, _ = strings.Cut(rest, ",")
		switch {
		case strings.EqualFold(tok, "noname"):
			if e.Ordinal == 0 {
				return e, fmt.Errorf("invalid /export: %s: NONAME requires an ordinal", arg)
			}
			e.NoName = true
		case strings.EqualFold(tok, "data"):
			e.Data = true
		case strings.EqualFold(tok, "constant"):
			e.Constant = true
		case strings.EqualFold(tok, "private"):
			e.Private = true
		case strings.HasPrefix(tok, "@"):
			ord, err := strconv.ParseInt(tok[1:], 0, 32)
			if err != nil || ord <= 0 || ord > 65535 {
				return e, fmt.Errorf("invalid /export: %s: bad ordinal %q", arg, tok)
			}
			e.Ordinal = uint16(ord)
		default:
			return e, fmt.Errorf("invalid /export: %s: unknown attribute %q", arg, tok)
		}
	}
	return e, nil
}
