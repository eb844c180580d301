// Package entry chooses the program entry point once input resolution is
// complete.
package entry

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/bianoble/linkset/internal/target"
)

var (
	ErrNoEntryPoint   = errors.New("no entry point")
	ErrAmbiguousEntry = errors.New("ambiguous entry point")
)

// Error is an entry point failure with one of the kinds above.
type Error struct {
	Kind       error
	Msg        string
	Candidates []string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Symbols answers whether a name has a definition.
type Symbols interface {
	IsDefined(name string) bool
}

// Policy is the configuration entry inference runs under.
type Policy struct {
	Machine target.Machine
	// Subsystem is inferred from the defined symbols when unknown.
	Subsystem Subsystem
	// Entry is an explicitly requested entry; it is decorated for the
	// machine and never inferred.
	Entry   string
	NoEntry bool
	DLL     bool
	MinGW   bool
	// Strict makes a choice between narrow and wide variants an error
	// instead of a warning.
	Strict bool
}

// Result is the chosen entry point.
type Result struct {
	// Entry is the decorated startup symbol; empty with NoEntry.
	Entry     string
	Subsystem Subsystem
	// Candidate is the user-level function that selected Entry.
	Candidate string
	Inferred  bool
}

type candidate struct {
	narrow, wide  string
	narrowStartup string
	wideStartup   string
	subsystem     Subsystem
}

var (
	consoleMain = candidate{"main", "wmain", "mainCRTStartup", "wmainCRTStartup", SubsystemConsole}
	windowsMain = candidate{"WinMain", "wWinMain", "WinMainCRTStartup", "wWinMainCRTStartup", SubsystemWindows}
)

type inferrer struct {
	syms Symbols
	p    Policy
	log  logrus.FieldLogger
}

// Infer returns the entry point for the link. The returned Entry must be
// fed back as a required definition; leaving it undefined is an
// unresolved symbol, not an entry point error.
func Infer(syms Symbols, p Policy, log logrus.FieldLogger) (Result, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	in := &inferrer{syms: syms, p: p, log: log.WithField("component", "entry")}

	res := Result{Subsystem: p.Subsystem}
	if res.Subsystem == SubsystemUnknown {
		res.Subsystem = in.inferSubsystem()
	}

	switch {
	case p.NoEntry:
		return res, nil
	case p.Entry != "":
		res.Entry = p.Machine.Mangle(p.Entry)
		return res, nil
	case p.DLL:
		res.Entry = dllEntry(p.Machine)
		res.Inferred = true
		return res, nil
	}

	var c candidate
	switch res.Subsystem {
	case SubsystemConsole:
		c = consoleMain
	case SubsystemWindows:
		c = windowsMain
	case SubsystemUnknown:
		return res, &Error{Kind: ErrNoEntryPoint,
			Msg: "subsystem must be defined: no main, wmain, WinMain or wWinMain found"}
	default:
		return res, &Error{Kind: ErrNoEntryPoint,
			Msg: fmt.Sprintf("entry point must be defined for subsystem %s", res.Subsystem)}
	}

	if p.MinGW {
		res.Entry = p.Machine.Mangle(c.narrowStartup)
		res.Candidate = c.narrow
		res.Inferred = true
		return res, nil
	}

	haveNarrow, haveWide := in.defined(c.narrow), in.defined(c.wide)
	switch {
	case haveNarrow && haveWide:
		if p.Strict {
			return res, &Error{Kind: ErrAmbiguousEntry,
				Msg:        fmt.Sprintf("found both %s and %s; specify an entry point", c.wide, c.narrow),
				Candidates: []string{c.narrow, c.wide}}
		}
		in.log.Warnf("found both %s and %s; using latter", c.wide, c.narrow)
		res.Entry, res.Candidate = p.Machine.Mangle(c.narrowStartup), c.narrow
	case haveNarrow:
		res.Entry, res.Candidate = p.Machine.Mangle(c.narrowStartup), c.narrow
	case haveWide:
		res.Entry, res.Candidate = p.Machine.Mangle(c.wideStartup), c.wide
	default:
		return res, &Error{Kind: ErrNoEntryPoint,
			Msg: fmt.Sprintf("no entry point: neither %s nor %s is defined for subsystem %s",
				c.narrow, c.wide, res.Subsystem)}
	}
	res.Inferred = true
	return res, nil
}

// inferSubsystem picks console when a main variant is defined and windows
// when only a WinMain variant is.
func (in *inferrer) inferSubsystem() Subsystem {
	if in.p.DLL {
		return SubsystemWindows
	}
	if in.p.MinGW {
		return SubsystemConsole
	}
	haveMain := in.defined("main") || in.defined("wmain")
	haveWinMain := in.defined("WinMain") || in.defined("wWinMain")
	switch {
	case haveMain:
		if haveWinMain {
			in.log.Warn("found both a main and a WinMain variant; defaulting to subsystem console")
		}
		return SubsystemConsole
	case haveWinMain:
		return SubsystemWindows
	}
	return SubsystemUnknown
}

// defined checks the decorated name first, then the bare one.
func (in *inferrer) defined(name string) bool {
	if m := in.p.Machine.Mangle(name); m != name && in.syms.IsDefined(m) {
		return true
	}
	return in.syms.IsDefined(name)
}

func dllEntry(m target.Machine) string {
	if m.COFF == target.MachineI386 {
		return "__DllMainCRTStartup@12"
	}
	return "_DllMainCRTStartup"
}
