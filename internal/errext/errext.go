// Package errext attaches process exit codes and user hints to errors.
package errext

import "errors"

// ExitCode is the code the process exits with when an error reaches main.
type ExitCode uint8

// Exit codes used by linkset.
const (
	Generic           ExitCode = 1
	InvalidConfig     ExitCode = 2
	InputNotFound     ExitCode = 3
	DuplicateSymbol   ExitCode = 4
	UnresolvedSymbols ExitCode = 5
	DirectiveMismatch ExitCode = 6
	EntryPoint        ExitCode = 7
	MachineMismatch   ExitCode = 8
	CorruptInput      ExitCode = 9
	ManifestDrift     ExitCode = 10
)

// HasExitCode is an error with an attached exit code.
type HasExitCode interface {
	error
	ExitCode() ExitCode
}

// HasHint is an error with an attached human-readable suggestion.
type HasHint interface {
	error
	Hint() string
}

// WithExitCodeIfNone attaches exitCode to err unless err already carries one.
// A nil err stays nil.
func WithExitCodeIfNone(err error, exitCode ExitCode) error {
	if err == nil {
		return nil
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return err
	}
	return withExitCode{err, exitCode}
}

type withExitCode struct {
	error
	exitCode ExitCode
}

func (we withExitCode) Unwrap() error      { return we.error }
func (we withExitCode) ExitCode() ExitCode { return we.exitCode }

// WithHint attaches a hint to err. If err already had a hint, the result
// reads "new hint (old hint)".
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return withHint{err, hint}
}

type withHint struct {
	error
	hint string
}

func (wh withHint) Unwrap() error { return wh.error }

func (wh withHint) Hint() string {
	hint := wh.hint
	var old HasHint
	if errors.As(wh.error, &old) {
		hint = hint + " (" + old.Hint() + ")"
	}
	return hint
}

// Code returns the exit code carried by err, or Generic.
func Code(err error) ExitCode {
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return ecerr.ExitCode()
	}
	return Generic
}

// Format splits err into its message and a field map holding the hint, if any.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}
	fields := make(map[string]interface{})
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}
	return err.Error(), fields
}

var (
	_ HasExitCode = withExitCode{}
	_ HasHint     = withHint{}
)
