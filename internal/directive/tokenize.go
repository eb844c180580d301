package directive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is the kind of every error produced while tokenizing or
// parsing a directive section.
var ErrMalformed = errors.New("malformed directive")

// MalformedError describes the first token that could not be parsed.
type MalformedError struct {
	Offset int
	Token  string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s at offset %d: %s", ErrMalformed, e.Offset, e.Reason)
	}
	return fmt.Sprintf("%s at offset %d (%q): %s", ErrMalformed, e.Offset, e.Token, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// Tokenize splits s using Windows command-line rules: whitespace separates
// arguments, double quotes group, 2n backslashes before a quote yield n
// backslashes and a quote toggle, 2n+1 yield n backslashes and a literal
// quote, and "" inside quotes is a literal quote.
//
// Tokens without quotes are returned as substrings of s. On an unterminated
// quote the tokens completed so far are returned with a *MalformedError.
func Tokenize(s string) ([]string, error) {
	var tokens []string
	err := scan(s, func(tok string, _ int) { tokens = append(tokens, tok) })
	return tokens, err
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == 0
}

// scan calls emit for every token of s, with its byte offset, in order.
func scan(s string, emit func(string, int)) error {
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		start := i
		for i < len(s) && !isSpace(s[i]) && s[i] != '"' {
			i++
		}
		if i >= len(s) || isSpace(s[i]) {
			emit(s[start:i], start)
			continue
		}
		tok, next, err := scanQuoted(s, start)
		if err != nil {
			return err
		}
		emit(tok, start)
		i = next
	}
	return nil
}

// scanQuoted decodes the token starting at start, which contains at least
// one quote, and returns it with the offset following it.
func scanQuoted(s string, start int) (string, int, error) {
	var b strings.Builder
	quoted := false
	i := start
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\':
			n := 0
			for i < len(s) && s[i] == '\\' {
				n++
				i++
			}
			if i < len(s) && s[i] == '"' {
				b.WriteString(strings.Repeat(`\`, n/2))
				if n%2 == 1 {
					b.WriteByte('"')
					i++
				}
				continue
			}
			b.WriteString(strings.Repeat(`\`, n))
		case c == '"':
			if quoted && i+1 < len(s) && s[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			quoted = !quoted
			i++
		case !quoted && isSpace(c):
			return b.String(), i, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	if quoted {
		return "", i, &MalformedError{Offset: start, Token: s[start:], Reason: "unterminated quote"}
	}
	return b.String(), i, nil
}
