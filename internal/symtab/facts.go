package symtab

import (
	"errors"
	"fmt"
)

// ErrMismatch is the kind of every inconsistent directive fact.
var ErrMismatch = errors.New("directive mismatch")

// Fact is one key=value pair asserted by an input file.
type Fact struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	File  string `yaml:"file"`
}

// MismatchError reports two files asserting different values for a key.
type MismatchError struct {
	Kind   string
	First  Fact
	Second Fact
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s mismatch for '%s':\n>>> %s has value %s\n>>> %s has value %s",
		e.Kind, e.First.Key, e.First.File, e.First.Value, e.Second.File, e.Second.Value)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Facts holds the /failifmismatch assertions seen so far. The first value
// recorded for a key is authoritative.
type Facts struct {
	byKey map[string]int
	list  []Fact
}

// Add records f, failing when an earlier fact for f.Key disagrees.
func (fs *Facts) Add(f Fact) error {
	if fs.byKey == nil {
		fs.byKey = make(map[string]int)
	}
	if i, ok := fs.byKey[f.Key]; ok {
		if fs.list[i].Value != f.Value {
			return &MismatchError{Kind: "/failifmismatch", First: fs.list[i], Second: f}
		}
		return nil
	}
	fs.byKey[f.Key] = len(fs.list)
	fs.list = append(fs.list, f)
	return nil
}

// List returns the distinct facts in first-seen order.
func (fs *Facts) List() []Fact { return fs.list }
