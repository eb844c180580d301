package manifest

import (
	"fmt"
	"strings"
)

// Change is one field that differs between two manifests.
type Change struct {
	Field    string
	Expected string
	Actual   string
}

// Diff is the drift of a fresh resolution from a recorded manifest.
type Diff struct {
	Changes []Change
	// Missing inputs were recorded but are no longer part of the closure.
	Missing []string
	// Added inputs are new to the closure.
	Added []string
}

// Clean reports whether nothing drifted.
func (d *Diff) Clean() bool {
	return len(d.Changes) == 0 && len(d.Missing) == 0 && len(d.Added) == 0
}

// Len is the number of differences.
func (d *Diff) Len() int {
	return len(d.Changes) + len(d.Missing) + len(d.Added)
}

// Compare reports how got differs from the recorded want.
func Compare(want, got *Manifest) *Diff {
	d := &Diff{}
	scalar := func(field, w, g string) {
		if w != g {
			d.Changes = append(d.Changes, Change{Field: field, Expected: w, Actual: g})
		}
	}
	scalar("machine", want.Machine, got.Machine)
	scalar("subsystem", want.Subsystem, got.Subsystem)
	scalar("entry", want.Entry, got.Entry)

	gotInputs := make(map[string]Input, len(got.Inputs))
	for _, in := range got.Inputs {
		gotInputs[in.Key()] = in
	}
	wantInputs := make(map[string]bool, len(want.Inputs))
	var wantOrder []string
	for _, w := range want.Inputs {
		key := w.Key()
		wantInputs[key] = true
		g, ok := gotInputs[key]
		if !ok {
			d.Missing = append(d.Missing, key)
			continue
		}
		wantOrder = append(wantOrder, key)
		scalar("input "+key+" kind", w.Kind, g.Kind)
		scalar("input "+key+" sha256", w.SHA256, g.SHA256)
		if w.Member != "" {
			scalar("input "+key+" offset", fmt.Sprint(w.Offset), fmt.Sprint(g.Offset))
		}
	}
	var gotOrder []string
	for _, g := range got.Inputs {
		key := g.Key()
		if !wantInputs[key] {
			d.Added = append(d.Added, key)
			continue
		}
		gotOrder = append(gotOrder, key)
	}
	// Order only matters among the inputs both sides have.
	if strings.Join(wantOrder, "\n") != strings.Join(gotOrder, "\n") {
		d.Changes = append(d.Changes, Change{
			Field:    "input order",
			Expected: strings.Join(wantOrder, ", "),
			Actual:   strings.Join(gotOrder, ", "),
		})
	}

	scalar("exports", formatExports(want.Exports), formatExports(got.Exports))
	scalar("facts", formatFacts(want.Facts), formatFacts(got.Facts))
	scalar("unresolved", strings.Join(want.Unresolved, ", "), strings.Join(got.Unresolved, ", "))
	return d
}

func formatExports(es []Export) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = fmt.Sprintf("%s@%d", e.Name, e.Ordinal)
	}
	return strings.Join(parts, ", ")
}

func formatFacts(fs []Fact) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.Key + "=" + f.Value
	}
	return strings.Join(parts, ", ")
}
