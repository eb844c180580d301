package symtab

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bianoble/linkset/internal/directive"
)

// ErrOrdinal is matched by export ordinal conflicts.
var ErrOrdinal = errors.New("export ordinal conflict")

// Exports collects export requests, first request for a name wins.
type Exports struct {
	byName map[string]int
	list   []directive.Export
}

// Add records e. A repeat of an already exported name is dropped and
// reported through dup; warn is set unless both requests came from
// directive sections, which routinely repeat themselves.
func (x *Exports) Add(e directive.Export) (dup, warn bool) {
	if x.byName == nil {
		x.byName = make(map[string]int)
	}
	if i, ok := x.byName[e.Name]; ok {
		return true, !(x.list[i].FromDirective && e.FromDirective)
	}
	x.byName[e.Name] = len(x.list)
	x.list = append(x.list, e)
	return false, false
}

// Len returns the number of distinct exports.
func (x *Exports) Len() int { return len(x.list) }

// List returns the exports in request order.
func (x *Exports) List() []directive.Export { return x.list }

// AssignOrdinals returns the exports sorted by name with every ordinal
// filled in: explicit ordinals are kept and the rest are numbered from the
// highest explicit ordinal plus one, in name order. Two exports sharing an
// explicit ordinal, or more exports than ordinals above the highest one,
// yield an ErrOrdinal error; exports left without an ordinal keep 0.
func (x *Exports) AssignOrdinals() ([]directive.Export, error) {
	out := make([]directive.Export, len(x.list))
	copy(out, x.list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	var errs []error
	owner := make(map[uint16]string)
	var highest uint16
	for _, e := range out {
		if e.Ordinal == 0 {
			continue
		}
		if prev, ok := owner[e.Ordinal]; ok {
			errs = append(errs, fmt.Errorf("%w: @%d used by both %s and %s", ErrOrdinal, e.Ordinal, prev, e.Name))
			continue
		}
		owner[e.Ordinal] = e.Name
		if e.Ordinal > highest {
			highest = e.Ordinal
		}
	}

	next := int(highest)
	left := 0
	for i := range out {
		if out[i].Ordinal != 0 {
			continue
		}
		if next >= math.MaxUint16 {
			left++
			continue
		}
		next++
		out[i].Ordinal = uint16(next)
	}
	if left > 0 {
		errs = append(errs, fmt.Errorf("%w: no ordinal above @%d left for %d export(s)", ErrOrdinal, highest, left))
	}
	return out, errors.Join(errs...)
}
