package symtab

// Alternate is an /alternatename mapping.
type Alternate struct {
	From string
	To   string
	File string
}

// AddAlternate records that an undefined from may be satisfied by to.
// Redefining from to a different target is a mismatch.
func (t *Table) AddAlternate(from, to, file string) error {
	if t.alts == nil {
		t.alts = make(map[string]int)
	}
	k := t.key(from)
	if i, ok := t.alts[k]; ok {
		prev := t.altList[i]
		if t.key(prev.To) != t.key(to) {
			return &MismatchError{
				Kind:   "/alternatename",
				First:  Fact{Key: from, Value: prev.To, File: prev.File},
				Second: Fact{Key: from, Value: to, File: file},
			}
		}
		return nil
	}
	t.alts[k] = len(t.altList)
	t.altList = append(t.altList, Alternate{From: from, To: to, File: file})
	return nil
}

// Alternates returns the recorded mappings in first-seen order.
func (t *Table) Alternates() []Alternate { return t.altList }

// PendingAlternates returns the targets of alternate names whose source is
// still referenced and undefined and whose target is not yet defined. The
// caller references each target so archives can supply it.
func (t *Table) PendingAlternates() []string {
	var out []string
	for _, a := range t.altList {
		s := t.Lookup(a.From)
		if s == nil || !s.Referenced || s.State == Defined {
			continue
		}
		if dst := t.Lookup(a.To); dst != nil && dst.Referenced {
			continue
		}
		out = append(out, a.To)
	}
	return out
}

// ResolveAlternates defines every undefined source whose target is
// defined, following chains of alternate names. It returns the number of
// symbols satisfied.
func (t *Table) ResolveAlternates() int {
	n := 0
	for changed := true; changed; {
		changed = false
		for _, a := range t.altList {
			s := t.Lookup(a.From)
			if s == nil || s.State == Defined {
				continue
			}
			dst := t.Lookup(a.To)
			if dst == nil || dst.State != Defined {
				continue
			}
			s.State = Defined
			s.Member = MemberRef{}
			s.File = dst.File
			s.Weak = true
			s.Alias = dst.Name
			changed = true
			n++
		}
	}
	return n
}
