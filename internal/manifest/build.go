package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/spf13/afero"

	"github.com/bianoble/linkset/internal/engine"
	"github.com/bianoble/linkset/internal/entry"
)

// FromClosure records c. Objects and archives are hashed from fs.
func FromClosure(fs afero.Fs, c *engine.Closure, inv Invocation) (*Manifest, error) {
	m := &Manifest{
		Version:    1,
		Invocation: inv,
		Machine:    c.Machine.String(),
		Entry:      c.Entry,
		Unresolved: c.Unresolved,
	}
	if c.Subsystem != entry.SubsystemUnknown {
		m.Subsystem = c.Subsystem.String()
	}

	hashes := make(map[string]string)
	for _, f := range c.Inputs {
		in := Input{
			Path:   f.Path,
			Kind:   f.Kind.String(),
			Member: f.Member,
		}
		if f.Member != "" {
			in.Offset = f.Offset
		}
		if f.Import != nil {
			in.Import = f.Import.String()
		}
		if f.Member == "" {
			sum, ok := hashes[f.Path]
			if !ok {
				data, err := afero.ReadFile(fs, f.Path)
				if err != nil {
					return nil, fmt.Errorf("hashing %s: %w", f.Path, err)
				}
				sum = sha256Hex(data)
				hashes[f.Path] = sum
			}
			in.SHA256 = sum
		}
		m.Inputs = append(m.Inputs, in)
	}

	for _, e := range c.Exports {
		m.Exports = append(m.Exports, Export{
			Name:     e.Name,
			Internal: e.Internal,
			Forward:  e.ForwardTo,
			Ordinal:  e.Ordinal,
			NoName:   e.NoName,
			Data:     e.Data,
			Private:  e.Private,
		})
	}
	for _, f := range c.Facts {
		m.Facts = append(m.Facts, Fact(f))
	}
	for _, a := range c.Alternates {
		m.Alternates = append(m.Alternates, Alias{From: a.From, To: a.To})
	}
	return m, nil
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
