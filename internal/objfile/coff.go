package objfile

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
)

const (
	symClassExternal     = 2
	symClassWeakExternal = 105

	sectionAbsolute = -1
)

// debug/pe reads a fixed 96-byte probe before looking at the header.
const peProbeSize = 96

// COFF reads COFF object files.
type COFF struct{}

func (COFF) Name() string { return "coff" }

// Match accepts a COFF file header with a known machine. Big-object and
// short import headers, which start with machine 0 and 0xFFFF, are refused.
func (COFF) Match(data []byte) bool {
	if len(data) < 20 {
		return false
	}
	machine := binary.LittleEndian.Uint16(data)
	switch machine {
	case 0x14c, 0x8664, 0x1c4, 0xaa64:
		return true
	case 0:
		return binary.LittleEndian.Uint16(data[2:]) != 0xFFFF
	}
	return false
}

// ParseObject extracts external symbols and the .drectve section.
func (COFF) ParseObject(name string, data []byte) (*Object, error) {
	buf := data
	if len(buf) < peProbeSize {
		buf = make([]byte, peProbeSize)
		copy(buf, data)
	}
	f, err := pe.NewFile(bytes.NewReader(buf))
	if err != nil {
		return nil, corruptf("coff", name, "%v", err)
	}
	defer f.Close()

	obj := &Object{Machine: f.FileHeader.Machine}
	for _, s := range f.Symbols {
		switch s.StorageClass {
		case symClassExternal:
			switch {
			case s.SectionNumber > 0 || s.SectionNumber == sectionAbsolute:
				obj.Symbols = append(obj.Symbols, Symbol{Name: s.Name, Binding: Strong})
			case s.SectionNumber == 0 && s.Value == 0:
				obj.Symbols = append(obj.Symbols, Symbol{Name: s.Name, Binding: Undefined})
			case s.SectionNumber == 0:
				// Common symbol: any real definition takes precedence.
				obj.Symbols = append(obj.Symbols, Symbol{Name: s.Name, Binding: Weak})
			}
		case symClassWeakExternal:
			obj.Symbols = append(obj.Symbols, Symbol{Name: s.Name, Binding: Weak})
		}
	}

	if sec := f.Section(".drectve"); sec != nil {
		d, err := sec.Data()
		if err != nil {
			return nil, corruptf("coff", name, "reading .drectve: %v", err)
		}
		obj.Directives = string(bytes.TrimRight(d, "\x00"))
		obj.HasDirectives = true
	}
	return obj, nil
}

// ShortImport reads the compact import objects stored in import libraries.
type ShortImport struct{}

func (ShortImport) Name() string { return "short-import" }

func (ShortImport) Match(data []byte) bool {
	return len(data) >= 20 &&
		binary.LittleEndian.Uint16(data) == 0 &&
		binary.LittleEndian.Uint16(data[2:]) == 0xFFFF
}

// ParseObject defines __imp_<symbol>, plus <symbol> itself for code imports.
func (ShortImport) ParseObject(name string, data []byte) (*Object, error) {
	if len(data) < 20 {
		return nil, corruptf("short-import", name, "truncated header")
	}
	machine := binary.LittleEndian.Uint16(data[6:])
	size := binary.LittleEndian.Uint32(data[12:])
	info := binary.LittleEndian.Uint16(data[18:])
	body := data[20:]
	if uint64(len(body)) < uint64(size) {
		return nil, corruptf("short-import", name, "data size %d exceeds member size %d", size, len(body))
	}
	body = body[:size]

	sym, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(sym) == 0 {
		return nil, corruptf("short-import", name, "missing symbol name")
	}
	dll, _, ok := bytes.Cut(rest, []byte{0})
	if !ok || len(dll) == 0 {
		return nil, corruptf("short-import", name, "missing DLL name")
	}

	imp := &Import{DLL: string(dll), Symbol: string(sym), Type: ImportType(info & 0x3)}
	if imp.Type > ImportConst {
		return nil, corruptf("short-import", name, "invalid import type %d", imp.Type)
	}
	obj := &Object{
		Machine: machine,
		Import:  imp,
		Symbols: []Symbol{{Name: "__imp_" + imp.Symbol, Binding: Strong}},
	}
	if imp.Type == ImportCode {
		obj.Symbols = append(obj.Symbols, Symbol{Name: imp.Symbol, Binding: Strong})
	}
	return obj, nil
}

func (i *Import) String() string {
	return fmt.Sprintf("%s!%s", i.DLL, i.Symbol)
}
