// Package objfiletest builds small COFF objects, short import objects and
// ar archives in memory for tests.
package objfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Default machine for objects built without an explicit one.
const MachineAMD64 = 0x8664

// Object describes a COFF object to build.
type Object struct {
	Machine    uint16
	Defines    []string
	Weak       []string
	Undefined  []string
	Common     []string
	Directives string
}

// Bytes serializes o as a relocatable COFF object with one .text section
// and, when Directives is set, a .drectve section.
func (o Object) Bytes() []byte {
	machine := o.Machine
	if machine == 0 {
		machine = MachineAMD64
	}

	type section struct {
		name  string
		data  []byte
		flags uint32
	}
	sections := []section{{name: ".text", data: []byte{0xC3}, flags: 0x60000020}}
	if o.Directives != "" {
		sections = append(sections, section{name: ".drectve", data: []byte(o.Directives), flags: 0x00000A00})
	}

	const fileHeaderSize, sectionHeaderSize, symbolSize = 20, 40, 18
	dataOff := uint32(fileHeaderSize + sectionHeaderSize*len(sections))
	offsets := make([]uint32, len(sections))
	for i, s := range sections {
		offsets[i] = dataOff
		dataOff += uint32(len(s.data))
	}
	symtabOff := dataOff

	var strtab bytes.Buffer
	var syms bytes.Buffer
	count := 0
	addSym := func(name string, value uint32, section int16, class uint8, aux int) {
		var raw [8]byte
		if len(name) <= 8 {
			copy(raw[:], name)
		} else {
			binary.LittleEndian.PutUint32(raw[4:], uint32(4+strtab.Len()))
			strtab.WriteString(name)
			strtab.WriteByte(0)
		}
		syms.Write(raw[:])
		_ = binary.Write(&syms, binary.LittleEndian, value)
		_ = binary.Write(&syms, binary.LittleEndian, section)
		_ = binary.Write(&syms, binary.LittleEndian, uint16(0x20))
		syms.WriteByte(class)
		syms.WriteByte(uint8(aux))
		count++
	}
	for _, name := range o.Defines {
		addSym(name, 0, 1, 2, 0)
	}
	for _, name := range o.Undefined {
		addSym(name, 0, 0, 2, 0)
	}
	for _, name := range o.Common {
		addSym(name, 8, 0, 2, 0)
	}
	for _, name := range o.Weak {
		addSym(name, 0, 0, 105, 1)
		// Aux record: tag index 0, search-alias characteristics.
		var aux [symbolSize]byte
		binary.LittleEndian.PutUint32(aux[4:], 3)
		syms.Write(aux[:])
		count++
	}

	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	le(machine)
	le(uint16(len(sections)))
	le(uint32(0))
	le(symtabOff)
	le(uint32(count))
	le(uint16(0))
	le(uint16(0))
	for i, s := range sections {
		var name [8]byte
		copy(name[:], s.name)
		b.Write(name[:])
		le(uint32(0))
		le(uint32(0))
		le(uint32(len(s.data)))
		le(offsets[i])
		le(uint32(0))
		le(uint32(0))
		le(uint16(0))
		le(uint16(0))
		le(s.flags)
	}
	for _, s := range sections {
		b.Write(s.data)
	}
	b.Write(syms.Bytes())
	le(uint32(4 + strtab.Len()))
	b.Write(strtab.Bytes())
	return b.Bytes()
}

// Import types for short import objects.
const (
	ImportCode = 0
	ImportData = 1
)

// ShortImport serializes a short import object for symbol from dll.
func ShortImport(machine uint16, symbol, dll string, importType uint16) []byte {
	if machine == 0 {
		machine = MachineAMD64
	}
	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	le(uint16(0))
	le(uint16(0xFFFF))
	le(uint16(0))
	le(machine)
	le(uint32(0))
	le(uint32(len(symbol) + 1 + len(dll) + 1))
	le(uint16(0))
	// Name type 1 (ordinal-less, name as given) in bits 2-4.
	le(importType&0x3 | 1<<2)
	b.WriteString(symbol)
	b.WriteByte(0)
	b.WriteString(dll)
	b.WriteByte(0)
	return b.Bytes()
}

// Member is one archive member.
type Member struct {
	Name string
	Data []byte
	// Symbols lists the index entries pointing at this member.
	Symbols []string
}

// ObjectMember builds a member holding o, indexing every symbol o defines.
func ObjectMember(name string, o Object) Member {
	syms := append(append(append([]string{}, o.Defines...), o.Weak...), o.Common...)
	return Member{Name: name, Data: o.Bytes(), Symbols: syms}
}

// ImportMember builds a member holding a code short import for symbol.
func ImportMember(name, symbol, dll string) Member {
	return Member{
		Name:    name,
		Data:    ShortImport(MachineAMD64, symbol, dll, ImportCode),
		Symbols: []string{"__imp_" + symbol, symbol},
	}
}

// Archive serializes members as an ar archive with a first linker member
// and, for names over 15 bytes, a long-names member.
func Archive(members ...Member) []byte {
	return archive(true, members)
}

// ArchiveWithoutIndex serializes members with no linker member.
func ArchiveWithoutIndex(members ...Member) []byte {
	return archive(false, members)
}

func archive(withIndex bool, members []Member) []byte {
	var longNames bytes.Buffer
	headerNames := make([]string, len(members))
	for i, m := range members {
		if len(m.Name) > 15 {
			headerNames[i] = fmt.Sprintf("/%d", longNames.Len())
			longNames.WriteString(m.Name)
			longNames.WriteString("/\n")
		} else {
			headerNames[i] = m.Name + "/"
		}
	}

	type entry struct {
		name   string
		member int
	}
	var entries []entry
	var symtab []byte
	if withIndex {
		for i, m := range members {
			for _, s := range m.Symbols {
				entries = append(entries, entry{s, i})
			}
		}
		size := 4 + 4*len(entries)
		for _, e := range entries {
			size += len(e.name) + 1
		}
		symtab = make([]byte, size)
	}

	pad := func(n int) int { return n + n%2 }
	off := 8
	if withIndex {
		off += 60 + pad(len(symtab))
	}
	if longNames.Len() > 0 {
		off += 60 + pad(longNames.Len())
	}
	memberOffsets := make([]int, len(members))
	for i, m := range members {
		memberOffsets[i] = off
		off += 60 + pad(len(m.Data))
	}

	if withIndex {
		binary.BigEndian.PutUint32(symtab, uint32(len(entries)))
		p := 4
		for _, e := range entries {
			binary.BigEndian.PutUint32(symtab[p:], uint32(memberOffsets[e.member]))
			p += 4
		}
		for _, e := range entries {
			p += copy(symtab[p:], e.name)
			symtab[p] = 0
			p++
		}
	}

	var b bytes.Buffer
	b.WriteString("!<arch>\n")
	if withIndex {
		writeMember(&b, "/", symtab)
	}
	if longNames.Len() > 0 {
		writeMember(&b, "//", longNames.Bytes())
	}
	for i, m := range members {
		writeMember(&b, headerNames[i], m.Data)
	}
	return b.Bytes()
}

func writeMember(b *bytes.Buffer, name string, data []byte) {
	fmt.Fprintf(b, "%-16s%-12d%-6d%-6d%-8o%-10d`\n", name, 0, 0, 0, 0o644, len(data))
	b.Write(data)
	if len(data)%2 == 1 {
		b.WriteByte('\n')
	}
}
