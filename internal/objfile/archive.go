package objfile

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
)

const (
	arMagic      = "!<arch>\n"
	arHeaderSize = 60
)

// IndexEntry maps a symbol to the offset of the member header defining it.
type IndexEntry struct {
	Name   string `yaml:"name"`
	Offset int64  `yaml:"offset"`
}

// Index is an archive symbol index in file order.
type Index struct {
	Entries []IndexEntry `yaml:"entries"`
	Members []int64      `yaml:"members"`
}

// Archive is a parsed ar archive. Member bytes are sliced out of the
// archive data on demand.
type Archive struct {
	Name  string
	Index *Index

	data      []byte
	longNames []byte
}

// Ar reads ar archives carrying a GNU/COFF linker member.
type Ar struct{}

func (Ar) Name() string { return "ar" }

func (Ar) Match(data []byte) bool {
	return bytes.HasPrefix(data, []byte(arMagic))
}

// ParseArchive parses the index of an archive.
func (Ar) ParseArchive(name string, data []byte) (*Archive, error) {
	return ParseArchive(name, data)
}

// ParseArchive reads the member table and first linker member of data.
func ParseArchive(name string, data []byte) (*Archive, error) {
	idx, longNames, err := readIndex(name, data)
	if err != nil {
		return nil, err
	}
	return &Archive{Name: name, Index: idx, data: data, longNames: longNames}, nil
}

// NewArchive rebuilds an archive around a previously computed index,
// skipping the index scan.
func NewArchive(name string, data []byte, idx *Index) (*Archive, error) {
	if !bytes.HasPrefix(data, []byte(arMagic)) {
		return nil, corruptf("ar", name, "bad magic")
	}
	a := &Archive{Name: name, Index: idx, data: data}
	// The long-names member, when present, follows the linker members.
	for off := int64(len(arMagic)); off < int64(len(data)); {
		h, err := readHeader(name, data, off)
		if err != nil {
			return nil, err
		}
		if h.name == "//" {
			a.longNames = h.body
			break
		}
		if h.name != "/" && h.name != "/SYM64/" {
			break
		}
		off = h.next
	}
	return a, nil
}

type arHeader struct {
	name string
	body []byte
	next int64
}

func readHeader(name string, data []byte, off int64) (arHeader, error) {
	if off+arHeaderSize > int64(len(data)) {
		return arHeader{}, corruptf("ar", name, "truncated member header at offset %d", off)
	}
	hdr := data[off : off+arHeaderSize]
	if hdr[58] != '`' || hdr[59] != '\n' {
		return arHeader{}, corruptf("ar", name, "bad member header terminator at offset %d", off)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(string(hdr[48:58])), 10, 64)
	if err != nil || size < 0 {
		return arHeader{}, corruptf("ar", name, "bad member size at offset %d", off)
	}
	start := off + arHeaderSize
	end := start + size
	if end > int64(len(data)) {
		return arHeader{}, corruptf("ar", name, "member at offset %d overruns archive", off)
	}
	next := end
	if next%2 == 1 {
		next++
	}
	return arHeader{
		name: strings.TrimRight(string(hdr[:16]), " "),
		body: data[start:end],
		next: next,
	}, nil
}

func readIndex(name string, data []byte) (*Index, []byte, error) {
	if !bytes.HasPrefix(data, []byte(arMagic)) {
		return nil, nil, corruptf("ar", name, "bad magic")
	}
	idx := &Index{}
	var symtab []byte
	var sym64 bool
	var longNames []byte
	for off := int64(len(arMagic)); off < int64(len(data)); {
		h, err := readHeader(name, data, off)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case h.name == "/" && symtab == nil:
			symtab = h.body
		case h.name == "/SYM64/" && symtab == nil:
			symtab, sym64 = h.body, true
		case h.name == "/":
			// Second linker member, redundant with the first.
		case h.name == "//":
			longNames = h.body
		default:
			idx.Members = append(idx.Members, off)
		}
		off = h.next
	}
	if symtab == nil {
		return nil, nil, corruptf("ar", name, "archive has no symbol index")
	}
	if err := decodeSymtab(name, symtab, sym64, idx); err != nil {
		return nil, nil, err
	}
	return idx, longNames, nil
}

func decodeSymtab(name string, b []byte, sym64 bool, idx *Index) error {
	width := 4
	if sym64 {
		width = 8
	}
	readN := func(p []byte) uint64 {
		if sym64 {
			return binary.BigEndian.Uint64(p)
		}
		return uint64(binary.BigEndian.Uint32(p))
	}
	if len(b) < width {
		return corruptf("ar", name, "truncated symbol index")
	}
	n := readN(b)
	if n > uint64((len(b)-width)/width) {
		return corruptf("ar", name, "symbol index count %d too large", n)
	}
	offsets := b[width : width+int(n)*width]
	names := b[width+int(n)*width:]
	idx.Entries = make([]IndexEntry, 0, n)
	for i := 0; i < int(n); i++ {
		sym, rest, ok := bytes.Cut(names, []byte{0})
		if !ok {
			return corruptf("ar", name, "symbol index names truncated at entry %d", i)
		}
		names = rest
		idx.Entries = append(idx.Entries, IndexEntry{
			Name:   string(sym),
			Offset: int64(readN(offsets[i*width:])),
		})
	}
	return nil
}

// Member returns the name and bytes of the member whose header starts at off.
func (a *Archive) Member(off int64) (string, []byte, error) {
	if off < int64(len(arMagic)) {
		return "", nil, corruptf("ar", a.Name, "member offset %d inside archive magic", off)
	}
	h, err := readHeader(a.Name, a.data, off)
	if err != nil {
		return "", nil, err
	}
	return a.memberName(h.name), h.body, nil
}

func (a *Archive) memberName(raw string) string {
	if len(raw) > 1 && raw[0] == '/' {
		if n, err := strconv.Atoi(raw[1:]); err == nil && n >= 0 && n < len(a.longNames) {
			s := a.longNames[n:]
			if i := bytes.IndexAny(s, "/\n"); i >= 0 {
				s = s[:i]
			}
			return string(s)
		}
	}
	return strings.TrimSuffix(raw, "/")
}

// MemberLabel formats the conventional archive(member) display name.
func MemberLabel(archive, member string) string {
	return archive + "(" + member + ")"
}
