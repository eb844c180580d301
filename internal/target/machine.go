// Package target describes the machines a link can target and their
// symbol decoration conventions.
package target

import (
	"fmt"
	"sort"
	"strings"
)

// COFF machine numbers.
const (
	MachineUnknown uint16 = 0x0
	MachineI386    uint16 = 0x14c
	MachineAMD64   uint16 = 0x8664
	MachineARMNT   uint16 = 0x1c4
	MachineARM64   uint16 = 0xaa64
)

// Machine is a link target.
type Machine struct {
	Name string
	COFF uint16
	// LibDir is the architecture directory name used by SDK layouts.
	LibDir string
	// Prefix is prepended to C symbol names (the decoration convention).
	Prefix string
}

// Unknown is the zero machine, used until an input or the config fixes one.
var Unknown = Machine{Name: "unknown"}

// builtinMachines maps accepted spellings to machines.
var builtinMachines = map[string]Machine{
	"x86":   {Name: "x86", COFF: MachineI386, LibDir: "x86", Prefix: "_"},
	"x64":   {Name: "x64", COFF: MachineAMD64, LibDir: "x64"},
	"arm":   {Name: "arm", COFF: MachineARMNT, LibDir: "arm"},
	"arm64": {Name: "arm64", COFF: MachineARM64, LibDir: "arm64"},
}

var aliases = map[string]string{
	"i386":    "x86",
	"amd64":   "x64",
	"x86_64":  "x64",
	"armnt":   "arm",
	"aarch64": "arm64",
}

// Lookup returns the machine named name (case-insensitive).
func Lookup(name string) (Machine, error) {
	n := strings.ToLower(name)
	if a, ok := aliases[n]; ok {
		n = a
	}
	m, ok := builtinMachines[n]
	if !ok {
		return Unknown, fmt.Errorf("unknown machine '%s' — must be one of: %s", name, strings.Join(Names(), ", "))
	}
	return m, nil
}

// FromCOFF returns the machine for a COFF header machine number.
// Unrecognized numbers yield Unknown.
func FromCOFF(id uint16) Machine {
	for _, m := range builtinMachines {
		if m.COFF == id {
			return m
		}
	}
	return Unknown
}

// Names returns the canonical machine names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtinMachines))
	for n := range builtinMachines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsUnknown reports whether m has not been determined.
func (m Machine) IsUnknown() bool {
	return m.COFF == MachineUnknown
}

// Mangle applies the machine's decoration to a C symbol name. C++ names,
// which start with '?', are already decorated.
func (m Machine) Mangle(name string) string {
	if m.Prefix == "" || strings.HasPrefix(name, "?") {
		return name
	}
	return m.Prefix + name
}

func (m Machine) String() string {
	return m.Name
}
