package entry

import (
	"fmt"
	"strconv"
	"strings"
)

// Subsystem is the PE subsystem of the produced image.
type Subsystem int

const (
	SubsystemUnknown Subsystem = iota
	SubsystemConsole
	SubsystemWindows
	SubsystemNative
	SubsystemPosix
	SubsystemEFIApplication
	SubsystemEFIBootServiceDriver
	SubsystemEFIROM
	SubsystemEFIRuntimeDriver
	SubsystemBootApplication
)

var subsystemNames = map[Subsystem]string{
	SubsystemUnknown:              "unknown",
	SubsystemConsole:              "console",
	SubsystemWindows:              "windows",
	SubsystemNative:               "native",
	SubsystemPosix:                "posix",
	SubsystemEFIApplication:       "efi_application",
	SubsystemEFIBootServiceDriver: "efi_boot_service_driver",
	SubsystemEFIROM:               "efi_rom",
	SubsystemEFIRuntimeDriver:     "efi_runtime_driver",
	SubsystemBootApplication:      "boot_application",
}

func (s Subsystem) String() string {
	if n, ok := subsystemNames[s]; ok {
		return n
	}
	return "subsystem(" + strconv.Itoa(int(s)) + ")"
}

// Version is an optional "major.minor" subsystem version.
type Version struct {
	Major, Minor uint32
}

// ParseSubsystem parses a /subsystem argument: name[,major[.minor]].
// The empty string yields SubsystemUnknown.
func ParseSubsystem(arg string) (Subsystem, *Version, error) {
	name, ver, hasVer := strings.Cut(arg, ",")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" && !hasVer {
		return SubsystemUnknown, nil, nil
	}
	sub := SubsystemUnknown
	for s, n := range subsystemNames {
		if n == name && s != SubsystemUnknown {
			sub = s
			break
		}
	}
	if sub == SubsystemUnknown {
		return sub, nil, fmt.Errorf("unknown subsystem: %s", arg)
	}
	if !hasVer {
		return sub, nil, nil
	}
	major, minor, _ := strings.Cut(ver, ".")
	v := &Version{}
	n, err := strconv.ParseUint(major, 10, 32)
	if err != nil {
		return sub, nil, fmt.Errorf("invalid subsystem version: %s", arg)
	}
	v.Major = uint32(n)
	if minor != "" {
		n, err = strconv.ParseUint(minor, 10, 32)
		if err != nil {
			return sub, nil, fmt.Errorf("invalid subsystem version: %s", arg)
		}
		v.Minor = uint32(n)
	}
	return sub, v, nil
}
