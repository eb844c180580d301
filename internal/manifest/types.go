// Package manifest records a resolved link closure as YAML so that a later
// run can be compared against it.
package manifest

// FileName is the default manifest file name.
const FileName = "linkset.manifest.yaml"

// Manifest is the on-disk record of one resolution.
type Manifest struct {
	Version    int        `yaml:"version"`
	Invocation Invocation `yaml:"invocation"`
	Machine    string     `yaml:"machine"`
	Subsystem  string     `yaml:"subsystem,omitempty"`
	Entry      string     `yaml:"entry,omitempty"`
	Inputs     []Input    `yaml:"inputs"`
	Exports    []Export   `yaml:"exports,omitempty"`
	Facts      []Fact     `yaml:"facts,omitempty"`
	Alternates []Alias    `yaml:"alternate_names,omitempty"`
	Unresolved []string   `yaml:"unresolved,omitempty"`
}

// Invocation is what is needed to run the resolution again.
type Invocation struct {
	Dir  string   `yaml:"dir"`
	Args []string `yaml:"args"`
}

// Input is one file of the closure, in the order it was added.
type Input struct {
	Path string `yaml:"path"`
	Kind string `yaml:"kind"`
	// Member and Offset locate archive members.
	Member string `yaml:"member,omitempty"`
	Offset int64  `yaml:"offset,omitempty"`
	// Import is "dll!symbol" for short import members.
	Import string `yaml:"import,omitempty"`
	// SHA256 is the content hash of objects and archives.
	SHA256 string `yaml:"sha256,omitempty"`
}

// Key identifies an input across manifests.
func (in Input) Key() string {
	if in.Member != "" {
		return in.Path + "(" + in.Member + ")"
	}
	return in.Path
}

// Export is an exported symbol with its assigned ordinal.
type Export struct {
	Name     string `yaml:"name"`
	Internal string `yaml:"internal,omitempty"`
	Forward  string `yaml:"forward,omitempty"`
	Ordinal  uint16 `yaml:"ordinal"`
	NoName   bool   `yaml:"noname,omitempty"`
	Data     bool   `yaml:"data,omitempty"`
	Private  bool   `yaml:"private,omitempty"`
}

// Fact is a /failifmismatch key/value pair and its first owner.
type Fact struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	File  string `yaml:"file"`
}

// Alias is an /alternatename mapping.
type Alias struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}
