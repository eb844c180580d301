package manifest

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/linkset/internal/sandbox"
)

// Load reads and validates a manifest.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if errs := Validate(&m); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &m, nil
}

// Save writes a manifest atomically to relPath inside root.
func Save(root, relPath string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := sandbox.SafeWrite(root, relPath, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", relPath, err)
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

var validKinds = map[string]bool{"object": true, "archive": true, "member": true, "import": true}

// Validate checks a Manifest for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(m *Manifest) []string {
	var errs []string

	if m.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", m.Version))
	}
	if m.Machine == "" {
		errs = append(errs, "'machine' is required")
	}

	seen := make(map[string]bool)
	for i, in := range m.Inputs {
		prefix := fmt.Sprintf("input[%d]", i)
		if in.Path == "" {
			errs = append(errs, fmt.Sprintf("%s: 'path' is required", prefix))
			continue
		}
		prefix = fmt.Sprintf("input '%s'", in.Key())
		if seen[in.Key()] {
			errs = append(errs, fmt.Sprintf("%s: listed twice", prefix))
		}
		seen[in.Key()] = true

		if !validKinds[in.Kind] {
			errs = append(errs, fmt.Sprintf("%s: invalid kind '%s' — must be one of: object, archive, member, import", prefix, in.Kind))
		}
		if in.Kind == "member" && in.Member == "" {
			errs = append(errs, fmt.Sprintf("%s: kind 'member' requires 'member'", prefix))
		}
	}

	ordinals := make(map[uint16]string)
	for _, e := range m.Exports {
		if e.Name == "" {
			errs = append(errs, "export: 'name' is required")
			continue
		}
		if other, ok := ordinals[e.Ordinal]; ok {
			errs = append(errs, fmt.Sprintf("export '%s': ordinal %d already used by '%s'", e.Name, e.Ordinal, other))
		}
		ordinals[e.Ordinal] = e.Name
	}

	return errs
}
