package config

import "fmt"

// Merge combines two configs where overlay takes precedence over base.
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - lists: concatenate (base first, then overlay)
//   - scalars: overlay wins when set
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Config{}
	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}
	result.Options = base.Options.Apply(overlay.Options)
	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d — all config layers must agree on version", base, overlay)
	}
	return nil
}
