package config

import (
	"path/filepath"
	"runtime"
	"testing"
)

func levels(layers []ConfigLayerInfo) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = string(l.Level)
	}
	return out
}

func TestDiscoverPaths(t *testing.T) {
	project, err := filepath.Abs(FileName)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts DiscoverOptions
		want []string
	}{
		{
			name: "all levels in precedence order",
			opts: DiscoverOptions{
				ProjectPath:      project,
				SystemConfigPath: "/etc/linkset/linkset.yaml",
				UserConfigPath:   "/home/u/.config/linkset/linkset.yaml",
			},
			want: []string{"system", "user", "project"},
		},
		{
			// the first spelling of a file keeps its level
			name: "project shared with system",
			opts: DiscoverOptions{
				ProjectPath:      project,
				SystemConfigPath: project,
				UserConfigPath:   "/home/u/.config/linkset/linkset.yaml",
			},
			want: []string{"system", "user"},
		},
		{
			name: "relative spelling of the same file",
			opts: DiscoverOptions{
				ProjectPath:      FileName,
				SystemConfigPath: "/etc/linkset/linkset.yaml",
				UserConfigPath:   project,
			},
			want: []string{"system", "user"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levels(DiscoverPaths(tt.opts))
			if !equalStrings(got, tt.want) {
				t.Errorf("levels = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscoverPathsProjectIsLast(t *testing.T) {
	layers := DiscoverPaths(DiscoverOptions{ProjectPath: "/w/linkset.yaml"})
	if len(layers) == 0 {
		t.Fatal("no layers")
	}
	last := layers[len(layers)-1]
	if last.Level != LevelProject || last.Path != "/w/linkset.yaml" {
		t.Errorf("last layer = %+v", last)
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	sys := defaultSystemConfigPath()
	if filepath.Base(sys) != FileName || filepath.Base(filepath.Dir(sys)) != configDirName {
		t.Errorf("system path = %q", sys)
	}
	if runtime.GOOS != "windows" && sys != "/etc/linkset/linkset.yaml" {
		t.Errorf("system path = %q", sys)
	}

	user := defaultUserConfigPath()
	if user == "" {
		t.Skip("no user config directory")
	}
	if !filepath.IsAbs(user) || filepath.Base(user) != FileName {
		t.Errorf("user path = %q", user)
	}
}
