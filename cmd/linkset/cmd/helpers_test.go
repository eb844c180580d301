package cmd

import (
	"bytes"
	"testing"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
		{2684354560, "2.5 GB"},
	}

	for _, tt := range tests {
		got := humanSize(tt.bytes)
		if got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestPrinters(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldQuiet, oldVerbose := stdout, quiet, verbose
	defer func() { stdout, quiet, verbose = oldOut, oldQuiet, oldVerbose }()
	stdout = &buf

	quiet, verbose = true, false
	info("hidden")
	detail("hidden")
	output("shown")
	if got := buf.String(); got != "shown\n" {
		t.Errorf("quiet output = %q", got)
	}

	buf.Reset()
	quiet, verbose = false, true
	info("a %d", 1)
	detail("b")
	if got := buf.String(); got != "a 1\n  b\n" {
		t.Errorf("verbose output = %q", got)
	}
}
