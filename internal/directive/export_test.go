package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg  string
		want Export
	}{
		{"foo", Export{Name: "foo"}},
		{"foo=bar", Export{Name: "foo", Internal: "bar"}},
		{"foo=kernel32.Sleep", Export{Name: "foo", ForwardTo: "kernel32.Sleep"}},
		{"foo,@3", Export{Name: "foo", Ordinal: 3}},
		{"foo,@0x10,NONAME", Export{Name: "foo", Ordinal: 16, NoName: true}},
		{"foo,DATA", Export{Name: "foo", Data: true}},
		{"foo,private,constant", Export{Name: "foo", Private: true, Constant: true}},
	}
	for _, tt := range tests {
		got, err := ParseExport(tt.arg)
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}
}

func TestParseExportErrors(t *testing.T) {
	t.Parallel()

	for _, arg := range []string{"", ",DATA", "=x", "foo,NONAME", "foo,@0", "foo,@70000", "foo,@x", "foo,BOGUS"} {
		_, err := ParseExport(arg)
		assert.Error(t, err, arg)
	}
}

func TestExportSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "foo", Export{Name: "foo"}.Symbol())
	assert.Equal(t, "bar", Export{Name: "foo", Internal: "bar"}.Symbol())
	assert.Empty(t, Export{Name: "foo", ForwardTo: "k.Sleep"}.Symbol())
}
