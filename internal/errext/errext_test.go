package errext

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExitCodeIfNone(t *testing.T) {
	t.Parallel()

	assert.Nil(t, WithExitCodeIfNone(nil, InputNotFound))

	base := errors.New("boom")
	err := WithExitCodeIfNone(base, InputNotFound)
	assert.Equal(t, InputNotFound, Code(err))
	assert.ErrorIs(t, err, base)

	// An existing code is kept even through further wrapping.
	wrapped := fmt.Errorf("outer: %w", err)
	again := WithExitCodeIfNone(wrapped, Generic)
	assert.Equal(t, InputNotFound, Code(again))
}

func TestCodeDefaultsToGeneric(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Generic, Code(errors.New("plain")))
}

func TestWithHintChains(t *testing.T) {
	t.Parallel()

	err := WithHint(WithHint(errors.New("missing"), "check LIB"), "pass --libpath")
	var herr HasHint
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "pass --libpath (check LIB)", herr.Hint())

	msg, fields := Format(err)
	assert.Equal(t, "missing", msg)
	assert.Equal(t, "pass --libpath (check LIB)", fields["hint"])
}
