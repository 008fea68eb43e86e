package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "hello world", Normalize("  hello   world  "))
	require.Equal(t, "hello world", Normalize("hello\nworld"))
	require.Equal(t, "", Normalize("   "))
	require.Equal(t, "", Normalize(""))
	require.Equal(t, "one two three", Normalize("one\ttwo\n\nthree"))
}
