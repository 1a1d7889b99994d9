package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupUnknownLanguage(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("brainfuck", "")
	require.Error(t, err)
	assert.IsType(t, ErrUnsupportedLanguage{}, err)
}

func TestLookupDefaultsToHighestVersion(t *testing.T) {
	r := NewRegistry()
	lang, err := r.Lookup("python", "")
	require.NoError(t, err)
	assert.Equal(t, "3.11.0", lang.Variant.String())
}

func TestLookupRespectsConstraint(t *testing.T) {
	r := NewRegistry()
	lang, err := r.Lookup("python", "<3.10")
	require.NoError(t, err)
	assert.Equal(t, "3.8.16", lang.Variant.String())
}

func TestLookupNoMatchingVariant(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("python", ">=4.0")
	require.Error(t, err)
	assert.IsType(t, ErrNoMatchingVariant{}, err)
}

func TestCompiledLanguageHasCompileArgv(t *testing.T) {
	r := NewRegistry()
	cpp, err := r.Lookup("cpp", "")
	require.NoError(t, err)
	assert.True(t, cpp.IsCompiled())

	py, err := r.Lookup("python", "")
	require.NoError(t, err)
	assert.False(t, py.IsCompiled())
}
