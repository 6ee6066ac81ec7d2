package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryLookupIgnoresCaseAndWhitespace(t *testing.T) {
	table := DefaultCountryTable()
	cases := map[string]string{
		"Netherlands":        "NL",
		"  netherlands ":     "NL",
		"NETHERLANDS":        "NL",
		"United Kingdom":     "GB",
		"united   kingdom":   "GB",
		"\tUnited Kingdom\n": "GB",
	}
	for in, want := range cases {
		got, ok := table.Lookup(in)
		assert.True(t, ok, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, ok := table.Lookup("Atlantis")
	assert.False(t, ok)
}

func TestLoadCountryTableOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Holland: nl\nScotland: GB\n"), 0o600))

	table, err := LoadCountryTable(path)
	require.NoError(t, err)

	code, ok := table.Lookup("holland")
	assert.True(t, ok)
	assert.Equal(t, "NL", code)

	code, ok = table.Lookup("Netherlands")
	assert.True(t, ok)
	assert.Equal(t, "NL", code)
}

func TestLoadCountryTableRejectsBadCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Narnia: NAR\n"), 0o600))

	_, err := LoadCountryTable(path)
	assert.ErrorContains(t, err, "two letters")
}
