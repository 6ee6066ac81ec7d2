package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
)

func TestWriteUserAndManager(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	paths, err := w.Write("Jane.Doe@corp.com",
		&directory.CloudUser{PrincipalName: "Jane.Doe@corp.com", JobTitle: "Engineer"},
		&directory.CloudUser{PrincipalName: "boss@corp.com"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "jane.doe_corp.com.user.json"),
		filepath.Join(dir, "jane.doe_corp.com.manager.json"),
	}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "user", snap.Kind)
	assert.Equal(t, "Engineer", snap.Record.JobTitle)
	assert.Equal(t, 2026, snap.ExportedAt.Year())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files may be left behind")
}

func TestWriteWithoutManager(t *testing.T) {
	w := NewWriter(t.TempDir())
	paths, err := w.Write("a@x.com", &directory.CloudUser{PrincipalName: "a@x.com"}, nil)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestWriteMissingDir(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "does", "not", "exist"))
	_, err := w.Write("a@x.com", &directory.CloudUser{}, nil)
	assert.Error(t, err)
}
