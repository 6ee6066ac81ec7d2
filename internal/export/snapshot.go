package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

// Snapshot is the on-disk form of a cloud record.
type Snapshot struct {
	ExportedAt time.Time            `json:"exported_at"`
	Kind       string               `json:"kind"`
	Subject    string               `json:"subject"`
	Record     *directory.CloudUser `json:"record"`
}

// Writer saves cloud user and manager snapshots into Dir.
type Writer struct {
	Dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, now: time.Now}
}

// Write stores the user record and, when present, the manager record.
// It returns the paths written.
func (w *Writer) Write(upn string, user, manager *directory.CloudUser) ([]string, error) {
	base := tools.SafeFileName(upn)
	var paths []string

	p, err := w.write(base+".user.json", Snapshot{Kind: "user", Subject: upn, Record: user})
	if err != nil {
		return paths, err
	}
	paths = append(paths, p)

	if manager != nil {
		p, err := w.write(base+".manager.json", Snapshot{Kind: "manager", Subject: upn, Record: manager})
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (w *Writer) write(name string, snap Snapshot) (string, error) {
	snap.ExportedAt = w.now().UTC()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s snapshot: %w", snap.Kind, err)
	}

	path := filepath.Join(w.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
