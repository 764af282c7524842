package archive

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

const ManifestName = "manifest.json"

type Manifest struct {
	Project   string            `json:"project"`
	Type      string            `json:"type"`
	Backup    string            `json:"backup"`
	Timestamp time.Time         `json:"timestamp"`
	Encrypted bool              `json:"encrypted"`
	Includes  Includes          `json:"includes"`
	Tools     map[string]string `json:"tools"`
}

// Includes lists what went into the archive. Two builds of an unchanged
// project produce equal Includes.
type Includes struct {
	Database *DatabaseEntry `json:"database,omitempty"`
	Files    []string       `json:"files"`
	Skipped  []string       `json:"skipped,omitempty"`
	Config   bool           `json:"config"`
}

type DatabaseEntry struct {
	Engine string `json:"engine"`
	Name   string `json:"name,omitempty"`
	File   string `json:"file"`
}

func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), data, 0o600)
}
