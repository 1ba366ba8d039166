package build

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jsoncv/pkg/logger"
)

// BackupLayout is the timestamp used in backup file names.
const BackupLayout = "2006-01-02T15-04-05"

// Versioned describes the outcome of VersionResume.
type Versioned struct {
	Name   string
	Latest string
	// Backup is empty when there was no previous version.
	Backup string
}

// VersionResume installs src as resumesDir/<meta.name>.json. An existing
// file is first copied to <meta.name>.<timestamp>.json.
func VersionResume(src, resumesDir string, now time.Time) (Versioned, error) {
	doc, err := readResume(src)
	if err != nil {
		return Versioned{}, err
	}
	if err := os.MkdirAll(resumesDir, 0o755); err != nil {
		return Versioned{}, err
	}

	v := Versioned{Name: doc.Meta.Name, Latest: filepath.Join(resumesDir, doc.Meta.Name+".json")}
	if _, err := os.Stat(v.Latest); err == nil {
		v.Backup = filepath.Join(resumesDir, fmt.Sprintf("%s.%s.json", doc.Meta.Name, now.UTC().Format(BackupLayout)))
		if err := copyFile(v.Latest, v.Backup); err != nil {
			return Versioned{}, fmt.Errorf("backup %s: %w", v.Latest, err)
		}
		logger.Sugar.Infof("Backed up existing resume to %s", filepath.Base(v.Backup))
	} else {
		logger.Sugar.Infof("No existing resume named %q, creating the first version", doc.Meta.Name)
	}

	if err := copyFile(src, v.Latest); err != nil {
		return Versioned{}, err
	}
	return v, nil
}
