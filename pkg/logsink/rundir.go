package logsink

import (
	"os"
	"path/filepath"
	"time"
)

// runSubdirs are created under every per-run directory (§4.7, §6
// "Persisted state").
var runSubdirs = []string{"stdout", "dci", "rnti_matching", "metric", "download"}

// runDir is one run's directory layout.
type runDir struct {
	Root string
}

// newRunDir creates base/run-YYYY_MM_DD-HH_MM_SS/ and its subfolders.
func newRunDir(base string, startedAt time.Time) (runDir, error) {
	root := filepath.Join(base, "run-"+startedAt.Format("2006_01_02-15_04_05"))
	for _, sub := range runSubdirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return runDir{}, err
		}
	}
	return runDir{Root: root}, nil
}

func (r runDir) path(sub, file string) string {
	return filepath.Join(r.Root, sub, file)
}
