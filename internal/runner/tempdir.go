package runner

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// TempDir returns the directory scenario artifacts and out-of-process result
// files live under, per §6: XDG_RUNTIME_DIR on Linux when set and present,
// falling back to os.TempDir(), joined with "clap-validator". Grounded on
// util.rs's validator_temp_dir.
func TempDir() string {
	return filepath.Join(baseTempDir(), "clap-validator")
}

func baseTempDir() string {
	if runtime.GOOS == "linux" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return dir
			}
		}
	}
	return os.TempDir()
}

// cleanTempDir removes any leftover artifacts from a previous run. Failure
// is deliberately ignored -- the directory may not exist, and even if it
// does and cannot be removed, that is not fatal to this run.
func cleanTempDir() {
	_ = os.RemoveAll(TempDir())
}

// artifactDir returns (and creates) the directory a given plugin/test pair's
// scenario artifacts are written under, per §6:
// <temp-dir>/<plugin-id>/<test-name>/.
func artifactDir(pluginID, testName string) (string, error) {
	dir := filepath.Join(TempDir(), sanitizeForPath(pluginID), sanitizeForPath(testName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// sanitizeForPath replaces path separators in IDs/names that may contain
// them (e.g. a reverse-DNS plugin id), and the names "." and "..", so
// artifactDir never escapes TempDir.
func sanitizeForPath(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '/', '\\', '\x00':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if res := string(out); res == "." || res == ".." {
		return strings.Repeat("_", len(res))
	}
	return string(out)
}
