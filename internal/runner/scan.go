package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/clapgo/clap-validator/pkg/pluginlib"
	"github.com/clapgo/clap-validator/pkg/testcases"
)

// scanTimeout is §5's "per-test wall-clock limit... enforced only for
// out-of-process plugin scanning" -- grounded on list.rs's
// scan_out_of_process::spawn's WAIT_TIMEOUT.
const scanTimeout = 30 * time.Second

// ScanResult is the hidden scan-out-of-process command's persisted report,
// mirroring list.rs's ScanStatus enum as a single tagged struct (Go has no
// sum types, so the zero values of the unused fields are simply omitted).
type ScanResult struct {
	Outcome  string              `json:"outcome"` // "success", "error", or "crashed"
	Metadata *pluginlib.Metadata `json:"metadata,omitempty"`
	Presets  *testcases.Status   `json:"presets,omitempty"`
	Detail   string              `json:"detail,omitempty"`
}

// ScanOutOfProcess spawns <self-executable> scan-out-of-process with a 30s
// wall-clock limit, for `list plugins`'s out-of-process library scanning.
func ScanOutOfProcess(pluginPath string, scanPresets bool) (ScanResult, error) {
	outputPath, err := outputFilePath()
	if err != nil {
		return ScanResult{}, err
	}
	defer os.Remove(outputPath)

	self, err := os.Executable()
	if err != nil {
		return ScanResult{}, fmt.Errorf("runner: could not find the path to the current executable: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	args := []string{"scan-out-of-process", "--output-file", outputPath, "--plugin-path", pluginPath}
	if scanPresets {
		args = append(args, "--scan-presets")
	}
	cmd := exec.CommandContext(ctx, self, args...)

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return ScanResult{Outcome: "crashed", Detail: fmt.Sprintf("timed out after %s", scanTimeout)}, nil
	}
	if err != nil {
		if desc, ok := crashDescription(err); ok {
			return ScanResult{Outcome: "crashed", Detail: desc}, nil
		}
		return ScanResult{Outcome: "crashed", Detail: err.Error()}, nil
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		return ScanResult{}, fmt.Errorf("runner: child process did not write a scan result file: %w", err)
	}
	var result ScanResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ScanResult{}, fmt.Errorf("runner: could not parse the scan result: %w", err)
	}
	return result, nil
}

// RunScanOutOfProcess is the scan-out-of-process child's implementation: load
// the library, optionally run the preset-discovery crawl, and return the
// result to be JSON-serialized by the caller.
func RunScanOutOfProcess(pluginPath string, scanPresets bool) ScanResult {
	lib, err := pluginlib.Load(pluginPath)
	if err != nil {
		return ScanResult{Outcome: "error", Detail: err.Error()}
	}
	defer lib.Close()

	meta := lib.Metadata()
	result := ScanResult{Outcome: "success", Metadata: &meta}

	if scanPresets {
		for _, c := range testcases.LibraryCases() {
			if c.Name == "preset-discovery-crawl" {
				status := c.Run(lib)
				result.Presets = &status
				break
			}
		}
	}
	return result
}
