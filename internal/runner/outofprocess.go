package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/clapgo/clap-validator/pkg/testcases"
)

// dispatchOutOfProcess spawns <self-executable> run-single-test, waits for
// it, and reads back the JSON-serialized Status it wrote, per §4.11. The
// output file is named with a fresh uuid per test rather than relying on
// os.CreateTemp's own uniqueness scheme, and is removed once it has been
// read.
func dispatchOutOfProcess(t SerializedTest, s Settings) testcases.Status {
	outputPath, err := outputFilePath()
	if err != nil {
		return testcases.Fail("runner: could not allocate an output file path: %s", err.Error())
	}
	defer os.Remove(outputPath)

	dataJSON, err := json.Marshal(t.Data)
	if err != nil {
		return testcases.Fail("runner: could not serialize test arguments: %s", err.Error())
	}

	self, err := os.Executable()
	if err != nil {
		return testcases.Fail("runner: could not find the path to the current executable: %s", err.Error())
	}

	cmd := exec.Command(self, "run-single-test", "--output-file", outputPath, t.TestType, t.TestName, string(dataJSON))
	if s.HideOutput {
		cmd.Stdout = nil
		cmd.Stderr = nil
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	err = cmd.Run()
	if err != nil {
		if desc, ok := crashDescription(err); ok {
			return testcases.Crash("%s", desc)
		}
		return testcases.Crash("runner: could not spawn the child process: %s", err.Error())
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		return testcases.Crash("runner: child process did not write a result file: %s", err.Error())
	}
	var status testcases.Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return testcases.Crash("runner: could not parse the child process result: %s", err.Error())
	}
	return status
}

func outputFilePath() (string, error) {
	dir := TempDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, uuid.NewString()+".json"), nil
}

// crashDescription renders a non-zero exit (including signal death) as the
// human-readable description §7 asks the parent to surface for *Crashed*.
func crashDescription(err error) (string, bool) {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return "", false
	}
	raw, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitErr.String(), true
	}
	ws := unix.WaitStatus(raw)
	if ws.Signaled() {
		return fmt.Sprintf("signal: %s", ws.Signal()), true
	}
	return fmt.Sprintf("exit status %d", ws.ExitStatus()), true
}
