package runner

import (
	"fmt"
	"time"

	"github.com/clapgo/clap-validator/pkg/pluginlib"
	"github.com/clapgo/clap-validator/pkg/testcases"
)

// runLibraryTest executes one library-level test case and times it,
// dispatching in-process or out-of-process per settings.
func runLibraryTest(c testcases.LibraryCase, lib *pluginlib.Library, libPath string, s Settings) TestResult {
	start := time.Now()
	var status testcases.Status
	if s.InProcess {
		status = runLibraryTestInProcess(c, lib)
	} else {
		status = runLibraryTestOutOfProcess(c, libPath, s)
	}
	return TestResult{Name: c.Name, Description: c.Description, Status: status, Duration: time.Since(start)}
}

// runPluginTest executes one plugin-level test case and times it.
func runPluginTest(c testcases.PluginCase, lib *pluginlib.Library, libPath, pluginID string, s Settings) TestResult {
	start := time.Now()
	var status testcases.Status
	if s.InProcess {
		status = runPluginTestInProcess(c, lib, pluginID)
	} else {
		status = runPluginTestOutOfProcess(c, libPath, pluginID, s)
	}
	return TestResult{Name: c.Name, Description: c.Description, Status: status, Duration: time.Since(start)}
}

// catchUnwind is the runner's own outer recover boundary, distinct from
// pkg/testcases.Recover (which individual test bodies use around a narrower
// span). A panic escaping all the way out of a test's Run function is a bug
// in the validator itself, per §7, not just in the plugin under test.
func catchUnwind(fn func() testcases.Status) (result testcases.Status) {
	defer func() {
		if r := recover(); r != nil {
			result = testcases.Crash("%v. this is a bug in the validator", r)
		}
	}()
	return fn()
}

func runLibraryTestInProcess(c testcases.LibraryCase, lib *pluginlib.Library) testcases.Status {
	return catchUnwind(func() testcases.Status { return c.Run(lib) })
}

func runPluginTestInProcess(c testcases.PluginCase, lib *pluginlib.Library, pluginID string) testcases.Status {
	return catchUnwind(func() testcases.Status { return c.Run(lib, pluginID) })
}

// runLibraryTestOutOfProcess and runPluginTestOutOfProcess spawn
// <self-executable> run-single-test, per §4.11, and read back the child's
// JSON-serialized Status.
func runLibraryTestOutOfProcess(c testcases.LibraryCase, libPath string, s Settings) testcases.Status {
	return dispatchOutOfProcess(SerializedTest{
		TestType: TestTypeLibrary,
		TestName: c.Name,
		Data:     TestData{LibraryPath: libPath},
	}, s)
}

func runPluginTestOutOfProcess(c testcases.PluginCase, libPath, pluginID string, s Settings) testcases.Status {
	return dispatchOutOfProcess(SerializedTest{
		TestType: TestTypePlugin,
		TestName: c.Name,
		Data:     TestData{LibraryPath: libPath, PluginID: pluginID},
	}, s)
}

// RunSingleTestInProcess is the hidden run-single-test command's
// implementation: look the named test up in the catalog by type+name and
// run it in-process in this (already isolated, separate OS process) child,
// returning the Status to be JSON-serialized by the caller.
func RunSingleTestInProcess(t SerializedTest) (testcases.Status, error) {
	lib, err := pluginlib.Load(t.Data.LibraryPath)
	if err != nil {
		return testcases.Status{}, fmt.Errorf("runner: could not load %q: %w", t.Data.LibraryPath, err)
	}
	defer lib.Close()

	switch t.TestType {
	case TestTypeLibrary:
		for _, c := range testcases.LibraryCases() {
			if c.Name == t.TestName {
				return runLibraryTestInProcess(c, lib), nil
			}
		}
		return testcases.Status{}, fmt.Errorf("runner: unknown library test %q", t.TestName)
	case TestTypePlugin:
		for _, c := range testcases.PluginCases() {
			if c.Name == t.TestName {
				return runPluginTestInProcess(c, lib, t.Data.PluginID), nil
			}
		}
		return testcases.Status{}, fmt.Errorf("runner: unknown plugin test %q", t.TestName)
	default:
		return testcases.Status{}, fmt.Errorf("runner: unknown test type %q", t.TestType)
	}
}
