package runner

import (
	"fmt"

	"github.com/clapgo/clap-validator/pkg/pluginlib"
	"github.com/clapgo/clap-validator/pkg/testcases"
	"github.com/clapgo/clap-validator/pkg/validatorlog"
)

// Validate runs the full suite described by settings and returns the
// aggregated results, per §4.11. Grounded on original_source/src/
// validator.rs's validate(): library-level tests always run first (so
// in-process scanning-time measurements aren't skewed by a library that's
// already resident), then each surviving plugin's tests.
func Validate(settings Settings) (*ValidationResult, error) {
	cleanTempDir()

	filter, err := newTestFilter(settings)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	libraryCases := filterLibraryCases(filter)
	pluginCases := filterPluginCases(filter)

	perPath := runMaybeParallel(settings.parallel(), settings.Paths, func(path string) *ValidationResult {
		return validateOnePath(path, settings, libraryCases, pluginCases)
	})

	result := newValidationResult()
	for _, r := range perPath {
		if r == nil {
			continue
		}
		if err := checkNoDuplicatePlugins(result, r); err != nil {
			return nil, err
		}
		result.merge(r)
	}
	result.sortStable()

	if settings.PluginID != "" && len(result.PluginTests) == 0 {
		return nil, fmt.Errorf("runner: no plugins matched the plugin ID %q", settings.PluginID)
	}
	return result, nil
}

func checkNoDuplicatePlugins(a, b *ValidationResult) error {
	for id := range b.PluginTests {
		if _, exists := a.PluginTests[id]; exists {
			return fmt.Errorf(
				"runner: duplicate plugin ID %q in validation results; "+
					"multiple versions of the same plugin may be being validated", id)
		}
	}
	return nil
}

func validateOnePath(path string, settings Settings, libraryCases []testcases.LibraryCase, pluginCases []testcases.PluginCase) *ValidationResult {
	result := newValidationResult()

	// Library-level tests run first against the path alone, regardless of
	// whether they are dispatched in- or out-of-process, so scan-time
	// measurements see a library in the state a fresh host would.
	result.PluginLibraryTests[path] = runMaybeParallel(settings.parallel(), libraryCases, func(c testcases.LibraryCase) TestResult {
		return dispatchLibraryTest(c, path, settings)
	})

	lib, err := pluginlib.Load(path)
	if err != nil {
		validatorlog.L().Warn("could not load plugin library for plugin-level tests", "path", path, "err", err)
		return result
	}
	defer lib.Close()

	if !lib.IsABICompatible() {
		validatorlog.L().Debug("unsupported CLAP version, skipping plugin-level tests",
			"path", path, "version", lib.Metadata().ClapVersion.String())
		return result
	}

	var surviving []pluginlib.Descriptor
	for _, d := range lib.Metadata().Plugins {
		if pluginMatches(settings, d.ID) {
			surviving = append(surviving, d)
		}
	}

	perPlugin := runMaybeParallel(settings.parallel(), surviving, func(d pluginlib.Descriptor) pluginTestRun {
		return pluginTestRun{
			id: d.ID,
			results: runMaybeParallel(settings.parallel(), pluginCases, func(c testcases.PluginCase) TestResult {
				return runPluginTest(c, lib, path, d.ID, settings)
			}),
		}
	})
	for _, p := range perPlugin {
		result.PluginTests[p.id] = p.results
		result.PluginLibraryPath[p.id] = path
	}
	return result
}

// pluginTestRun is one plugin id's test results, the unit runMaybeParallel
// fans out per surviving plugin descriptor.
type pluginTestRun struct {
	id      string
	results []TestResult
}

func dispatchLibraryTest(c testcases.LibraryCase, path string, s Settings) TestResult {
	// Out-of-process dispatch never touches lib in the parent -- the child
	// spawned by run-single-test loads its own copy, isolated from whatever
	// state this process may already hold for the path.
	if !s.InProcess {
		return runLibraryTest(c, nil, path, s)
	}

	lib, err := pluginlib.Load(path)
	if err != nil {
		// A library that fails even to load is itself a library-level
		// failure worth reporting per test, not a fatal error for the run.
		return TestResult{Name: c.Name, Description: c.Description, Status: testcases.Fail("%s", err.Error())}
	}
	defer lib.Close()
	return runLibraryTest(c, lib, path, s)
}

func filterLibraryCases(f *testFilter) []testcases.LibraryCase {
	var out []testcases.LibraryCase
	for _, c := range testcases.LibraryCases() {
		if f.matches(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func filterPluginCases(f *testFilter) []testcases.PluginCase {
	var out []testcases.PluginCase
	for _, c := range testcases.PluginCases() {
		if f.matches(c.Name) {
			out = append(out, c)
		}
	}
	return out
}
