// Package runner implements §4.11's test runner: selecting test cases,
// loading libraries, dispatching each test in-process or out-of-process,
// and aggregating results. Grounded on original_source/src/validator.rs,
// reworked from Rust's parallel-iterator map/reduce shape into a bounded
// goroutine pool mirroring the teacher's pkg/thread/pool.go.
package runner

import (
	"sort"
	"time"

	"github.com/clapgo/clap-validator/pkg/testcases"
)

// TestResult is §6's persisted TestResult shape: a test's name,
// description, outcome, and how long it took to run.
type TestResult struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Status      testcases.Status `json:"status"`
	Duration    time.Duration    `json:"duration"`
}

// ValidationResult is §6's top-level persisted JSON object, keyed exactly
// as spec'd: plugin-library tests by library path, plugin tests by plugin
// ID. Per-plugin-ID keying (rather than per-library) matches the original's
// BTreeMap<String, Vec<TestResult>> and lets results from plugins that
// share a library path still merge cleanly.
type ValidationResult struct {
	PluginLibraryTests map[string][]TestResult `json:"plugin-library-tests"`
	PluginTests        map[string][]TestResult `json:"plugin-tests"`

	// PluginLibraryPath maps a plugin id back to the library path it came
	// from, so internal/reporter's human output can group "by library then
	// plugin" per §4.13 despite §6's persisted shape keying plugin-tests by
	// id alone. Deliberately excluded from the wire format.
	PluginLibraryPath map[string]string `json:"-"`
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{
		PluginLibraryTests: make(map[string][]TestResult),
		PluginTests:        make(map[string][]TestResult),
		PluginLibraryPath:  make(map[string]string),
	}
}

// merge folds other's results into r. Per validator.rs's intersects/union
// split, the caller is responsible for checking for duplicate plugin IDs
// before merging if that matters to it; merge itself appends the test slices
// of keys present in both and overwrites PluginLibraryPath entries.
func (r *ValidationResult) merge(other *ValidationResult) {
	for k, v := range other.PluginLibraryTests {
		r.PluginLibraryTests[k] = append(r.PluginLibraryTests[k], v...)
	}
	for k, v := range other.PluginTests {
		r.PluginTests[k] = append(r.PluginTests[k], v...)
	}
	for k, v := range other.PluginLibraryPath {
		r.PluginLibraryPath[k] = v
	}
}

// sortStable orders every test slice alphabetically by name, so reports list
// tests in the same order regardless of registration or dispatch order.
func (r *ValidationResult) sortStable() {
	for _, tests := range r.PluginLibraryTests {
		sortByName(tests)
	}
	for _, tests := range r.PluginTests {
		sortByName(tests)
	}
}

func sortByName(tests []TestResult) {
	sort.Slice(tests, func(i, j int) bool { return tests[i].Name < tests[j].Name })
}

// Tally is the validator's pass/fail/skip/warning summary.
type Tally struct {
	Passed   int
	Failed   int
	Skipped  int
	Warnings int
}

func (t Tally) Total() int { return t.Passed + t.Failed + t.Skipped + t.Warnings }

// Tally walks every test result and buckets it per §7's taxonomy: Crashed
// and Failed both count toward Failed, matching validator.rs's tally().
func (r *ValidationResult) Tally() Tally {
	var t Tally
	for _, tests := range r.PluginLibraryTests {
		tallyInto(&t, tests)
	}
	for _, tests := range r.PluginTests {
		tallyInto(&t, tests)
	}
	return t
}

func tallyInto(t *Tally, tests []TestResult) {
	for _, r := range tests {
		switch r.Status.Code {
		case testcases.Success:
			t.Passed++
		case testcases.Failed, testcases.Crashed:
			t.Failed++
		case testcases.Skipped:
			t.Skipped++
		case testcases.Warning:
			t.Warnings++
		}
	}
}

// Settings is §4.11's runner input: library paths plus every validate
// subcommand flag from §4.12/§6.
type Settings struct {
	Paths        []string
	PluginID     string
	TestFilter   string
	InvertFilter bool
	InProcess    bool
	NoParallel   bool
	HideOutput   bool
}

// parallel reports whether this run may use the worker pool: only
// out-of-process runs may parallelize, per §4.11.
func (s Settings) parallel() bool { return !s.NoParallel && !s.InProcess }
