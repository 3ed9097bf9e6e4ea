// Package reporter implements §4.13: a colorized human-readable reporter
// and a JSON reporter over internal/runner's ValidationResult. Grounded on
// original_source/src/cli/report.rs's grouped-by-library-then-plugin
// layout, restyled with the charmbracelet stack already wired into
// pkg/validatorlog rather than hand-rolled ANSI codes.
package reporter

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lestrrat-go/strftime"

	"github.com/clapgo/clap-validator/internal/runner"
	"github.com/clapgo/clap-validator/pkg/testcases"
)

var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	crashStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true).Underline(true)
	headingStyle = lipgloss.NewStyle().Bold(true)
)

func styleFor(code testcases.Code) (lipgloss.Style, string) {
	switch code {
	case testcases.Success:
		return passStyle, "PASSED"
	case testcases.Skipped:
		return skipStyle, "SKIPPED"
	case testcases.Warning:
		return warnStyle, "WARNING"
	case testcases.Failed:
		return failStyle, "FAILED"
	case testcases.Crashed:
		return crashStyle, "CRASHED"
	default:
		return lipgloss.NewStyle(), "UNKNOWN"
	}
}

// reportTimestampLayout is fed to strftime for the human report's header,
// matching the teacher-adjacent pack's own strftime.Format call shape.
const reportTimestampLayout = "%Y-%m-%d %H:%M:%S"

// Human writes a colorized, grouped-by-library-then-plugin report to w. When
// onlyFailed is set, Success/Skipped/Warning rows are omitted -- only Failed
// and Crashed rows (and their enclosing group headings) are printed.
func Human(w io.Writer, result *runner.ValidationResult, onlyFailed bool, now time.Time) error {
	stamp, err := strftime.Format(reportTimestampLayout, now)
	if err != nil {
		return fmt.Errorf("reporter: %w", err)
	}
	fmt.Fprintf(w, "%s\n\n", headingStyle.Render("clap-validator report — "+stamp))

	for _, path := range sortedKeys(result.PluginLibraryTests) {
		tests := result.PluginLibraryTests[path]
		plugins := pluginsForLibrary(result, path)
		if onlyFailed && !anyFailed(tests) {
			pluginFailed := false
			for _, id := range plugins {
				pluginFailed = pluginFailed || anyFailed(result.PluginTests[id])
			}
			if !pluginFailed {
				continue
			}
		}
		fmt.Fprintf(w, "%s\n", headingStyle.Render("library: "+path))
		printTests(w, tests, onlyFailed, "  ")

		for _, id := range plugins {
			pTests := result.PluginTests[id]
			if onlyFailed && !anyFailed(pTests) {
				continue
			}
			fmt.Fprintf(w, "  %s\n", headingStyle.Render("plugin: "+id))
			printTests(w, pTests, onlyFailed, "    ")
		}
		fmt.Fprintln(w)
	}

	tally := result.Tally()
	fmt.Fprintf(w, "%d passed, %d failed, %d skipped, %d warnings (%d total)\n",
		tally.Passed, tally.Failed, tally.Skipped, tally.Warnings, tally.Total())
	return nil
}

func printTests(w io.Writer, tests []runner.TestResult, onlyFailed bool, indent string) {
	for _, t := range tests {
		if onlyFailed && t.Status.Code != testcases.Failed && t.Status.Code != testcases.Crashed {
			continue
		}
		style, label := styleFor(t.Status.Code)
		line := fmt.Sprintf("%s%s %s (%s)", indent, style.Render(label), t.Name, t.Duration)
		if t.Status.Detail != "" {
			line += ": " + t.Status.Detail
		}
		fmt.Fprintln(w, line)
	}
}

func anyFailed(tests []runner.TestResult) bool {
	for _, t := range tests {
		if t.Status.Code == testcases.Failed || t.Status.Code == testcases.Crashed {
			return true
		}
	}
	return false
}

func pluginsForLibrary(result *runner.ValidationResult, path string) []string {
	var ids []string
	for id, p := range result.PluginLibraryPath {
		if p == path {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string][]runner.TestResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
