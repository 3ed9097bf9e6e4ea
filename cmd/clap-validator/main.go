// Command clap-validator is §4.12's CLI front end: the validate/list
// subcommands plus the hidden run-single-test/scan-out-of-process commands
// used for out-of-process dispatch. Grounded on the teacher's flat,
// functions-over-framework cmd/build/main.go style, generalized to
// pflag-based subcommands per the exit-code and flag contract in §6.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/clapgo/clap-validator/internal/config"
	"github.com/clapgo/clap-validator/internal/reporter"
	"github.com/clapgo/clap-validator/internal/runner"
	"github.com/clapgo/clap-validator/pkg/testcases"
	"github.com/clapgo/clap-validator/pkg/validatorlog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "run-single-test":
		err = runSingleTest(os.Args[2:])
	case "scan-out-of-process":
		err = runScanOutOfProcess(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "clap-validator: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "clap-validator:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: clap-validator <command> [flags]

commands:
  validate <path>...    run the validation suite against one or more plugin libraries
  list tests            enumerate every registered test case
  list plugins <path>... enumerate the plugins each library exports
  list presets <path>... crawl and report on each library's preset-discovery providers`)
}

func runValidate(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ExitOnError)
	pluginID := fs.String("plugin-id", "", "only run tests against this plugin id")
	testFilterFlag := fs.String("test-filter", "", "case-insensitive regex filtering test names")
	invertFilter := fs.Bool("invert-filter", false, "invert --test-filter's match")
	jsonOut := fs.Bool("json", false, "write results as JSON instead of the human report")
	onlyFailed := fs.Bool("only-failed", false, "in the human report, print only failed/crashed results")
	hideOutput := fs.Bool("hide-output", false, "suppress the out-of-process child's stdout/stderr")
	inProcess := fs.Bool("in-process", false, "run every test in this process instead of isolated children")
	noParallel := fs.Bool("no-parallel", false, "disable parallel out-of-process dispatch")
	configPath := fs.String("config", config.DefaultConfigPath(), "path to an optional YAML config file")
	verbosity := fs.String("verbosity", "warn", "log level: trace|debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	validatorlog.Configure(parseVerbosity(*verbosity), nil)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	paths := append(append([]string(nil), fs.Args()...), cfg.ScanPaths...)
	if len(paths) == 0 {
		return fmt.Errorf("validate requires at least one plugin library path (or scan_paths in the config file / CLAP_VALIDATOR_PATH)")
	}

	settings := runner.Settings{
		Paths:        paths,
		PluginID:     *pluginID,
		TestFilter:   firstNonEmpty(*testFilterFlag, cfg.Defaults.TestFilter),
		InvertFilter: *invertFilter || cfg.Defaults.InvertFilter,
		InProcess:    *inProcess || cfg.Defaults.InProcess,
		NoParallel:   *noParallel || cfg.Defaults.NoParallel,
		HideOutput:   *hideOutput || cfg.Defaults.HideOutput,
	}

	result, err := runner.Validate(settings)
	if err != nil {
		return err
	}

	if *jsonOut {
		if err := reporter.JSON(os.Stdout, result); err != nil {
			return err
		}
	} else {
		if err := reporter.Human(os.Stdout, result, *onlyFailed, time.Now()); err != nil {
			return err
		}
	}

	tally := result.Tally()
	if tally.Failed > 0 {
		os.Exit(1)
	}
	return nil
}

// parseVerbosity maps --verbosity's string values to charmbracelet/log
// levels, falling back to Warn for anything unrecognized rather than
// failing the whole command over a typo'd flag.
func parseVerbosity(s string) log.Level {
	switch s {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func runList(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("list requires a subcommand: tests, plugins, or presets")
	}
	switch args[0] {
	case "tests":
		return listTests()
	case "plugins":
		return listPlugins(args[1:])
	case "presets":
		return listPresets(args[1:])
	default:
		return fmt.Errorf("unknown list subcommand %q", args[0])
	}
}

func listTests() error {
	for _, c := range testcases.LibraryCases() {
		fmt.Printf("%s (library)\n  %s\n", c.Name, c.Description)
	}
	for _, c := range testcases.PluginCases() {
		fmt.Printf("%s (plugin)\n  %s\n", c.Name, c.Description)
	}
	return nil
}

func listPlugins(paths []string) error {
	for _, p := range paths {
		result, err := runner.ScanOutOfProcess(p, false)
		if err != nil {
			return err
		}
		printScanResult(p, result, false)
	}
	return nil
}

func listPresets(paths []string) error {
	for _, p := range paths {
		result, err := runner.ScanOutOfProcess(p, true)
		if err != nil {
			return err
		}
		printScanResult(p, result, true)
	}
	return nil
}

func printScanResult(path string, result runner.ScanResult, presets bool) {
	fmt.Printf("%s: %s\n", path, result.Outcome)
	if result.Detail != "" {
		fmt.Printf("  %s\n", result.Detail)
	}
	if result.Metadata != nil {
		for _, d := range result.Metadata.Plugins {
			fmt.Printf("  - %s (%s)\n", d.ID, d.Name)
		}
	}
	if presets && result.Presets != nil {
		fmt.Printf("  preset-discovery: %s %s\n", result.Presets.Code, result.Presets.Detail)
	}
}

func runSingleTest(args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			validatorlog.L().Error("panic in run-single-test child, this is a bug in the validator", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	fs := pflag.NewFlagSet("run-single-test", pflag.ExitOnError)
	outputFile := fs.String("output-file", "", "path to write the JSON-serialized Status to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 3 {
		return fmt.Errorf("run-single-test requires <test-type> <test-name> <data-json>")
	}

	var data runner.TestData
	if err := json.Unmarshal([]byte(rest[2]), &data); err != nil {
		return fmt.Errorf("parsing test data: %w", err)
	}

	status, err := runner.RunSingleTestInProcess(runner.SerializedTest{
		TestType: rest[0],
		TestName: rest[1],
		Data:     data,
	})
	if err != nil {
		status = testcases.Fail("%s", err.Error())
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return os.WriteFile(*outputFile, raw, 0o644)
}

func runScanOutOfProcess(args []string) error {
	fs := pflag.NewFlagSet("scan-out-of-process", pflag.ExitOnError)
	pluginPath := fs.String("plugin-path", "", "path to the plugin library to scan")
	outputFile := fs.String("output-file", "", "path to write the JSON-serialized ScanResult to")
	scanPresets := fs.Bool("scan-presets", false, "also crawl the library's preset-discovery factory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result := runner.RunScanOutOfProcess(*pluginPath, *scanPresets)
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return os.WriteFile(*outputFile, raw, 0o644)
}
