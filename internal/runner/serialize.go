package runner

// SerializedTest is the argument set round-tripped to a run-single-test
// child process, matching validator.rs's SerializedTest (test_type,
// test_name, data) but carrying typed data instead of an opaque JSON blob,
// since this validator's CLI never needs to shell out to another language.
// Exported so cmd/clap-validator's run-single-test command can construct one
// from its own parsed flags/positional args.
type SerializedTest struct {
	TestType string   `json:"test_type"`
	TestName string   `json:"test_name"`
	Data     TestData `json:"data"`
}

const (
	TestTypeLibrary = "library"
	TestTypePlugin  = "plugin"
)

// TestData carries whichever of library-path/plugin-id a given test type
// needs; the unused field is simply omitted.
type TestData struct {
	LibraryPath string `json:"library_path"`
	PluginID    string `json:"plugin_id,omitempty"`
}
