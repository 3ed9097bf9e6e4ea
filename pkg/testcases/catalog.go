package testcases

import "github.com/clapgo/clap-validator/pkg/pluginlib"

// LibraryCase is a test whose input is just a loaded library (§4.9
// "Library-level" group).
type LibraryCase struct {
	Name        string
	Description string
	Run         func(lib *pluginlib.Library) Status
}

// PluginCase is a test whose input is a library plus one of its plugin
// ids -- the common shape for every other §4.9 group.
type PluginCase struct {
	Name        string
	Description string
	Run         func(lib *pluginlib.Library, pluginID string) Status
}

// libraryCatalog and pluginCatalog are populated by each test file's
// init(), mirroring the teacher's pkg/registry self-registration idiom.
var (
	libraryCatalog []LibraryCase
	pluginCatalog  []PluginCase
)

func registerLibraryCase(c LibraryCase) { libraryCatalog = append(libraryCatalog, c) }
func registerPluginCase(c PluginCase)   { pluginCatalog = append(pluginCatalog, c) }

// LibraryCases returns every registered library-level test, in registration
// order. internal/runner sorts by name itself before executing.
func LibraryCases() []LibraryCase { return append([]LibraryCase(nil), libraryCatalog...) }

// PluginCases returns every registered plugin-level test, in registration
// order.
func PluginCases() []PluginCase { return append([]PluginCase(nil), pluginCatalog...) }
