package testcases

import (
	"time"

	"github.com/clapgo/clap-validator/pkg/host"
	"github.com/clapgo/clap-validator/pkg/pluginlib"
)

// scanTimeBudget is deliberately generous: this checks for a pathological
// factory (one that does real I/O or blocks inside count()/get_descriptor()),
// not a performance benchmark.
const scanTimeBudget = 5 * time.Second

func init() {
	registerLibraryCase(LibraryCase{
		Name:        "library-factory-scan-time-budget",
		Description: "re-enumerating every plugin descriptor the factory exports completes within a fixed budget",
		Run:         testLibraryScanTimeBudget,
	})
	registerLibraryCase(LibraryCase{
		Name:        "library-unknown-factory-id-returns-null",
		Description: "get_factory() with an id no plugin advertises returns NULL rather than a garbage pointer",
		Run:         testLibraryUnknownFactoryIDReturnsNull,
	})
	registerLibraryCase(LibraryCase{
		Name:        "library-create-plugin-rejects-garbage-id",
		Description: "create_plugin() with a valid id plus trailing garbage fails instead of returning a plugin for the truncated/matched prefix",
		Run:         testLibraryCreatePluginRejectsGarbageID,
	})
}

func testLibraryScanTimeBudget(lib *pluginlib.Library) Status {
	factory := lib.Factory()
	start := time.Now()

	count := factory.Count()
	for i := uint32(0); i < count; i++ {
		if _, err := factory.Descriptor(i); err != nil {
			return Fail("descriptor(%d): %s", i, err.Error())
		}
	}

	if elapsed := time.Since(start); elapsed > scanTimeBudget {
		return Warn("re-scanning %d descriptor(s) took %s, over the %s budget", count, elapsed, scanTimeBudget)
	}
	return Pass("")
}

func testLibraryUnknownFactoryIDReturnsNull(lib *pluginlib.Library) Status {
	if ptr := lib.FactoryByID("clap.nonexistent-factory/validator-probe"); ptr != nil {
		return Fail("get_factory() with an id the library cannot plausibly export returned a non-NULL pointer")
	}
	return Pass("")
}

func testLibraryCreatePluginRejectsGarbageID(lib *pluginlib.Library) Status {
	meta := lib.Metadata()
	if len(meta.Plugins) == 0 {
		return Skip("library exports no plugins")
	}
	garbageID := meta.Plugins[0].ID + "-garbage-suffix-validator-probe"

	shared := host.New()
	defer shared.Release()

	ptr, err := lib.Factory().CreatePlugin(shared.HostPtr(), garbageID)
	if err == nil {
		return Fail("create_plugin(%q) succeeded; a valid id with trailing garbage must be rejected", garbageID)
	}
	if ptr != nil {
		return Fail("create_plugin(%q) returned a non-NULL pointer alongside an error", garbageID)
	}
	return Pass("")
}
