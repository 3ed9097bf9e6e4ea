package testcases

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>

static inline uint32_t validator_pdf_count(const clap_preset_discovery_factory_t *f) {
    return f && f->count ? f->count(f) : 0;
}
static inline const clap_preset_discovery_provider_descriptor_t *validator_pdf_get_descriptor(
        const clap_preset_discovery_factory_t *f, uint32_t index) {
    return f && f->get_descriptor ? f->get_descriptor(f, index) : NULL;
}
static inline const clap_preset_discovery_provider_t *validator_pdf_create(
        const clap_preset_discovery_factory_t *f, const clap_preset_discovery_indexer_t *indexer,
        const char *provider_id) {
    return f && f->create ? f->create(f, indexer, provider_id) : NULL;
}
static inline bool validator_pdp_init(const clap_preset_discovery_provider_t *p) {
    return p && p->init ? p->init(p) : false;
}
static inline void validator_pdp_destroy(const clap_preset_discovery_provider_t *p) {
    if (p && p->destroy) { p->destroy(p); }
}
static inline bool validator_pdp_get_metadata(const clap_preset_discovery_provider_t *p, uint32_t location_kind,
                                               const char *location, const clap_preset_discovery_metadata_receiver_t *r) {
    return p && p->get_metadata ? p->get_metadata(p, location_kind, location, r) : false;
}
*/
import "C"

import (
	"unsafe"

	"github.com/clapgo/clap-validator/pkg/pluginlib"
	"github.com/clapgo/clap-validator/pkg/preset"
)

func init() {
	registerLibraryCase(LibraryCase{
		Name:        "preset-discovery-crawl",
		Description: "every provider the library's preset-discovery factory exports initializes, crawls its declared locations without error, and declares at least one non-empty plugin id for every preset",
		Run:         testPresetDiscoveryCrawl,
	})
}

func testPresetDiscoveryCrawl(lib *pluginlib.Library) Status {
	factoryPtr := lib.FactoryByID(C.CLAP_PRESET_DISCOVERY_FACTORY_ID)
	if factoryPtr == nil {
		return Skip("library does not export a preset-discovery factory")
	}
	factory := (*C.clap_preset_discovery_factory_t)(factoryPtr)

	count := uint32(C.validator_pdf_count(factory))
	if count == 0 {
		return Skip("preset-discovery factory exports zero providers")
	}

	for i := uint32(0); i < count; i++ {
		desc := C.validator_pdf_get_descriptor(factory, C.uint32_t(i))
		if desc == nil {
			return Fail("preset-discovery factory: get_descriptor(%d) returned NULL", i)
		}
		providerID := C.GoString(desc.id)

		if s := crawlOneProvider(factory, providerID); s.Code != Success {
			return s
		}
	}
	return Pass("")
}

func crawlOneProvider(factory *C.clap_preset_discovery_factory_t, providerID string) Status {
	cID := C.CString(providerID)
	defer C.free(unsafe.Pointer(cID))

	indexer := preset.NewIndexer()
	defer indexer.Close()

	provider := C.validator_pdf_create(factory, (*C.clap_preset_discovery_indexer_t)(indexer.VtablePtr()), cID)
	if provider == nil {
		return Fail("preset-discovery factory: create(%q) returned NULL", providerID)
	}
	defer C.validator_pdp_destroy(provider)

	if !bool(C.validator_pdp_init(provider)) {
		return Fail("provider %q: init() returned false", providerID)
	}
	if indexer.Err() != nil {
		return Fail("provider %q: %s", providerID, indexer.Err().Error())
	}

	if provider.desc == nil || C.GoString(provider.desc.id) != providerID {
		return Fail("provider %q: create() returned a provider whose descriptor id does not match the requested id", providerID)
	}

	for _, loc := range indexer.Locations {
		if s := crawlOneLocation(provider, providerID, loc); s.Code != Success {
			return s
		}
	}
	return Pass("")
}

func crawlOneLocation(provider *C.clap_preset_discovery_provider_t, providerID string, loc preset.Location) Status {
	kind := C.uint32_t(C.CLAP_PRESET_DISCOVERY_LOCATION_PLUGIN)
	var cLoc *C.char
	if loc.Kind == preset.LocationFile {
		kind = C.CLAP_PRESET_DISCOVERY_LOCATION_FILE
		cLoc = C.CString(loc.Path)
		defer C.free(unsafe.Pointer(cLoc))
	}

	receiver := preset.New(loc.Name, loc.Flags)
	defer receiver.Close()

	ok := bool(C.validator_pdp_get_metadata(provider, kind, cLoc, (*C.clap_preset_discovery_metadata_receiver_t)(receiver.VtablePtr())))

	presets, err := receiver.Finish()
	if err != nil {
		return Fail("provider %q, location %q: %s", providerID, loc.Name, err.Error())
	}
	if !ok {
		return Warn("provider %q, location %q: get_metadata() returned false", providerID, loc.Name)
	}

	for _, p := range presets.Container {
		if s := checkPresetPluginIDs(providerID, loc.Name, p); s.Code != Success {
			return s
		}
	}
	if presets.Single != nil {
		if s := checkPresetPluginIDs(providerID, loc.Name, *presets.Single); s.Code != Success {
			return s
		}
	}
	return Pass("")
}

func checkPresetPluginIDs(providerID, locationName string, p preset.Preset) Status {
	if len(p.PluginIDs) == 0 {
		return Fail("provider %q, location %q: preset %q declared no plugin id", providerID, locationName, p.Name)
	}
	for _, id := range p.PluginIDs {
		if id.ID == "" {
			return Fail("provider %q, location %q: preset %q declared an empty plugin id", providerID, locationName, p.Name)
		}
	}
	return Pass("")
}
