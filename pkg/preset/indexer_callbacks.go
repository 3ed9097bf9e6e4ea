package preset

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
*/
import "C"

import (
	"strings"
	"unsafe"
)

//export go_indexer_declare_filetype
func go_indexer_declare_filetype(i *C.clap_preset_discovery_indexer_t, ft *C.clap_preset_discovery_filetype_t) C.bool {
	idx, ok := indexerFromHandle(i.indexer_data)
	if !ok || ft == nil {
		return C.bool(false)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return C.bool(idx.fail("preset: declare_filetype() called after init() returned"))
	}

	name, ok1 := cstr(ft.name)
	ext, ok2 := cstr(ft.file_extension)
	if !ok1 || !ok2 {
		return C.bool(idx.fail("preset: declare_filetype() requires a name and file_extension"))
	}
	if strings.HasPrefix(ext, ".") {
		return C.bool(idx.fail("preset: file extension %q must not start with a period", ext))
	}
	desc, _ := cstr(ft.description)

	idx.FileTypes = append(idx.FileTypes, FileType{Name: name, Description: desc, Extension: ext})
	return C.bool(true)
}

//export go_indexer_declare_location
func go_indexer_declare_location(i *C.clap_preset_discovery_indexer_t, loc *C.clap_preset_discovery_location_t) C.bool {
	idx, ok := indexerFromHandle(i.indexer_data)
	if !ok || loc == nil {
		return C.bool(false)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return C.bool(idx.fail("preset: declare_location() called after init() returned"))
	}

	name, ok := cstr(loc.name)
	if !ok {
		return C.bool(idx.fail("preset: declare_location() requires a name"))
	}

	// This ABI distinguishes File from Internal locations by the presence of
	// a location string rather than a separate kind field: non-null means an
	// absolute path (File), null means the plugin serves it internally.
	path, hasPath := cstr(loc.location)
	kind := LocationPlugin
	if hasPath {
		kind = LocationFile
	}

	idx.Locations = append(idx.Locations, Location{
		Flags: flagsFromBits(uint32(loc.flags)),
		Name:  name,
		Kind:  kind,
		Path:  path,
	})
	return C.bool(true)
}

//export go_indexer_declare_soundpack
func go_indexer_declare_soundpack(i *C.clap_preset_discovery_indexer_t, sp *C.clap_preset_discovery_soundpack_t) C.bool {
	idx, ok := indexerFromHandle(i.indexer_data)
	if !ok || sp == nil {
		return C.bool(false)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return C.bool(idx.fail("preset: declare_soundpack() called after init() returned"))
	}

	id, ok1 := cstr(sp.id)
	name, ok2 := cstr(sp.name)
	if !ok1 || !ok2 {
		return C.bool(idx.fail("preset: declare_soundpack() requires an id and name"))
	}
	description, _ := cstr(sp.description)
	homepage, _ := cstr(sp.homepage_url)
	vendor, _ := cstr(sp.vendor)
	image, _ := cstr(sp.image_path)

	idx.Soundpacks = append(idx.Soundpacks, Soundpack{
		Flags:       flagsFromBits(uint32(sp.flags)),
		ID:          id,
		Name:        name,
		Description: description,
		HomepageURL: homepage,
		Vendor:      vendor,
		ImagePath:   image,
	})
	return C.bool(true)
}

//export go_indexer_get_extension
func go_indexer_get_extension(i *C.clap_preset_discovery_indexer_t, id *C.char) unsafe.Pointer {
	return nil // the validator declares no indexer-side extensions
}
