package preset

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>

extern bool go_indexer_declare_filetype(clap_preset_discovery_indexer_t *i, const clap_preset_discovery_filetype_t *ft);
extern bool go_indexer_declare_location(clap_preset_discovery_indexer_t *i, const clap_preset_discovery_location_t *loc);
extern bool go_indexer_declare_soundpack(clap_preset_discovery_indexer_t *i, const clap_preset_discovery_soundpack_t *sp);
extern const void *go_indexer_get_extension(clap_preset_discovery_indexer_t *i, const char *id);

static inline void validator_install_indexer_vtable(clap_preset_discovery_indexer_t *v) {
    v->declare_filetype = go_indexer_declare_filetype;
    v->declare_location = go_indexer_declare_location;
    v->declare_soundpack = go_indexer_declare_soundpack;
    v->get_extension = go_indexer_get_extension;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"runtime/cgo"
)

// FileType is a declared clap_preset_discovery_filetype_t, sans its leading
// period (per §4.10, declaring one that starts with "." is an error).
type FileType struct {
	Name        string
	Description string
	Extension   string
}

// LocationKind distinguishes a location backed by a file path from one the
// plugin itself serves internally (no path).
type LocationKind int

const (
	LocationFile LocationKind = iota
	LocationPlugin
)

// Location is a declared clap_preset_discovery_location_t.
type Location struct {
	Flags Flags
	Name  string
	Kind  LocationKind
	Path  string // absolute path for LocationFile, empty for LocationPlugin
}

// Soundpack is a declared clap_preset_discovery_soundpack_t.
type Soundpack struct {
	Flags       Flags
	ID          string
	Name        string
	Description string
	HomepageURL string
	Vendor      string
	ImagePath   string
}

// Indexer is §4.10's Indexer: the receiver a preset-discovery provider's
// init() call declares its file types, locations, and soundpacks into.
// Grounded on original_source/src/plugin/preset_discovery/indexer.rs,
// reworked from a RefCell-guarded Rust struct into a mutex-guarded Go one
// using the same cgo.Handle vtable idiom as MetadataReceiver.
type Indexer struct {
	mu sync.Mutex

	FileTypes  []FileType
	Locations  []Location
	Soundpacks []Soundpack
	err        error
	closed     bool

	handle  cgo.Handle
	vtable  C.clap_preset_discovery_indexer_t
}

// NewIndexer builds an Indexer identifying itself to the provider as the
// validator.
func NewIndexer() *Indexer {
	idx := &Indexer{}
	idx.handle = cgo.NewHandle(idx)
	idx.vtable.clap_version = C.CLAP_VERSION_INIT
	idx.vtable.name = C.CString("clap-validator")
	idx.vtable.vendor = C.CString("clap-validator contributors")
	idx.vtable.url = C.CString("https://github.com/clapgo/clap-validator")
	idx.vtable.version = C.CString("0.1.0")
	idx.vtable.indexer_data = unsafe.Pointer(idx.handle)
	C.validator_install_indexer_vtable(&idx.vtable)
	return idx
}

// VtablePtr exposes the C vtable for a provider factory's create() call.
func (idx *Indexer) VtablePtr() unsafe.Pointer { return unsafe.Pointer(&idx.vtable) }

// Close sets the closed flag that the declare_* callbacks check, then
// releases the cgo handle and the vtable's C strings. Nothing else sets the
// flag, so declare_* calls are accepted until Close runs, including calls
// made after the provider's init() has returned; once Close has returned
// the handle is deleted and no longer resolves to this indexer.
func (idx *Indexer) Close() {
	idx.mu.Lock()
	idx.closed = true
	idx.mu.Unlock()
	idx.handle.Delete()
	C.free(unsafe.Pointer(idx.vtable.name))
	C.free(unsafe.Pointer(idx.vtable.vendor))
	C.free(unsafe.Pointer(idx.vtable.url))
	C.free(unsafe.Pointer(idx.vtable.version))
}

// Err returns the first validation failure recorded by a declare_* call, if
// any.
func (idx *Indexer) Err() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.err
}

func (idx *Indexer) fail(format string, args ...any) bool {
	if idx.err == nil {
		idx.err = fmt.Errorf(format, args...)
	}
	return false
}

func indexerFromHandle(ctx unsafe.Pointer) (*Indexer, bool) {
	if ctx == nil {
		return nil, false
	}
	v := cgo.Handle(ctx).Value()
	i, ok := v.(*Indexer)
	return i, ok
}
