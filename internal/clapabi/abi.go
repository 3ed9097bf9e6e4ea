// Package clapabi is the lowest layer of the validator's host runtime: it
// resolves and dlopen's a plugin shared object, walks its factory, and
// translates the C plugin-descriptor shape into plain Go values. Everything
// above this package (pkg/host, pkg/instance, pkg/process, ...) talks to the
// plugin only through the types defined here.
package clapabi

/*
#cgo linux LDFLAGS: -ldl
#cgo CFLAGS: -I${SRCDIR}/include

#include "include/clap_validator_abi.h"
#include <dlfcn.h>
#include <stdlib.h>

static inline void *validator_dlopen(const char *path) {
    return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static inline void *validator_dlsym(void *handle, const char *name) {
    return dlsym(handle, name);
}

static inline int validator_dlclose(void *handle) {
    return dlclose(handle);
}

static inline const char *validator_dlerror(void) {
    return dlerror();
}

static inline const clap_plugin_factory_t *validator_get_factory(const clap_plugin_entry_t *entry) {
    if (!entry || !entry->get_factory) {
        return NULL;
    }
    return (const clap_plugin_factory_t *)entry->get_factory(CLAP_PLUGIN_FACTORY_ID);
}

static inline const void *validator_get_factory_by_id(const clap_plugin_entry_t *entry, const char *id) {
    if (!entry || !entry->get_factory) {
        return NULL;
    }
    return entry->get_factory(id);
}

static inline uint32_t validator_factory_count(const clap_plugin_factory_t *f) {
    if (!f || !f->get_plugin_count) {
        return 0;
    }
    return f->get_plugin_count(f);
}

static inline const clap_plugin_descriptor_t *validator_factory_descriptor(const clap_plugin_factory_t *f,
                                                                            uint32_t i) {
    if (!f || !f->get_plugin_descriptor) {
        return NULL;
    }
    return f->get_plugin_descriptor(f, i);
}

static inline const clap_plugin_t *validator_factory_create(const clap_plugin_factory_t *f, const clap_host_t *h,
                                                              const char *id) {
    if (!f || !f->create_plugin) {
        return NULL;
    }
    return f->create_plugin(f, h, id);
}

static inline bool validator_entry_init(const clap_plugin_entry_t *e, const char *path) {
    return e && e->init ? e->init(path) : false;
}

static inline void validator_entry_deinit(const clap_plugin_entry_t *e) {
    if (e && e->deinit) {
        e->deinit();
    }
}

static inline bool validator_plugin_init(const clap_plugin_t *p) {
    return p && p->init ? p->init(p) : false;
}

static inline void validator_plugin_destroy(const clap_plugin_t *p) {
    if (p && p->destroy) {
        p->destroy(p);
    }
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Version is a CLAP-style major.minor.revision triple.
type Version struct {
	Major, Minor, Revision uint32
}

// IsCompatible mirrors clap_version_is_compatible: only the major version is
// load-bearing for ABI compatibility.
func (v Version) IsCompatible() bool { return v.Major >= 1 }

func (v Version) String() string { return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision) }

// Descriptor is the Go-native copy of clap_plugin_descriptor_t. It is
// immutable and safe to retain after the C pointer it was read from becomes
// invalid (e.g. after the library is unloaded).
type Descriptor struct {
	ClapVersion Version
	ID          string
	Name        string
	Vendor      string
	URL         string
	ManualURL   string
	SupportURL  string
	Version     string
	Description string
	Features    []string
}

// Handle is a loaded plugin shared object: the dlopen handle plus its
// resolved entry point. It must be kept alive for as long as any instance
// created from its factory is alive.
type Handle struct {
	dl    unsafe.Pointer
	entry *C.clap_plugin_entry_t
	path  string
}

// Open dlopen's the shared object at path, resolves and initializes its
// clap_entry symbol, and returns a Handle. The caller must call Close once
// every instance derived from it has been destroyed.
func Open(path string) (*Handle, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	dl := C.validator_dlopen(cPath)
	if dl == nil {
		reason := C.GoString(C.validator_dlerror())
		return nil, fmt.Errorf("clapabi: could not load %q: %s", path, reason)
	}

	symName := C.CString(C.CLAP_ENTRY_SYMBOL)
	defer C.free(unsafe.Pointer(symName))

	sym := C.validator_dlsym(dl, symName)
	if sym == nil {
		C.validator_dlclose(dl)
		return nil, fmt.Errorf("clapabi: %q does not export the %s symbol", path, C.CLAP_ENTRY_SYMBOL)
	}

	entry := (*C.clap_plugin_entry_t)(sym)
	if !bool(C.validator_entry_init(entry, cPath)) {
		C.validator_dlclose(dl)
		return nil, fmt.Errorf("clapabi: %q's clap_entry.init() returned false", path)
	}

	return &Handle{dl: dl, entry: entry, path: path}, nil
}

// EntryVersion returns the ABI version the plugin library declares support for.
func (h *Handle) EntryVersion() Version {
	v := h.entry.clap_version
	return Version{Major: uint32(v.major), Minor: uint32(v.minor), Revision: uint32(v.revision)}
}

// Close deinitializes the entry point and dlcloses the shared object. The
// handle must not be used afterwards, and no instance created from it may
// still be alive.
func (h *Handle) Close() error {
	C.validator_entry_deinit(h.entry)
	if C.validator_dlclose(h.dl) != 0 {
		return fmt.Errorf("clapabi: dlclose(%q) failed: %s", h.path, C.GoString(C.validator_dlerror()))
	}
	return nil
}

// Factory is an opaque reference to the plugin library's clap_plugin_factory.
// It is only valid for the lifetime of the owning Handle.
type Factory struct {
	ptr *C.clap_plugin_factory_t
}

// Factory resolves and returns the library's plugin factory, or an error if
// the library does not export one.
func (h *Handle) Factory() (*Factory, error) {
	if h.entry.get_factory == nil {
		return nil, fmt.Errorf("clapabi: %q has no get_factory()", h.path)
	}

	f := C.validator_get_factory(h.entry)
	if f == nil {
		return nil, fmt.Errorf("clapabi: %q does not export %s", h.path, C.CLAP_PLUGIN_FACTORY_ID)
	}
	return &Factory{ptr: f}, nil
}

// GetFactory resolves an arbitrary factory by its string id (e.g. the
// preset-discovery factory, which is not the plugin factory Factory()
// already resolves). Returns nil if the library does not export it.
func (h *Handle) GetFactory(id string) unsafe.Pointer {
	cID := C.CString(id)
	defer C.free(unsafe.Pointer(cID))
	return unsafe.Pointer(C.validator_get_factory_by_id(h.entry, cID))
}

// Count returns the number of plugin descriptors exposed by the factory.
func (f *Factory) Count() uint32 {
	return uint32(C.validator_factory_count(f.ptr))
}

// Descriptor reads back the descriptor at index i, translating every C
// string into an owned Go string so the result outlives the library.
func (f *Factory) Descriptor(i uint32) (Descriptor, error) {
	d := C.validator_factory_descriptor(f.ptr, C.uint32_t(i))
	if d == nil {
		return Descriptor{}, fmt.Errorf("clapabi: get_plugin_descriptor(%d) returned null", i)
	}
	return descriptorFromC(d), nil
}

func descriptorFromC(d *C.clap_plugin_descriptor_t) Descriptor {
	return Descriptor{
		ClapVersion: Version{uint32(d.clap_version.major), uint32(d.clap_version.minor), uint32(d.clap_version.revision)},
		ID:          cOptionalString(d.id),
		Name:        cOptionalString(d.name),
		Vendor:      cOptionalString(d.vendor),
		URL:         cOptionalString(d.url),
		ManualURL:   cOptionalString(d.manual_url),
		SupportURL:  cOptionalString(d.support_url),
		Version:     cOptionalString(d.version),
		Description: cOptionalString(d.description),
		Features:    cFeatureList(d.features),
	}
}

func cOptionalString(p *C.char) string {
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

func cFeatureList(p **C.char) []string {
	if p == nil {
		return nil
	}
	var out []string
	for {
		// #nosec G103 -- walking a null-terminated char** the same way clap.h requires.
		ptr := unsafe.Pointer(p)
		cur := *(**C.char)(ptr)
		if cur == nil {
			break
		}
		out = append(out, C.GoString(cur))
		p = (**C.char)(unsafe.Add(unsafe.Pointer(p), unsafe.Sizeof(p)))
	}
	return out
}

// CreatePlugin instantiates plugin pluginID with the given host struct
// pointer (opaque to this package; it is produced by pkg/host) and calls its
// init(). It returns the raw plugin pointer on success so the caller (pkg
// instance) can build a typed wrapper around it.
func (f *Factory) CreatePlugin(hostPtr unsafe.Pointer, pluginID string) (unsafe.Pointer, error) {
	cID := C.CString(pluginID)
	defer C.free(unsafe.Pointer(cID))

	p := C.validator_factory_create(f.ptr, (*C.clap_host_t)(hostPtr), cID)
	if p == nil {
		return nil, fmt.Errorf("clapabi: create_plugin(%q) returned null", pluginID)
	}

	if !bool(C.validator_plugin_init(p)) {
		C.validator_plugin_destroy(p)
		return nil, fmt.Errorf("clapabi: plugin %q failed to init()", pluginID)
	}

	return unsafe.Pointer(p), nil
}
