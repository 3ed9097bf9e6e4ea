// Package preset implements §4.10's preset-discovery host surface: the
// Indexer the validator presents to a provider (declared file types,
// locations, soundpacks) and the MetadataReceiver state machine a provider
// writes one or more presets into. Grounded on
// original_source/src/plugin/preset_discovery/metadata_receiver.rs (the
// begin_preset/add_plugin_id/... state machine and its single-vs-container
// PresetFile split), expressed through the teacher's cgo.Handle + vtable
// idiom (pkg/api/cgo_wrapper.go) instead of a Rust trait object.
package preset

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>

extern void go_preset_on_error(clap_preset_discovery_metadata_receiver_t *r, int32_t os_error, const char *msg);
extern bool go_preset_begin_preset(clap_preset_discovery_metadata_receiver_t *r, const char *name, const char *load_key);
extern void go_preset_add_plugin_id(clap_preset_discovery_metadata_receiver_t *r, const clap_universal_plugin_id_t *id);
extern void go_preset_set_soundpack_id(clap_preset_discovery_metadata_receiver_t *r, const char *soundpack_id);
extern void go_preset_set_flags(clap_preset_discovery_metadata_receiver_t *r, uint32_t flags);
extern void go_preset_add_creator(clap_preset_discovery_metadata_receiver_t *r, const char *creator);
extern void go_preset_set_description(clap_preset_discovery_metadata_receiver_t *r, const char *description);
extern void go_preset_set_timestamps(clap_preset_discovery_metadata_receiver_t *r, uint64_t creation, uint64_t modification);
extern void go_preset_add_feature(clap_preset_discovery_metadata_receiver_t *r, const char *feature);
extern void go_preset_add_extra_info(clap_preset_discovery_metadata_receiver_t *r, const char *key, const char *value);

static inline void validator_install_metadata_receiver_vtable(clap_preset_discovery_metadata_receiver_t *v) {
    v->on_error = go_preset_on_error;
    v->begin_preset = go_preset_begin_preset;
    v->add_plugin_id = go_preset_add_plugin_id;
    v->set_soundpack_id = go_preset_set_soundpack_id;
    v->set_flags = go_preset_set_flags;
    v->add_creator = go_preset_add_creator;
    v->set_description = go_preset_set_description;
    v->set_timestamps = go_preset_set_timestamps;
    v->add_feature = go_preset_add_feature;
    v->add_extra_info = go_preset_add_extra_info;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"runtime/cgo"
)

// PluginABI is the ABI a declared plugin ID belongs to.
type PluginABI struct {
	ABI string // the ABI string exactly as the provider reported it (e.g. "clap")
	ID  string
}

// Flags are the preset-discovery location/preset content flags.
type Flags struct {
	IsFactoryContent bool
	IsUserContent    bool
	IsDemoContent    bool
	IsFavorite       bool
}

func flagsFromBits(bits uint32) Flags {
	return Flags{
		IsFactoryContent: bits&C.CLAP_PRESET_DISCOVERY_IS_FACTORY_CONTENT != 0,
		IsUserContent:    bits&C.CLAP_PRESET_DISCOVERY_IS_USER_CONTENT != 0,
		IsDemoContent:    bits&C.CLAP_PRESET_DISCOVERY_IS_DEMO_CONTENT != 0,
		IsFavorite:       bits&C.CLAP_PRESET_DISCOVERY_IS_FAVORITE != 0,
	}
}

// PresetFlags pairs a preset's effective Flags with whether they were
// explicitly set or inherited from the crawled location.
type PresetFlags struct {
	Flags       Flags
	IsInherited bool
}

// PresetName distinguishes an explicitly-declared name from one the
// validator derived from the location's file name.
type PresetName struct {
	Explicit bool
	Value    string
}

func (n PresetName) String() string {
	if n.Explicit {
		return n.Value
	}
	return n.Value + " (derived from filename)"
}

// Preset is one finished preset declaration.
type Preset struct {
	Name             PresetName
	PluginIDs        []PluginABI
	SoundpackID      string
	Flags            PresetFlags
	Creators         []string
	Description      string
	CreationTime     *time.Time
	ModificationTime *time.Time
	Features         []string
	ExtraInfo        map[string]string
}

// PresetFile is §4.10's PresetFile: either a single preset, or a container
// of presets keyed by load key.
type PresetFile struct {
	Single    *Preset
	Container map[string]Preset
}

// partialPreset accumulates one preset's fields across several metadata
// receiver calls before Preset.finalize.
type partialPreset struct {
	name        PresetName
	pluginIDs   []PluginABI
	soundpackID string
	flags       *Flags
	creators    []string
	description string
	creation    *time.Time
	modified    *time.Time
	features    []string
	extraInfo   map[string]string
}

func (p *partialPreset) finalize(locationFlags Flags) (Preset, error) {
	if len(p.pluginIDs) == 0 {
		return Preset{}, fmt.Errorf("preset: %q was declared without calling add_plugin_id", p.name)
	}

	pf := PresetFlags{Flags: locationFlags, IsInherited: true}
	if p.flags != nil {
		pf = PresetFlags{Flags: *p.flags, IsInherited: false}
	}

	return Preset{
		Name:             p.name,
		PluginIDs:        p.pluginIDs,
		SoundpackID:      p.soundpackID,
		Flags:            pf,
		Creators:         p.creators,
		Description:      p.description,
		CreationTime:     p.creation,
		ModificationTime: p.modified,
		Features:         p.features,
		ExtraInfo:        p.extraInfo,
	}, nil
}

// MetadataReceiver is the host-side state machine a provider's
// get_metadata() call writes presets into, per §4.10. Every callback takes
// mu; the calling thread is not checked (expectedGoroutine is never set).
type MetadataReceiver struct {
	mu sync.Mutex

	expectedGoroutine uint64
	locationFlags     Flags
	derivedFileName   string // used for Filename-kind names when the provider sets none

	next        *partialPreset
	nextLoadKey *string

	result    PresetFile
	hasResult bool
	err       error

	handle  cgo.Handle
	vtable  C.clap_preset_discovery_metadata_receiver_t
}

// New builds a MetadataReceiver for one get_metadata() crawl of a location
// whose file name (used as a Filename-kind preset name fallback) is
// derivedFileName, and whose flags (used when a preset doesn't set its own)
// are locationFlags.
func New(derivedFileName string, locationFlags Flags) *MetadataReceiver {
	r := &MetadataReceiver{derivedFileName: derivedFileName, locationFlags: locationFlags}
	r.handle = cgo.NewHandle(r)
	r.vtable.receiver_data = unsafe.Pointer(r.handle)
	C.validator_install_metadata_receiver_vtable(&r.vtable)
	return r
}

// VtablePtr exposes the C vtable for pkg/testcases' preset-discovery crawl
// to pass into a provider's get_metadata() call.
func (r *MetadataReceiver) VtablePtr() unsafe.Pointer { return unsafe.Pointer(&r.vtable) }

// Close releases the receiver's cgo handle. Call only after the provider's
// get_metadata() has returned.
func (r *MetadataReceiver) Close() { r.handle.Delete() }

// Finish flushes any pending preset and returns the accumulated result.
func (r *MetadataReceiver) Finish() (PresetFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	return r.result, r.err
}

func (r *MetadataReceiver) flushLocked() {
	if r.next == nil || r.err != nil {
		return
	}

	preset, err := r.next.finalize(r.locationFlags)
	r.next = nil
	if err != nil {
		r.err = err
		return
	}

	switch {
	case !r.hasResult && r.nextLoadKey == nil:
		r.result = PresetFile{Single: &preset}
		r.hasResult = true
	case !r.hasResult && r.nextLoadKey != nil:
		r.result = PresetFile{Container: map[string]Preset{*r.nextLoadKey: preset}}
		r.hasResult = true
	case r.hasResult && r.result.Container != nil && r.nextLoadKey != nil:
		r.result.Container[*r.nextLoadKey] = preset
	default:
		r.err = fmt.Errorf("preset: begin_preset() mixed container and non-container declarations")
	}
	r.nextLoadKey = nil
}

func (r *MetadataReceiver) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

// unixToTime converts a clap_timestamp (Unix seconds) to a time.Time.
func unixToTime(seconds uint64) time.Time {
	return time.Unix(int64(seconds), 0).UTC()
}

func fromHandle(ctx unsafe.Pointer) (*MetadataReceiver, bool) {
	if ctx == nil {
		return nil, false
	}
	v := cgo.Handle(ctx).Value()
	r, ok := v.(*MetadataReceiver)
	return r, ok
}
