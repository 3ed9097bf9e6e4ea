package preset

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
*/
import "C"

import (
	"unsafe"
)

func cstr(s *C.char) (string, bool) {
	if s == nil {
		return "", false
	}
	return C.GoString(s), true
}

//export go_preset_on_error
func go_preset_on_error(rv *C.clap_preset_discovery_metadata_receiver_t, osError C.int32_t, msg *C.char) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	text, _ := cstr(msg)
	r.fail("preset: load error (os error %d): %s", int32(osError), text)
}

//export go_preset_begin_preset
func go_preset_begin_preset(rv *C.clap_preset_discovery_metadata_receiver_t, name, loadKey *C.char) C.bool {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return C.bool(false)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return C.bool(false)
	}

	explicitName, hasName := cstr(name)
	key, hasKey := cstr(loadKey)

	// Finalize the previous preset first, so the checks below see it.
	r.flushLocked()
	if r.err != nil {
		return C.bool(false)
	}

	if r.hasResult && r.result.Single != nil {
		r.fail("preset: begin_preset() called a second time for a non-container preset file")
		return C.bool(false)
	}
	if r.hasResult && r.result.Container != nil && !hasKey {
		r.fail("preset: begin_preset() was called with a load key, then without one")
		return C.bool(false)
	}

	var presetName PresetName
	switch {
	case hasName:
		presetName = PresetName{Explicit: true, Value: explicitName}
	case hasKey:
		r.fail("preset: container presets must specify a preset name")
		return C.bool(false)
	default:
		presetName = PresetName{Explicit: false, Value: r.derivedFileName}
	}

	if hasKey {
		r.nextLoadKey = &key
	} else {
		r.nextLoadKey = nil
	}
	r.next = &partialPreset{name: presetName, extraInfo: map[string]string{}}

	return C.bool(true)
}

//export go_preset_add_plugin_id
func go_preset_add_plugin_id(rv *C.clap_preset_discovery_metadata_receiver_t, id *C.clap_universal_plugin_id_t) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok || id == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: add_plugin_id() called without a preceding begin_preset()")
		return
	}

	abi, _ := cstr(id.abi)
	pluginID, _ := cstr(id.id)
	r.next.pluginIDs = append(r.next.pluginIDs, PluginABI{ABI: abi, ID: pluginID})
}

//export go_preset_set_soundpack_id
func go_preset_set_soundpack_id(rv *C.clap_preset_discovery_metadata_receiver_t, soundpackID *C.char) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: set_soundpack_id() called without a preceding begin_preset()")
		return
	}
	r.next.soundpackID, _ = cstr(soundpackID)
}

//export go_preset_set_flags
func go_preset_set_flags(rv *C.clap_preset_discovery_metadata_receiver_t, flags C.uint32_t) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: set_flags() called without a preceding begin_preset()")
		return
	}
	f := flagsFromBits(uint32(flags))
	r.next.flags = &f
}

//export go_preset_add_creator
func go_preset_add_creator(rv *C.clap_preset_discovery_metadata_receiver_t, creator *C.char) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: add_creator() called without a preceding begin_preset()")
		return
	}
	if c, ok := cstr(creator); ok {
		r.next.creators = append(r.next.creators, c)
	}
}

//export go_preset_set_description
func go_preset_set_description(rv *C.clap_preset_discovery_metadata_receiver_t, description *C.char) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: set_description() called without a preceding begin_preset()")
		return
	}
	r.next.description, _ = cstr(description)
}

// clapTimestampUnknown mirrors CLAP_TIMESTAMP_UNKNOWN (0): "no value".
const clapTimestampUnknown = 0

//export go_preset_set_timestamps
func go_preset_set_timestamps(rv *C.clap_preset_discovery_metadata_receiver_t, creation, modification C.uint64_t) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: set_timestamps() called without a preceding begin_preset()")
		return
	}

	if creation == clapTimestampUnknown && modification == clapTimestampUnknown {
		r.fail("preset: set_timestamps() called with both arguments set to CLAP_TIMESTAMP_UNKNOWN")
		return
	}

	if creation != clapTimestampUnknown {
		t := unixToTime(uint64(creation))
		r.next.creation = &t
	}
	if modification != clapTimestampUnknown {
		t := unixToTime(uint64(modification))
		r.next.modified = &t
	}
}

//export go_preset_add_feature
func go_preset_add_feature(rv *C.clap_preset_discovery_metadata_receiver_t, feature *C.char) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: add_feature() called without a preceding begin_preset()")
		return
	}
	if f, ok := cstr(feature); ok {
		r.next.features = append(r.next.features, f)
	}
}

//export go_preset_add_extra_info
func go_preset_add_extra_info(rv *C.clap_preset_discovery_metadata_receiver_t, key, value *C.char) {
	r, ok := fromHandle(rv.receiver_data)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == nil {
		r.fail("preset: add_extra_info() called without a preceding begin_preset()")
		return
	}

	k, _ := cstr(key)
	v, _ := cstr(value)
	if r.next.extraInfo == nil {
		r.next.extraInfo = map[string]string{}
	}
	r.next.extraInfo[k] = v
}
