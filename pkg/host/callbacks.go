package host

/*
#include "clap_validator_abi.h"
*/
import "C"

import "unsafe"

// This file is the §4.2 "host callback surface" table, one exported C
// trampoline per entry. Every function recovers the SharedState from
// host_data (a cgo.Handle, checked for a null/bad pointer first), checks the
// calling goroutine against the expected role, performs the callback's
// effect, and returns.

//export go_host_get_extension
func go_host_get_extension(rawHost *C.clap_host_t, extensionID *C.char) unsafe.Pointer {
	s, ok := fromHost(rawHost)
	if !ok {
		return nil
	}
	id := C.GoString(extensionID)
	switch id {
	case C.CLAP_EXT_AUDIO_PORTS:
		return unsafe.Pointer(&s.hAudioPorts)
	case C.CLAP_EXT_NOTE_PORTS:
		return unsafe.Pointer(&s.hNotePorts)
	case C.CLAP_EXT_PARAMS:
		return unsafe.Pointer(&s.hParams)
	case C.CLAP_EXT_STATE:
		return unsafe.Pointer(&s.hState)
	case C.CLAP_EXT_THREAD_CHECK:
		return unsafe.Pointer(&s.hThreadCheck)
	case C.CLAP_EXT_LATENCY:
		return unsafe.Pointer(&s.hLatency)
	case C.CLAP_EXT_TAIL:
		return unsafe.Pointer(&s.hTail)
	case C.CLAP_EXT_VOICE_INFO:
		return unsafe.Pointer(&s.hVoiceInfo)
	default:
		return nil
	}
}

//export go_host_request_restart
func go_host_request_restart(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.log.Trace("request_restart called")
	s.requestedRestart.Store(true)
}

//export go_host_request_process
func go_host_request_process(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.log.Trace("request_process called")
	s.enqueue(EvRequestProcess)
}

//export go_host_request_callback
func go_host_request_callback(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.log.Trace("request_callback called")
	s.requestedCallback.Store(true)
	s.enqueue(EvCallbackRequest)
}

//export go_host_audio_ports_is_rescan_flag_supported
func go_host_audio_ports_is_rescan_flag_supported(rawHost *C.clap_host_t, _ C.uint32_t) C.bool {
	s, ok := fromHost(rawHost)
	if !ok {
		return false
	}
	s.assertMainThread("clap_host_audio_ports::is_rescan_flag_supported()")
	return true
}

//export go_host_audio_ports_rescan
func go_host_audio_ports_rescan(rawHost *C.clap_host_t, flags C.uint32_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertMainThread("clap_host_audio_ports::rescan()")

	if flags&C.CLAP_AUDIO_PORTS_RESCAN_NAMES != 0 {
		s.enqueue(EvAudioPortsRescanNames)
	}
	if flags&^C.uint32_t(C.CLAP_AUDIO_PORTS_RESCAN_NAMES) != 0 {
		if s.Status() >= Activated {
			s.setCallbackError("'clap_host_audio_ports::rescan()' was called while the plugin was activated")
		}
		s.enqueue(EvAudioPortsRescanAll)
	}
}

//export go_host_note_ports_supported_dialects
func go_host_note_ports_supported_dialects(rawHost *C.clap_host_t) C.uint32_t {
	s, ok := fromHost(rawHost)
	if !ok {
		return 0
	}
	s.assertMainThread("clap_host_note_ports::supported_dialects()")
	return C.CLAP_NOTE_DIALECT_CLAP | C.CLAP_NOTE_DIALECT_MIDI | C.CLAP_NOTE_DIALECT_MIDI_MPE
}

//export go_host_note_ports_rescan
func go_host_note_ports_rescan(rawHost *C.clap_host_t, flags C.uint32_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertMainThread("clap_host_note_ports::rescan()")

	if flags&C.CLAP_NOTE_PORTS_RESCAN_NAMES != 0 {
		s.enqueue(EvNotePortsRescanNames)
	}
	if flags&C.CLAP_NOTE_PORTS_RESCAN_ALL != 0 {
		if s.Status() >= Activated {
			s.setCallbackError("'clap_host_note_ports::rescan(CLAP_NOTE_PORTS_RESCAN_ALL)' was called while the plugin was activated")
		}
		s.enqueue(EvNotePortsRescanAll)
	}
}

//export go_host_params_rescan
func go_host_params_rescan(rawHost *C.clap_host_t, flags C.uint32_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertMainThread("clap_host_params::rescan()")

	if flags&C.CLAP_PARAM_RESCAN_VALUES != 0 {
		s.enqueue(EvParamsRescanValues)
	}
	if flags&C.CLAP_PARAM_RESCAN_TEXT != 0 {
		s.enqueue(EvParamsRescanText)
	}
	if flags&C.CLAP_PARAM_RESCAN_INFO != 0 {
		s.enqueue(EvParamsRescanInfo)
	}
	if flags&C.CLAP_PARAM_RESCAN_ALL != 0 {
		if s.Status() >= Activated {
			s.setCallbackError("'clap_host_params::rescan(CLAP_PARAM_RESCAN_ALL)' was called while the plugin is activated")
		}
		s.enqueue(EvParamsRescanAll)
	}
}

//export go_host_params_clear
func go_host_params_clear(rawHost *C.clap_host_t, _ C.clap_id, _ C.uint32_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertMainThread("clap_host_params::clear()")
}

//export go_host_params_request_flush
func go_host_params_request_flush(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertNotAudioThread("clap_host_params::request_flush()")
	s.enqueue(EvRequestFlush)
}

//export go_host_state_mark_dirty
func go_host_state_mark_dirty(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertMainThread("clap_host_state::mark_dirty()")
	s.enqueue(EvStateMarkDirty)
}

//export go_host_thread_check_is_main_thread
func go_host_thread_check_is_main_thread(rawHost *C.clap_host_t) C.bool {
	s, ok := fromHost(rawHost)
	if !ok {
		return false
	}
	return C.bool(s.mainThreadID == goroutineID())
}

//export go_host_thread_check_is_audio_thread
func go_host_thread_check_is_audio_thread(rawHost *C.clap_host_t) C.bool {
	s, ok := fromHost(rawHost)
	if !ok {
		return false
	}
	return C.bool(s.audioThreadID.Load() == goroutineID() && s.audioThreadID.Load() != noAudioThread)
}

//export go_host_latency_changed
func go_host_latency_changed(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	if s.Status() != Activating {
		s.setCallbackError("'clap_host_latency::changed()' must only be called within 'clap_plugin::activate()'")
	}
	s.assertMainThread("clap_host_latency::changed()")
	s.enqueue(EvLatencyChanged)
}

//export go_host_tail_changed
func go_host_tail_changed(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertAudioThread("clap_host_tail::changed()")
	s.enqueue(EvTailChanged)
}

//export go_host_voice_info_changed
func go_host_voice_info_changed(rawHost *C.clap_host_t) {
	s, ok := fromHost(rawHost)
	if !ok {
		return
	}
	s.assertMainThread("clap_host_voice_info::changed()")
	s.enqueue(EvVoiceInfoChanged)
}
