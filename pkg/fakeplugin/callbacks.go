package fakeplugin

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <string.h>
*/
import "C"

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"
)

//export go_fp_init
func go_fp_init(p *C.clap_plugin_t) C.bool {
	_, ok := fromHandle(p)
	return C.bool(ok)
}

//export go_fp_destroy
func go_fp_destroy(p *C.clap_plugin_t) {
	s, ok := fromHandle(p)
	if !ok {
		return
	}
	s.handle.Delete()
	C.free(unsafe.Pointer(s.paramsVtable))
	C.free(unsafe.Pointer(s.stateVtable))
	C.free(unsafe.Pointer(p))
}

//export go_fp_activate
func go_fp_activate(p *C.clap_plugin_t, sampleRate C.double, _, _ C.uint32_t) C.bool {
	s, ok := fromHandle(p)
	if !ok {
		return C.bool(false)
	}
	s.mu.Lock()
	s.sampleRate = float64(sampleRate)
	s.voices = nil
	s.mu.Unlock()
	return C.bool(true)
}

//export go_fp_deactivate
func go_fp_deactivate(p *C.clap_plugin_t) {
	if s, ok := fromHandle(p); ok {
		s.mu.Lock()
		s.voices = nil
		s.mu.Unlock()
	}
}

//export go_fp_start_processing
func go_fp_start_processing(p *C.clap_plugin_t) C.bool {
	_, ok := fromHandle(p)
	return C.bool(ok)
}

//export go_fp_stop_processing
func go_fp_stop_processing(p *C.clap_plugin_t) {}

//export go_fp_reset
func go_fp_reset(p *C.clap_plugin_t) {
	if s, ok := fromHandle(p); ok {
		s.mu.Lock()
		s.voices = nil
		s.mu.Unlock()
	}
}

//export go_fp_on_main_thread
func go_fp_on_main_thread(p *C.clap_plugin_t) {}

//export go_fp_get_extension
func go_fp_get_extension(p *C.clap_plugin_t, id *C.char) unsafe.Pointer {
	s, ok := fromHandle(p)
	if !ok {
		return nil
	}
	switch C.GoString(id) {
	case "clap.params":
		return unsafe.Pointer(s.paramsVtable)
	case "clap.state":
		return unsafe.Pointer(s.stateVtable)
	default:
		return nil
	}
}

//export go_fp_process
func go_fp_process(p *C.clap_plugin_t, proc *C.clap_process_t) C.int32_t {
	s, ok := fromHandle(p)
	if !ok {
		return C.CLAP_PROCESS_ERROR
	}

	numFrames := uint32(proc.frames_count)
	s.mu.Lock()
	defer s.mu.Unlock()

	if proc.in_events != nil {
		count := uint32(callSize(proc.in_events))
		for i := uint32(0); i < count; i++ {
			hdr := callGet(proc.in_events, i)
			if hdr == nil {
				continue
			}
			s.handleEventLocked(hdr)
		}
	}

	if proc.audio_outputs_count > 0 && proc.audio_outputs != nil {
		out := proc.audio_outputs
		channels := int(out.channel_count)
		if channels > 0 && out.data32 != nil {
			ptrs := unsafe.Slice(out.data32, channels)
			for c := 0; c < channels; c++ {
				buf := unsafe.Slice((*float32)(unsafe.Pointer(ptrs[c])), numFrames)
				for i := uint32(0); i < numFrames; i++ {
					buf[i] = float32(s.renderSampleLocked())
				}
			}
		}
	}

	return C.CLAP_PROCESS_CONTINUE
}

// renderSampleLocked advances every active voice by one sample and returns
// the mixed, volume-scaled output. Caller holds s.mu.
func (s *Synth) renderSampleLocked() float64 {
	volume := float64(math.Float32frombits(s.volumeBits)) + s.volumeMod
	if volume < 0 {
		volume = 0
	}

	var mix float64
	for i := range s.voices {
		v := &s.voices[i]
		mix += math.Sin(2*math.Pi*v.phase) * v.velocity
		v.phase += v.freq / s.sampleRate
		if v.phase >= 1 {
			v.phase -= math.Floor(v.phase)
		}
	}
	return mix * volume
}

func (s *Synth) handleEventLocked(hdr *C.clap_event_header_t) {
	if hdr.space_id != C.CLAP_CORE_EVENT_SPACE_ID {
		return
	}
	switch hdr.type_ {
	case C.CLAP_EVENT_NOTE_ON:
		e := (*C.clap_event_note_t)(unsafe.Pointer(hdr))
		s.voices = append(s.voices, voice{
			noteID:   int32(e.note_id),
			key:      int16(e.key),
			channel:  int16(e.channel),
			freq:     keyToFrequency(int16(e.key)),
			velocity: float64(e.velocity),
		})
	case C.CLAP_EVENT_NOTE_OFF, C.CLAP_EVENT_NOTE_CHOKE:
		e := (*C.clap_event_note_t)(unsafe.Pointer(hdr))
		s.removeVoiceLocked(int32(e.note_id), int16(e.key))
	case C.CLAP_EVENT_PARAM_VALUE:
		e := (*C.clap_event_param_value_t)(unsafe.Pointer(hdr))
		if uint32(e.param_id) == ParamVolumeID {
			s.volumeBits = math.Float32bits(float32(e.value))
		}
	case C.CLAP_EVENT_PARAM_MOD:
		e := (*C.clap_event_param_mod_t)(unsafe.Pointer(hdr))
		if uint32(e.param_id) == ParamVolumeID {
			s.volumeMod = float64(e.amount)
		}
	}
}

func (s *Synth) removeVoiceLocked(noteID int32, key int16) {
	out := s.voices[:0]
	for _, v := range s.voices {
		if v.noteID == noteID || v.key == key {
			continue
		}
		out = append(out, v)
	}
	s.voices = out
}

// callSize/callGet invoke the input event list's C function pointers
// directly; pkg/eventqueue is the Go-side implementation of these vtables
// when the validator is the host, but here the fake plugin is the *reader*
// of whatever vtable the host installed, so it must go through the function
// pointers rather than pkg/eventqueue's Go API.
func callSize(list *C.clap_input_events_t) C.uint32_t {
	if list == nil || list.size == nil {
		return 0
	}
	return C.invoke_events_size(list)
}

func callGet(list *C.clap_input_events_t, index uint32) *C.clap_event_header_t {
	if list == nil || list.get == nil {
		return nil
	}
	return C.invoke_events_get(list, C.uint32_t(index))
}

//export go_fp_params_count
func go_fp_params_count(p *C.clap_plugin_t) C.uint32_t { return 1 }

//export go_fp_params_get_info
func go_fp_params_get_info(p *C.clap_plugin_t, index C.uint32_t, info *C.clap_param_info_t) C.bool {
	if index != 0 {
		return C.bool(false)
	}
	info.id = C.clap_id(ParamVolumeID)
	info.flags = C.CLAP_PARAM_IS_AUTOMATABLE | C.CLAP_PARAM_IS_MODULATABLE
	info.min_value = 0
	info.max_value = 1
	info.default_value = defaultVolume
	name := C.CString("Volume")
	defer C.free(unsafe.Pointer(name))
	C.validator_fp_copy_cstr(&info.name[0], 256, name)
	return C.bool(true)
}

//export go_fp_params_get_value
func go_fp_params_get_value(p *C.clap_plugin_t, id C.clap_id, value *C.double) C.bool {
	s, ok := fromHandle(p)
	if !ok || uint32(id) != ParamVolumeID {
		return C.bool(false)
	}
	*value = C.double(s.volume())
	return C.bool(true)
}

//export go_fp_params_value_to_text
func go_fp_params_value_to_text(p *C.clap_plugin_t, id C.clap_id, value C.double, buf *C.char, bufSize C.uint32_t) C.bool {
	if uint32(id) != ParamVolumeID {
		return C.bool(false)
	}
	text := fmt.Sprintf("%.2f %%", float64(value)*100)
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))
	C.validator_fp_copy_cstr(buf, C.size_t(bufSize), cText)
	return C.bool(true)
}

//export go_fp_params_text_to_value
func go_fp_params_text_to_value(p *C.clap_plugin_t, id C.clap_id, text *C.char, value *C.double) C.bool {
	if uint32(id) != ParamVolumeID {
		return C.bool(false)
	}
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(C.GoString(text)), "%"))
	pct, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return C.bool(false)
	}
	*value = C.double(pct / 100)
	return C.bool(true)
}

//export go_fp_params_flush
func go_fp_params_flush(p *C.clap_plugin_t, in *C.clap_input_events_t, out *C.clap_output_events_t) {
	s, ok := fromHandle(p)
	if !ok || in == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := uint32(callSize(in))
	for i := uint32(0); i < count; i++ {
		if hdr := callGet(in, i); hdr != nil {
			s.handleEventLocked(hdr)
		}
	}
}

//export go_fp_state_save
func go_fp_state_save(p *C.clap_plugin_t, stream *C.clap_ostream_t) C.bool {
	s, ok := fromHandle(p)
	if !ok || stream == nil || stream.write == nil {
		return C.bool(false)
	}

	var buf [8]byte
	copy(buf[:4], stateMagic)
	volBits := s.volume()
	buf[4] = byte(math.Float32bits(volBits))
	buf[5] = byte(math.Float32bits(volBits) >> 8)
	buf[6] = byte(math.Float32bits(volBits) >> 16)
	buf[7] = byte(math.Float32bits(volBits) >> 24)

	n := C.invoke_ostream_write(stream, unsafe.Pointer(&buf[0]), C.uint64_t(len(buf)))
	return C.bool(int64(n) == int64(len(buf)))
}

//export go_fp_state_load
func go_fp_state_load(p *C.clap_plugin_t, stream *C.clap_istream_t) C.bool {
	s, ok := fromHandle(p)
	if !ok || stream == nil || stream.read == nil {
		return C.bool(false)
	}

	var buf [8]byte
	n := C.invoke_istream_read(stream, unsafe.Pointer(&buf[0]), C.uint64_t(len(buf)))
	if int64(n) != int64(len(buf)) || string(buf[:4]) != stateMagic {
		return C.bool(false)
	}

	bits := uint32(buf[4]) | uint32(buf[5])<<8 | uint32(buf[6])<<16 | uint32(buf[7])<<24
	s.setVolume(math.Float32frombits(bits))
	return C.bool(true)
}
