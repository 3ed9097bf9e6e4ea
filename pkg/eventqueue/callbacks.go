package eventqueue

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
*/
import "C"

import (
	"unsafe"
)

//export go_events_input_size
func go_events_input_size(list *C.clap_input_events_t) C.uint32_t {
	q, ok := fromHandle(list.ctx)
	if !ok {
		return 0
	}
	return C.uint32_t(q.Len())
}

//export go_events_input_get
func go_events_input_get(list *C.clap_input_events_t, index C.uint32_t) *C.clap_event_header_t {
	q, ok := fromHandle(list.ctx)
	if !ok {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	i := int(index)
	if i < 0 || i >= len(q.events) {
		return nil
	}
	return (*C.clap_event_header_t)(unsafe.Pointer(&q.events[i].Header))
}

//export go_events_output_try_push
func go_events_output_try_push(list *C.clap_output_events_t, event *C.clap_event_header_t) C.bool {
	q, ok := fromHandle(list.ctx)
	if !ok || event == nil {
		return C.bool(false)
	}

	hdr := (*Header)(unsafe.Pointer(event))
	e := Event{Header: *hdr, Kind: classify(hdr.SpaceID, hdr.Type), RawType: hdr.Type, RawSpace: hdr.SpaceID}

	if hdr.SpaceID == 0 {
		switch hdr.Type {
		case 0, 1, 2, 3:
			c := (*C.clap_event_note_t)(unsafe.Pointer(event))
			e.Note = NoteData{
				NoteID:   int32(c.note_id),
				Port:     int16(c.port_index),
				Channel:  int16(c.channel),
				Key:      int16(c.key),
				Velocity: float64(c.velocity),
			}
		case 4:
			c := (*C.clap_event_note_expression_t)(unsafe.Pointer(event))
			e.Expression = ExpressionData{
				ExpressionID: int32(c.expression_id),
				NoteID:       int32(c.note_id),
				Port:         int16(c.port_index),
				Channel:      int16(c.channel),
				Key:          int16(c.key),
				Value:        float64(c.value),
			}
		case 5:
			c := (*C.clap_event_param_value_t)(unsafe.Pointer(event))
			e.ParamValue = ParamValueData{
				ParamID: uint32(c.param_id),
				Cookie:  unsafe.Pointer(c.cookie),
				NoteID:  int32(c.note_id),
				Port:    int16(c.port_index),
				Channel: int16(c.channel),
				Key:     int16(c.key),
				Value:   float64(c.value),
			}
		case 6:
			c := (*C.clap_event_param_mod_t)(unsafe.Pointer(event))
			e.ParamMod = ParamModData{
				ParamID: uint32(c.param_id),
				Cookie:  unsafe.Pointer(c.cookie),
				NoteID:  int32(c.note_id),
				Port:    int16(c.port_index),
				Channel: int16(c.channel),
				Key:     int16(c.key),
				Amount:  float64(c.amount),
			}
		case 7, 8:
			c := (*C.clap_event_param_gesture_t)(unsafe.Pointer(event))
			e.Gesture = GestureData{ParamID: uint32(c.param_id)}
		case 9:
			c := (*C.clap_event_transport_t)(unsafe.Pointer(event))
			e.Transport = TransportData{
				Flags:            uint32(c.flags),
				SongPosBeats:     int64(c.song_pos_beats),
				SongPosSeconds:   int64(c.song_pos_seconds),
				Tempo:            float64(c.tempo),
				TempoInc:         float64(c.tempo_inc),
				LoopStartBeats:   int64(c.loop_start_beats),
				LoopEndBeats:     int64(c.loop_end_beats),
				LoopStartSeconds: int64(c.loop_start_seconds),
				LoopEndSeconds:   int64(c.loop_end_seconds),
				BarStart:         int64(c.bar_start),
				BarNumber:        int32(c.bar_number),
				TsigNum:          uint16(c.tsig_num),
				TsigDenom:        uint16(c.tsig_denom),
			}
		case 10:
			c := (*C.clap_event_midi_t)(unsafe.Pointer(event))
			e.MIDI = MIDIData{PortIndex: uint16(c.port_index), Data: [3]byte{byte(c.data[0]), byte(c.data[1]), byte(c.data[2])}}
		case 11:
			c := (*C.clap_event_midi_sysex_t)(unsafe.Pointer(event))
			buf := C.GoBytes(unsafe.Pointer(c.buffer), C.int(c.size))
			e.MIDISysex = MIDISysexData{PortIndex: uint16(c.port_index), Buffer: buf}
		case 12:
			c := (*C.clap_event_midi2_t)(unsafe.Pointer(event))
			e.MIDI2 = MIDI2Data{PortIndex: uint16(c.port_index), Data: [4]uint32{uint32(c.data[0]), uint32(c.data[1]), uint32(c.data[2]), uint32(c.data[3])}}
		}
	}

	return C.bool(q.push(e))
}
