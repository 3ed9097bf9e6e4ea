// Package eventqueue implements §4.5's bi-directional event container: a
// single storage vector behind a lock, exposed to the plugin through two C
// vtables (an append-only output view, a read-only input view), plus the
// host-side mutators (add_events, clear, last_event_time). Grounded on the
// teacher's pkg/event package (event.go's tagged struct shapes mirror the C
// layout field-for-field; pool.go's preallocation idiom informed the boxed
// storage below), reworked from "events a Go plugin emits" into "events the
// host feeds to, and reads back from, a C plugin".
package eventqueue

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"

extern uint32_t go_events_input_size(clap_input_events_t *list);
extern const clap_event_header_t *go_events_input_get(clap_input_events_t *list, uint32_t index);
extern bool go_events_output_try_push(clap_output_events_t *list, const clap_event_header_t *event);

static inline void validator_install_input_vtable(clap_input_events_t *v) {
    v->size = (uint32_t (*)(const clap_input_events_t *))go_events_input_size;
    v->get = (const clap_event_header_t *(*)(const clap_input_events_t *, uint32_t))go_events_input_get;
}

static inline void validator_install_output_vtable(clap_output_events_t *v) {
    v->try_push = (bool (*)(const clap_output_events_t *, const clap_event_header_t *))go_events_output_try_push;
}
*/
import "C"

import (
	"runtime"
	"runtime/cgo"
	"sort"
	"sync"
	"unsafe"
)

// Kind is the discriminant of Event's tagged union.
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindNoteChoke
	KindNoteEnd
	KindNoteExpression
	KindParamValue
	KindParamMod
	KindParamGestureBegin
	KindParamGestureEnd
	KindTransport
	KindMIDI
	KindMIDISysex
	KindMIDI2
	KindUnknown
)

// Header mirrors clap_event_header_t's field layout exactly (size, time,
// space_id, type, flags) so a *Header can be reinterpreted as a
// *C.clap_event_header_t across the cgo boundary.
type Header struct {
	Size    uint32
	Time    uint32
	SpaceID uint16
	Type    uint16
	Flags   uint32
}

// NoteData mirrors clap_event_note_t's trailing fields.
type NoteData struct {
	NoteID   int32
	Port     int16
	Channel  int16
	Key      int16
	Velocity float64
}

// ExpressionData mirrors clap_event_note_expression_t's trailing fields.
type ExpressionData struct {
	ExpressionID int32
	NoteID       int32
	Port         int16
	Channel      int16
	Key          int16
	Value        float64
}

// ParamValueData mirrors clap_event_param_value_t's trailing fields.
type ParamValueData struct {
	ParamID uint32
	Cookie  unsafe.Pointer
	NoteID  int32
	Port    int16
	Channel int16
	Key     int16
	Value   float64
}

// ParamModData mirrors clap_event_param_mod_t's trailing fields.
type ParamModData struct {
	ParamID uint32
	Cookie  unsafe.Pointer
	NoteID  int32
	Port    int16
	Channel int16
	Key     int16
	Amount  float64
}

// GestureData mirrors clap_event_param_gesture_t's trailing fields.
type GestureData struct {
	ParamID uint32
}

// TransportData mirrors clap_event_transport_t's trailing fields.
type TransportData struct {
	Flags            uint32
	SongPosBeats     int64
	SongPosSeconds   int64
	Tempo            float64
	TempoInc         float64
	LoopStartBeats   int64
	LoopEndBeats     int64
	LoopStartSeconds int64
	LoopEndSeconds   int64
	BarStart         int64
	BarNumber        int32
	TsigNum          uint16
	TsigDenom        uint16
}

// MIDIData mirrors clap_event_midi_t's trailing fields.
type MIDIData struct {
	PortIndex uint16
	Data      [3]byte
}

// MIDISysexData holds a copy of the sysex payload (the C struct only holds a
// borrowed pointer, which would otherwise dangle past the process() call).
type MIDISysexData struct {
	PortIndex uint16
	Buffer    []byte
}

// MIDI2Data mirrors clap_event_midi2_t's trailing fields.
type MIDI2Data struct {
	PortIndex uint16
	Data      [4]uint32
}

// Event is §3's tagged union of event kinds, plus the shared header.
type Event struct {
	Header     Header
	Kind       Kind
	Note       NoteData
	Expression ExpressionData
	ParamValue ParamValueData
	ParamMod   ParamModData
	Gesture    GestureData
	Transport  TransportData
	MIDI       MIDIData
	MIDISysex  MIDISysexData
	MIDI2      MIDI2Data
	RawType    uint16 // preserved for Unknown events
	RawSpace   uint16
}

// boxedEvent is the fixed-address storage cell for one queued event. The
// Header field comes first so a *boxedEvent can be reinterpreted as a
// *C.clap_event_header_t, mirroring how the real ABI lets a plugin cast a
// clap_event_header_t* to the concrete event type once it has read `type`.
type boxedEvent struct {
	Event
}

// Queue is EventQueue: a pinned, lock-protected vector of boxed events plus
// the two C vtables the plugin reads from and writes to.
type Queue struct {
	mu     sync.Mutex
	events []*boxedEvent
	pinner runtime.Pinner

	handle cgo.Handle
	input  C.clap_input_events_t
	output C.clap_output_events_t
}

// New constructs an empty, pinned EventQueue.
func New() *Queue {
	q := &Queue{}
	q.handle = cgo.NewHandle(q)
	q.input.ctx = unsafe.Pointer(q.handle)
	q.output.ctx = unsafe.Pointer(q.handle)
	C.validator_install_input_vtable(&q.input)
	C.validator_install_output_vtable(&q.output)
	q.pinner.Pin(q)
	return q
}

// Close releases the pinner and the cgo handle. Must be called once the
// queue's vtables are no longer reachable from any C code.
func (q *Queue) Close() {
	q.pinner.Unpin()
	q.handle.Delete()
}

// InputVtablePtr / OutputVtablePtr expose the C structs for pkg/process to
// install on a clap_process_t.
func (q *Queue) InputVtablePtr() unsafe.Pointer  { return unsafe.Pointer(&q.input) }
func (q *Queue) OutputVtablePtr() unsafe.Pointer { return unsafe.Pointer(&q.output) }

// Len returns the number of events currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// At returns a copy of the event at index i (host-side convenience; the C
// side instead calls go_events_input_get and gets a live pointer).
func (q *Queue) At(i int) Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.events[i].Event
}

// All returns a snapshot copy of every queued event, in storage order.
func (q *Queue) All() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Event, len(q.events))
	for i, e := range q.events {
		out[i] = e.Event
	}
	return out
}

// Clear empties the queue. Boxed events stay pinned for the Queue's own
// lifetime (the pinner is unpinned as a whole in Close); dropping the slice
// here just makes them unreachable from Go so the C side can never read a
// cleared event back out.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = nil
}

// LastEventTime returns the time field of the final queued event and true,
// or (0, false) if the queue is empty; used by the sample-accurate fuzzer
// (§4.8).
func (q *Queue) LastEventTime() (uint32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return 0, false
	}
	return q.events[len(q.events)-1].Header.Time, true
}

// AddEvents appends a batch of host-generated events (from pkg/generators)
// and, if the queue already held events, re-sorts the whole vector by
// header.time so monotonic ordering is preserved (§4.5).
func (q *Queue) AddEvents(events ...Event) {
	if len(events) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	hadEvents := len(q.events) > 0
	for _, e := range events {
		box := &boxedEvent{Event: e}
		q.pinner.Pin(box)
		q.events = append(q.events, box)
	}

	if hadEvents {
		sort.SliceStable(q.events, func(i, j int) bool {
			return q.events[i].Header.Time < q.events[j].Header.Time
		})
	}
}

// push is called from the output vtable trampoline when the plugin appends
// an event, after the trampoline has discriminated on (space_id, type) and
// copied the event into an Event; push stores it in owned, pinned storage.
func (q *Queue) push(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	box := &boxedEvent{Event: e}
	q.pinner.Pin(box)
	q.events = append(q.events, box)
	return true
}

func fromHandle(ctx unsafe.Pointer) (*Queue, bool) {
	if ctx == nil {
		return nil, false
	}
	v := cgo.Handle(ctx).Value()
	q, ok := v.(*Queue)
	return q, ok
}

// classify maps a (space_id, type) pair read off a raw C event header to a
// Kind, defaulting to KindUnknown for anything the validator does not
// recognize -- matching §4.5's "everything else maps to Unknown".
func classify(spaceID, typ uint16) Kind {
	if spaceID != 0 {
		return KindUnknown
	}
	switch typ {
	case 0:
		return KindNoteOn
	case 1:
		return KindNoteOff
	case 2:
		return KindNoteChoke
	case 3:
		return KindNoteEnd
	case 4:
		return KindNoteExpression
	case 5:
		return KindParamValue
	case 6:
		return KindParamMod
	case 7:
		return KindParamGestureBegin
	case 8:
		return KindParamGestureEnd
	case 9:
		return KindTransport
	case 10:
		return KindMIDI
	case 11:
		return KindMIDISysex
	case 12:
		return KindMIDI2
	default:
		return KindUnknown
	}
}
