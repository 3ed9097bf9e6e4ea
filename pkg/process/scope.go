// Package process implements §4.6 and §4.7: driving one process() call
// against an activated, processing plugin instance, and the consistency
// checks a well-behaved plugin must satisfy on the way out. Grounded on the
// teacher's pkg/api.Plugin.Process signature and pkg/audio's buffer
// plumbing, reworked from "a Go plugin's process loop" into "a host issuing
// process() and auditing the result".
package process

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"

static inline int32_t validator_plugin_process(const clap_plugin_t *p, const clap_process_t *proc) {
    if (!p || !p->process) { return CLAP_PROCESS_ERROR; }
    return p->process(p, proc);
}
*/
import "C"

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/clapgo/clap-validator/pkg/audiobuf"
	"github.com/clapgo/clap-validator/pkg/eventqueue"
	"github.com/clapgo/clap-validator/pkg/instance"
)

// Status mirrors clap_process_status.
type Status int32

const (
	StatusError                Status = 0
	StatusContinue              Status = 1
	StatusContinueIfNotQuiet    Status = 2
	StatusTail                  Status = 3
	StatusSleep                 Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusContinue:
		return "continue"
	case StatusContinueIfNotQuiet:
		return "continue_if_not_quiet"
	case StatusTail:
		return "tail"
	case StatusSleep:
		return "sleep"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// TransportState is the host-synthesized transport snapshot for one
// process() call, mirroring clap_event_transport_t's trailing fields.
type TransportState struct {
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

func (t TransportState) clapTransport() C.clap_event_transport_t {
	var c C.clap_event_transport_t
	c.header.size = C.uint32_t(unsafe.Sizeof(c))
	c.header.time = 0
	c.header.space_id = C.CLAP_CORE_EVENT_SPACE_ID
	c.header.type_ = C.CLAP_EVENT_TRANSPORT
	c.flags = C.uint32_t(t.Flags)
	c.song_pos_beats = C.int64_t(t.SongPosBeats)
	c.song_pos_seconds = C.int64_t(t.SongPosSeconds)
	c.tempo = C.double(t.Tempo)
	c.tempo_inc = C.double(t.TempoInc)
	c.loop_start_beats = C.int64_t(t.LoopStartBeats)
	c.loop_end_beats = C.int64_t(t.LoopEndBeats)
	c.loop_start_seconds = C.int64_t(t.LoopStartSeconds)
	c.loop_end_seconds = C.int64_t(t.LoopEndSeconds)
	c.bar_start = C.int64_t(t.BarStart)
	c.bar_number = C.int32_t(t.BarNumber)
	c.tsig_num = C.uint16_t(t.TsigNum)
	c.tsig_denom = C.uint16_t(t.TsigDenom)
	return c
}

// Scope is ProcessScope: one process() call bundled with the buffers and
// event queues it was issued with, kept around so §4.7's checks can inspect
// the result afterward.
type Scope struct {
	inst      *instance.Instance
	buffers   *audiobuf.Buffers
	in        *eventqueue.Queue
	out       *eventqueue.Queue
	transport TransportState
	steadyTime int64

	preSnapshot []*audiobuf.Buffer // one per input-only port, captured just before process()
}

// NewScope builds a ProcessScope for one call. in/out event queues may be
// freshly constructed per call or reused across a run's calls; the caller
// owns their lifetime.
func NewScope(inst *instance.Instance, buffers *audiobuf.Buffers, in, out *eventqueue.Queue, transport TransportState, steadyTime int64) *Scope {
	return &Scope{inst: inst, buffers: buffers, in: in, out: out, transport: transport, steadyTime: steadyTime}
}

// Run issues exactly one process() call: it poisons output-only buffers,
// snapshots input-only buffers, builds the clap_process_t, calls process(), and
// returns the reported status. It does not itself run the §4.7 checks --
// call Audit after Run to get a list of violations.
func (s *Scope) Run(numFrames uint32) (Status, error) {
	s.buffers.FillOutputsPoison()

	s.preSnapshot = nil
	for _, p := range s.buffers.Ports() {
		if p.Role.IsInput && !p.Role.IsOutput {
			s.preSnapshot = append(s.preSnapshot, p.Snapshot())
		}
	}

	var proc C.clap_process_t
	proc.steady_time = C.int64_t(s.steadyTime)
	proc.frames_count = C.uint32_t(numFrames)

	transport := s.transport.clapTransport()
	proc.transport = &transport

	if ptr, n := s.buffers.ClapInputsPtr(); ptr != nil {
		proc.audio_inputs = (*C.clap_audio_buffer_t)(ptr)
		proc.audio_inputs_count = C.uint32_t(n)
	}
	if ptr, n := s.buffers.ClapOutputsPtr(); ptr != nil {
		proc.audio_outputs = (*C.clap_audio_buffer_t)(ptr)
		proc.audio_outputs_count = C.uint32_t(n)
	}

	proc.in_events = (*C.clap_input_events_t)(s.in.InputVtablePtr())
	proc.out_events = (*C.clap_output_events_t)(s.out.OutputVtablePtr())

	raw := C.validator_plugin_process((*C.clap_plugin_t)(s.inst.ClapPluginPtr()), &proc)
	return Status(raw), nil
}

// Violation is one failed §4.7 consistency check.
type Violation struct {
	Check string
	Detail string
}

func (v Violation) Error() string { return fmt.Sprintf("%s: %s", v.Check, v.Detail) }

// Audit runs every §4.7 post-call consistency check against the buffers
// left behind by the most recent Run and returns every violation found.
func (s *Scope) Audit() []Violation {
	var violations []Violation

	inputIdx := 0
	for portIdx, p := range s.buffers.Ports() {
		if p.Role.IsInput && !p.Role.IsOutput {
			if inputIdx < len(s.preSnapshot) && !p.Equal(s.preSnapshot[inputIdx]) {
				violations = append(violations, Violation{
					Check:  "input-preservation",
					Detail: fmt.Sprintf("out-of-place input port %d was mutated during process()", portIdx),
				})
			}
			inputIdx++
		}

		if p.Role.IsOutput {
			violations = append(violations, s.auditOutputPort(portIdx, p)...)
		}
	}

	return violations
}

func (s *Scope) auditOutputPort(portIdx int, p *audiobuf.Buffer) []Violation {
	var violations []Violation

	allPoisoned := true
	for c := 0; c < p.Channels(); c++ {
		if p.Precision == audiobuf.F32 {
			for _, v := range p.Samples32(c) {
				bits := math.Float32bits(v)
				if bits != math.Float32bits(audiobuf.PoisonF32) {
					allPoisoned = false
				}
				if math.IsNaN(float64(v)) && bits != math.Float32bits(audiobuf.PoisonF32) {
					violations = append(violations, Violation{
						Check:  "output-not-finite",
						Detail: fmt.Sprintf("output port %d channel %d contains an unexpected NaN", portIdx, c),
					})
				}
			}
		} else {
			for _, v := range p.Samples64(c) {
				bits := math.Float64bits(v)
				if bits != math.Float64bits(audiobuf.PoisonF64) {
					allPoisoned = false
				}
				if math.IsNaN(v) && bits != math.Float64bits(audiobuf.PoisonF64) {
					violations = append(violations, Violation{
						Check:  "output-not-finite",
						Detail: fmt.Sprintf("output port %d channel %d contains an unexpected NaN", portIdx, c),
					})
				}
			}
		}
	}

	if allPoisoned {
		violations = append(violations, Violation{
			Check:  "output-uninitialized",
			Detail: fmt.Sprintf("output port %d was never written to (still carries the poison pattern)", portIdx),
		})
	}

	mask := s.buffers.OutputConstantMask(p.Role.Output)
	for c := 0; c < p.Channels() && c < 64; c++ {
		if mask&(1<<uint(c)) == 0 {
			continue
		}
		if !constantChannel(p, c) {
			violations = append(violations, Violation{
				Check:  "constant-mask-mismatch",
				Detail: fmt.Sprintf("output port %d channel %d claims constant_mask bit %d but samples vary", portIdx, c, c),
			})
		}
	}

	return violations
}

func constantChannel(p *audiobuf.Buffer, channel int) bool {
	if p.Precision == audiobuf.F32 {
		s := p.Samples32(channel)
		if len(s) == 0 {
			return true
		}
		first := math.Float32bits(s[0])
		for _, v := range s[1:] {
			if math.Float32bits(v) != first {
				return false
			}
		}
		return true
	}
	s := p.Samples64(channel)
	if len(s) == 0 {
		return true
	}
	first := math.Float64bits(s[0])
	for _, v := range s[1:] {
		if math.Float64bits(v) != first {
			return false
		}
	}
	return true
}
