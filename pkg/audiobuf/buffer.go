// Package audiobuf implements §4.4's audio buffer model: constructing
// in-place/out-of-place, single/double precision audio buffers from a
// plugin's declared port layout, and exposing them as the C ABI's
// clap_audio_buffer_t pointer arrays. Grounded on the teacher's
// pkg/audio/buffer.go (channel-major sample storage) and pkg/audio/ports.go
// (port layout description), generalized from "buffers a Go plugin renders
// into" to "buffers a host fills and inspects around a plugin's process()".
package audiobuf

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
*/
import "C"

import (
	"fmt"
	"math"
	"unsafe"
)

// Precision selects 32- or 64-bit sample storage for a buffer.
type Precision int

const (
	F32 Precision = iota
	F64
)

// PoisonF32 / PoisonF64 are the quiet-NaN bit patterns from the glossary,
// pre-written to every output-only buffer before each process() call so an
// uninitialized write can be detected.
var (
	PoisonF32 = math.Float32frombits(0x7FC01234)
	PoisonF64 = math.Float64frombits(0x7FF8123456781234)
)

// Role tags a buffer as belonging to an input port, an output port, or a
// shared in-place (input, output) pair, per the glossary's "In-place pair".
type Role struct {
	Input, Output int
	IsInput       bool
	IsOutput      bool
}

func InputRole(i int) Role        { return Role{Input: i, IsInput: true} }
func OutputRole(o int) Role       { return Role{Output: o, IsOutput: true} }
func InPlaceRole(i, o int) Role   { return Role{Input: i, Output: o, IsInput: true, IsOutput: true} }

// PortSpec describes one declared audio port: its channel count, whether it
// is the plugin's designated main port, whether it supports 64-bit
// precision, and (for input ports) the output index it may be paired with
// in-place.
type PortSpec struct {
	Channels      uint32
	IsMain        bool
	Supports64Bit bool
	InPlacePair   *int // index into the output port list, nil if unpaired
}

// PortLayout is the plugin's declared list of input and output ports, as
// read through the audio-ports extension.
type PortLayout struct {
	Inputs  []PortSpec
	Outputs []PortSpec
}

// Supports64Bit reports whether every declared port supports double
// precision, the condition under which 64-bit buffers may be used (§4.4).
func (l PortLayout) Supports64Bit() bool {
	for _, p := range l.Inputs {
		if !p.Supports64Bit {
			return false
		}
	}
	for _, p := range l.Outputs {
		if !p.Supports64Bit {
			return false
		}
	}
	return len(l.Inputs) > 0 || len(l.Outputs) > 0
}

// Buffer is a single AudioBuffer: channel-major rectangular sample storage
// for one port (or in-place pair), in either precision.
type Buffer struct {
	Role      Role
	Precision Precision

	numSamples uint32
	data32     [][]float32 // nil unless Precision == F32
	data64     [][]float64 // nil unless Precision == F64

	// pointers holds the channel-pointer array handed to the C ABI; it must
	// never be reallocated once published, since the plugin may cache it
	// for the scope of one process() call.
	pointers32 []*C.float
	pointers64 []*C.double
}

// NewBuffer allocates a buffer with channels*numSamples zeroed samples.
func NewBuffer(role Role, precision Precision, channels, numSamples uint32) *Buffer {
	b := &Buffer{Role: role, Precision: precision, numSamples: numSamples}
	switch precision {
	case F32:
		b.data32 = make([][]float32, channels)
		b.pointers32 = make([]*C.float, channels)
		for c := range b.data32 {
			b.data32[c] = make([]float32, numSamples)
			b.pointers32[c] = (*C.float)(unsafe.Pointer(&b.data32[c][0]))
		}
	case F64:
		b.data64 = make([][]float64, channels)
		b.pointers64 = make([]*C.double, channels)
		for c := range b.data64 {
			b.data64[c] = make([]float64, numSamples)
			b.pointers64[c] = (*C.double)(unsafe.Pointer(&b.data64[c][0]))
		}
	}
	return b
}

// Channels returns the channel count.
func (b *Buffer) Channels() int {
	if b.Precision == F32 {
		return len(b.data32)
	}
	return len(b.data64)
}

// Samples32 / Samples64 give direct slice access for fill strategies and
// consistency checks. Samples32 panics if the buffer is 64-bit and vice
// versa.
func (b *Buffer) Samples32(channel int) []float32 { return b.data32[channel] }
func (b *Buffer) Samples64(channel int) []float64 { return b.data64[channel] }

// Snapshot returns a deep copy of the buffer's current contents, used by
// §4.7's input-preservation check.
func (b *Buffer) Snapshot() *Buffer {
	n := b.numSamples
	clone := NewBuffer(b.Role, b.Precision, uint32(b.Channels()), n)
	for c := 0; c < b.Channels(); c++ {
		if b.Precision == F32 {
			copy(clone.data32[c], b.data32[c])
		} else {
			copy(clone.data64[c], b.data64[c])
		}
	}
	return clone
}

// Equal does a bit-exact comparison against another buffer of the same
// shape, used to verify an input buffer was not mutated during an
// out-of-place process() call.
func (b *Buffer) Equal(other *Buffer) bool {
	if b.Channels() != other.Channels() || b.Precision != other.Precision {
		return false
	}
	for c := 0; c < b.Channels(); c++ {
		if b.Precision == F32 {
			if !equal32(b.data32[c], other.data32[c]) {
				return false
			}
		} else if !equal64(b.data64[c], other.data64[c]) {
			return false
		}
	}
	return true
}

func equal32(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}

func equal64(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// FillSilence zeroes every sample.
func (b *Buffer) FillSilence() {
	for c := 0; c < b.Channels(); c++ {
		if b.Precision == F32 {
			clear32(b.data32[c])
		} else {
			clear64(b.data64[c])
		}
	}
}

func clear32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
func clear64(s []float64) {
	for i := range s {
		s[i] = 0
	}
}

// FillPoison pre-fills every sample with the poison NaN pattern, used for
// output-only buffers before each process() call (§4.4, §8 invariant 2).
func (b *Buffer) FillPoison() {
	for c := 0; c < b.Channels(); c++ {
		if b.Precision == F32 {
			for i := range b.data32[c] {
				b.data32[c][i] = PoisonF32
			}
		} else {
			for i := range b.data64[c] {
				b.data64[c][i] = PoisonF64
			}
		}
	}
}

// FillWhiteNoise fills every sample with noise from next in [-1, 1],
// clamping subnormals to zero per §4.4's "white noise with subnormal
// clamp-to-zero" fill strategy.
func (b *Buffer) FillWhiteNoise(next func() float64) {
	for c := 0; c < b.Channels(); c++ {
		if b.Precision == F32 {
			for i := range b.data32[c] {
				v := float32(next()*2 - 1)
				if isSubnormal32(v) {
					v = 0
				}
				b.data32[c][i] = v
			}
		} else {
			for i := range b.data64[c] {
				v := next()*2 - 1
				if isSubnormal64(v) {
					v = 0
				}
				b.data64[c][i] = v
			}
		}
	}
}

func isSubnormal32(v float32) bool {
	if v == 0 {
		return false
	}
	bits := math.Float32bits(v)
	exp := (bits >> 23) & 0xFF
	return exp == 0
}

func isSubnormal64(v float64) bool {
	if v == 0 {
		return false
	}
	bits := math.Float64bits(v)
	exp := (bits >> 52) & 0x7FF
	return exp == 0
}

// clapBuffer builds the clap_audio_buffer_t view of this buffer for one side
// (input or output) of a port.
func (b *Buffer) clapBuffer() C.clap_audio_buffer_t {
	var out C.clap_audio_buffer_t
	out.channel_count = C.uint32_t(b.Channels())
	if b.Precision == F32 {
		if len(b.pointers32) > 0 {
			out.data32 = (**C.float)(unsafe.Pointer(&b.pointers32[0]))
		}
	} else {
		if len(b.pointers64) > 0 {
			out.data64 = (**C.double)(unsafe.Pointer(&b.pointers64[0]))
		}
	}
	return out
}

// Buffers is AudioBuffers: every per-port buffer plus the sidecar
// clap_audio_buffer_t arrays the process struct points to.
type Buffers struct {
	ports      []*Buffer
	numInputs  int
	numOutputs int
	numSamples uint32

	clapInputs  []C.clap_audio_buffer_t
	clapOutputs []C.clap_audio_buffer_t
}

// NewOutOfPlace builds one independent buffer per declared input and output
// port -- no sharing (§4.4 "Out-of-place").
func NewOutOfPlace(layout PortLayout, numSamples uint32, precision Precision) *Buffers {
	bufs := &Buffers{numSamples: numSamples, numInputs: len(layout.Inputs), numOutputs: len(layout.Outputs)}
	bufs.clapInputs = make([]C.clap_audio_buffer_t, len(layout.Inputs))
	bufs.clapOutputs = make([]C.clap_audio_buffer_t, len(layout.Outputs))

	for i, p := range layout.Inputs {
		b := NewBuffer(InputRole(i), precision, p.Channels, numSamples)
		bufs.ports = append(bufs.ports, b)
		bufs.clapInputs[i] = b.clapBuffer()
	}
	for o, p := range layout.Outputs {
		b := NewBuffer(OutputRole(o), precision, p.Channels, numSamples)
		bufs.ports = append(bufs.ports, b)
		bufs.clapOutputs[o] = b.clapBuffer()
	}
	return bufs
}

// NewInPlace builds a single shared buffer for every output port whose
// declared in-place pair input has a matching channel count; all other
// ports get independent buffers (§4.4 "In-place").
func NewInPlace(layout PortLayout, numSamples uint32, precision Precision) *Buffers {
	bufs := &Buffers{numSamples: numSamples, numInputs: len(layout.Inputs), numOutputs: len(layout.Outputs)}
	bufs.clapInputs = make([]C.clap_audio_buffer_t, len(layout.Inputs))
	bufs.clapOutputs = make([]C.clap_audio_buffer_t, len(layout.Outputs))

	pairedInput := make(map[int]int) // input index -> output index
	for i, p := range layout.Inputs {
		if p.InPlacePair == nil {
			continue
		}
		out := *p.InPlacePair
		if out < len(layout.Outputs) && layout.Outputs[out].Channels == p.Channels {
			pairedInput[i] = out
		}
	}

	outputHandled := make(map[int]bool)
	for i, p := range layout.Inputs {
		if out, ok := pairedInput[i]; ok {
			b := NewBuffer(InPlaceRole(i, out), precision, p.Channels, numSamples)
			bufs.ports = append(bufs.ports, b)
			bufs.clapInputs[i] = b.clapBuffer()
			bufs.clapOutputs[out] = b.clapBuffer()
			outputHandled[out] = true
			continue
		}
		b := NewBuffer(InputRole(i), precision, p.Channels, numSamples)
		bufs.ports = append(bufs.ports, b)
		bufs.clapInputs[i] = b.clapBuffer()
	}
	for o, p := range layout.Outputs {
		if outputHandled[o] {
			continue
		}
		b := NewBuffer(OutputRole(o), precision, p.Channels, numSamples)
		bufs.ports = append(bufs.ports, b)
		bufs.clapOutputs[o] = b.clapBuffer()
	}
	return bufs
}

// Ports returns every AudioBuffer, in port-declaration order, for use by
// §4.7's consistency checks and the fill strategies.
func (b *Buffers) Ports() []*Buffer { return b.ports }

// NumSamples returns the buffer's block size.
func (b *Buffers) NumSamples() uint32 { return b.numSamples }

// ClapInputsPtr / ClapOutputsPtr expose the sidecar arrays as untyped
// pointers so pkg/process -- which has its own cgo-generated clap_process_t
// type -- can reinterpret them as its own clap_audio_buffer_t view. cgo
// scopes generated C types per importing package, so a *C.clap_audio_buffer_t
// minted here is not assignable in pkg/process even though both describe the
// same C struct; unsafe.Pointer is the documented way around that.
func (b *Buffers) ClapInputsPtr() (unsafe.Pointer, uint32) {
	if len(b.clapInputs) == 0 {
		return nil, 0
	}
	return unsafe.Pointer(&b.clapInputs[0]), uint32(len(b.clapInputs))
}

func (b *Buffers) ClapOutputsPtr() (unsafe.Pointer, uint32) {
	if len(b.clapOutputs) == 0 {
		return nil, 0
	}
	return unsafe.Pointer(&b.clapOutputs[0]), uint32(len(b.clapOutputs))
}

// OutputConstantMask reads back the constant_mask bitfield the plugin may
// have set on output port index during process(), per §4.7's constant-mask
// consistency check: bit c set means every sample in channel c was written
// as a single repeated value.
func (b *Buffers) OutputConstantMask(index int) uint64 {
	return uint64(b.clapOutputs[index].constant_mask)
}

// FillOutputsPoison pre-fills every output-only buffer with the poison
// pattern, as required before every process() call. In-place buffers keep
// their input contents.
func (b *Buffers) FillOutputsPoison() {
	for _, p := range b.ports {
		if p.Role.IsOutput && !p.Role.IsInput {
			p.FillPoison()
		}
	}
}

// Validate checks the AudioBuffers invariant: every declared input and
// output index is covered exactly once.
func (b *Buffers) Validate() error {
	if len(b.clapInputs) != b.numInputs {
		return fmt.Errorf("audiobuf: expected %d input ports, got %d", b.numInputs, len(b.clapInputs))
	}
	if len(b.clapOutputs) != b.numOutputs {
		return fmt.Errorf("audiobuf: expected %d output ports, got %d", b.numOutputs, len(b.clapOutputs))
	}
	inputs, outputs := make([]int, b.numInputs), make([]int, b.numOutputs)
	for _, p := range b.ports {
		if p.Role.IsInput && p.Role.Input >= 0 && p.Role.Input < len(inputs) {
			inputs[p.Role.Input]++
		}
		if p.Role.IsOutput && p.Role.Output >= 0 && p.Role.Output < len(outputs) {
			outputs[p.Role.Output]++
		}
	}
	for side, covered := range map[string][]int{"input": inputs, "output": outputs} {
		for i, n := range covered {
			if n != 1 {
				return fmt.Errorf("audiobuf: %s port %d is covered by %d buffers, expected exactly one", side, i, n)
			}
		}
	}
	return nil
}
