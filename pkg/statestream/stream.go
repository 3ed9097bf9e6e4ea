// Package statestream implements the host side of clap_istream_t /
// clap_ostream_t: an in-memory byte buffer a plugin's state.save/load calls
// read from and write to, with an optional per-call chunk cap so the
// validator can simulate a buffered, short-read/short-write host transport
// rather than always satisfying a request in one call. Grounded on
// pkg/eventqueue's cgo.Handle + runtime.Pinner vtable-installation idiom,
// reworked from "events a plugin reads/writes" into "bytes a plugin
// reads/writes".
package statestream

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"

extern int64_t go_stream_read(clap_istream_t *stream, void *buffer, uint64_t size);
extern int64_t go_stream_write(clap_ostream_t *stream, const void *buffer, uint64_t size);

static inline void validator_install_istream_vtable(clap_istream_t *v) {
    v->read = (int64_t (*)(const clap_istream_t *, void *, uint64_t))go_stream_read;
}
static inline void validator_install_ostream_vtable(clap_ostream_t *v) {
    v->write = (int64_t (*)(const clap_ostream_t *, const void *, uint64_t))go_stream_write;
}
*/
import "C"

import (
	"runtime"
	"runtime/cgo"
	"sync"
	"unsafe"
)

// Stream is a host-implemented byte stream usable as either an istream (for
// state.load) or an ostream (for state.save), never both in the same call.
type Stream struct {
	mu       sync.Mutex
	buf      []byte
	pos      int
	maxChunk int // 0 means "no cap, satisfy the whole request in one call"
	pinner   runtime.Pinner

	handle  cgo.Handle
	istream C.clap_istream_t
	ostream C.clap_ostream_t
}

// NewInput builds a Stream that yields data's bytes to state.load via reads
// capped at maxChunk bytes each (0 for uncapped), so a plugin that assumes a
// single read() call delivers everything is caught.
func NewInput(data []byte, maxChunk int) *Stream {
	s := &Stream{buf: append([]byte(nil), data...), maxChunk: maxChunk}
	s.init()
	return s
}

// NewOutput builds an empty Stream that accumulates whatever state.save
// writes to it, capping each write's accepted byte count at maxChunk (0 for
// uncapped) to exercise a plugin's short-write retry loop.
func NewOutput(maxChunk int) *Stream {
	s := &Stream{maxChunk: maxChunk}
	s.init()
	return s
}

func (s *Stream) init() {
	s.handle = cgo.NewHandle(s)
	s.istream.ctx = unsafe.Pointer(s.handle)
	s.ostream.ctx = unsafe.Pointer(s.handle)
	C.validator_install_istream_vtable(&s.istream)
	C.validator_install_ostream_vtable(&s.ostream)
	s.pinner.Pin(s)
}

// Close releases the pinner and cgo handle. Must be called once the stream
// is no longer reachable from any C code.
func (s *Stream) Close() {
	s.pinner.Unpin()
	s.handle.Delete()
}

// IstreamPtr / OstreamPtr expose the C vtables for pkg/testcases' state
// group, which has its own cgo-generated clap_istream_t/clap_ostream_t view
// and must reinterpret these as unsafe.Pointer across the package boundary.
func (s *Stream) IstreamPtr() unsafe.Pointer { return unsafe.Pointer(&s.istream) }
func (s *Stream) OstreamPtr() unsafe.Pointer { return unsafe.Pointer(&s.ostream) }

// Bytes returns everything written to an output Stream so far (or the
// unconsumed remainder of an input Stream's backing data).
func (s *Stream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf[s.pos:]...)
}

func (s *Stream) read(dst []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := len(s.buf) - s.pos
	if remaining <= 0 {
		return 0
	}
	n := len(dst)
	if remaining < n {
		n = remaining
	}
	if s.maxChunk > 0 && n > s.maxChunk {
		n = s.maxChunk
	}
	copy(dst[:n], s.buf[s.pos:s.pos+n])
	s.pos += n
	return int64(n)
}

func (s *Stream) write(src []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(src)
	if s.maxChunk > 0 && n > s.maxChunk {
		n = s.maxChunk
	}
	s.buf = append(s.buf, src[:n]...)
	return int64(n)
}

func fromHandle(ctx unsafe.Pointer) (*Stream, bool) {
	if ctx == nil {
		return nil, false
	}
	v := cgo.Handle(ctx).Value()
	s, ok := v.(*Stream)
	return s, ok
}
