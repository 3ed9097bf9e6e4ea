// Package host implements §4.2 and §4.3 of the specification: the host-side
// C function tables a plugin calls back into, the callback-error slot, and
// the per-instance lifecycle status that guards every ABI call. It is
// grounded on the teacher's pkg/thread (cgo extension-dispatch idiom) and
// pkg/api/cgo_wrapper.go (runtime/cgo.Handle round-tripping through a void*).
package host

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>
#include <string.h>

extern const void *go_host_get_extension(clap_host_t *host, char *extension_id);
extern void go_host_request_restart(clap_host_t *host);
extern void go_host_request_process(clap_host_t *host);
extern void go_host_request_callback(clap_host_t *host);

extern bool go_host_audio_ports_is_rescan_flag_supported(clap_host_t *host, uint32_t flag);
extern void go_host_audio_ports_rescan(clap_host_t *host, uint32_t flags);
extern uint32_t go_host_note_ports_supported_dialects(clap_host_t *host);
extern void go_host_note_ports_rescan(clap_host_t *host, uint32_t flags);
extern void go_host_params_rescan(clap_host_t *host, uint32_t flags);
extern void go_host_params_clear(clap_host_t *host, clap_id param_id, uint32_t flags);
extern void go_host_params_request_flush(clap_host_t *host);
extern void go_host_state_mark_dirty(clap_host_t *host);
extern bool go_host_thread_check_is_main_thread(clap_host_t *host);
extern bool go_host_thread_check_is_audio_thread(clap_host_t *host);
extern void go_host_latency_changed(clap_host_t *host);
extern void go_host_tail_changed(clap_host_t *host);
extern void go_host_voice_info_changed(clap_host_t *host);

static inline void validator_install_host_vtable(clap_host_t *h) {
    h->get_extension = (const void *(*)(const clap_host_t *, const char *))go_host_get_extension;
    h->request_restart = (void (*)(const clap_host_t *))go_host_request_restart;
    h->request_process = (void (*)(const clap_host_t *))go_host_request_process;
    h->request_callback = (void (*)(const clap_host_t *))go_host_request_callback;
}

static inline void validator_fill_ext_tables(
    clap_host_audio_ports_t *ap, clap_host_note_ports_t *np, clap_host_params_t *pr,
    clap_host_state_t *st, clap_host_thread_check_t *tc, clap_host_latency_t *la,
    clap_host_tail_t *ta, clap_host_voice_info_t *vi) {
    ap->is_rescan_flag_supported = (bool (*)(const clap_host_t *, uint32_t))go_host_audio_ports_is_rescan_flag_supported;
    ap->rescan = (void (*)(const clap_host_t *, uint32_t))go_host_audio_ports_rescan;
    np->supported_dialects = (uint32_t (*)(const clap_host_t *))go_host_note_ports_supported_dialects;
    np->rescan = (void (*)(const clap_host_t *, uint32_t))go_host_note_ports_rescan;
    pr->rescan = (void (*)(const clap_host_t *, uint32_t))go_host_params_rescan;
    pr->clear = (void (*)(const clap_host_t *, clap_id, uint32_t))go_host_params_clear;
    pr->request_flush = (void (*)(const clap_host_t *))go_host_params_request_flush;
    st->mark_dirty = (void (*)(const clap_host_t *))go_host_state_mark_dirty;
    tc->is_main_thread = (bool (*)(const clap_host_t *))go_host_thread_check_is_main_thread;
    tc->is_audio_thread = (bool (*)(const clap_host_t *))go_host_thread_check_is_audio_thread;
    la->changed = (void (*)(const clap_host_t *))go_host_latency_changed;
    ta->changed = (void (*)(const clap_host_t *))go_host_tail_changed;
    vi->changed = (void (*)(const clap_host_t *))go_host_voice_info_changed;
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"runtime/cgo"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/clapgo/clap-validator/pkg/validatorlog"
)

// Status is the plugin instance lifecycle state from spec.md §4.3.
type Status int32

const (
	Uninitialized Status = iota
	Deactivated
	Activating
	Activated
	Processing
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Deactivated:
		return "deactivated"
	case Activating:
		return "activating"
	case Activated:
		return "activated"
	case Processing:
		return "processing"
	default:
		return "unknown"
	}
}

// CallbackEvent is a host-callback side effect queued for the main thread to
// observe, per the table in spec.md §4.2.
type CallbackEvent int

const (
	EvRequestProcess CallbackEvent = iota
	EvCallbackRequest
	EvAudioPortsRescanNames
	EvAudioPortsRescanAll
	EvNotePortsRescanNames
	EvNotePortsRescanAll
	EvParamsRescanValues
	EvParamsRescanText
	EvParamsRescanInfo
	EvParamsRescanAll
	EvRequestFlush
	EvStateMarkDirty
	EvLatencyChanged
	EvTailChanged
	EvVoiceInfoChanged
)

// SharedState is InstanceSharedState from spec.md §3: pinned, cgo.Handle
// addressed memory the plugin stores a pointer to (via clap_host.host_data)
// for the instance's entire lifetime.
type SharedState struct {
	clapHost         C.clap_host_t
	hAudioPorts      C.clap_host_audio_ports_t
	hNotePorts       C.clap_host_note_ports_t
	hParams          C.clap_host_params_t
	hState           C.clap_host_state_t
	hThreadCheck     C.clap_host_thread_check_t
	hLatency         C.clap_host_latency_t
	hTail            C.clap_host_tail_t
	hVoiceInfo       C.clap_host_voice_info_t

	handle cgo.Handle // round-trips through clap_host.host_data
	pinner runtime.Pinner

	status        atomic.Int32
	mainThreadID  uint64
	audioThreadID atomic.Uint64 // 0 means "no audio thread"

	requestedRestart  atomic.Bool
	requestedCallback atomic.Bool

	errMu      sync.Mutex
	callbackErr string

	events chan CallbackEvent

	log *chlog
}

// chlog is a tiny indirection so this package does not import
// charmbracelet/log's concrete type into its exported surface.
type chlog = validatorlogLogger

// validatorlogLogger mirrors the subset of *log.Logger this package needs;
// validatorlog.WithPrefix's return value satisfies it structurally through
// the concrete type (see log.go for the shared logger).
type validatorlogLogger = interface {
	Trace(msg interface{}, kv ...interface{})
	Debug(msg interface{}, kv ...interface{})
	Warn(msg interface{}, kv ...interface{})
}

const noAudioThread = 0

// New constructs a pinned SharedState and installs the host vtables; HostPtr
// gives the C pointer to embed in clap_plugin_factory's create_plugin call.
// The returned *SharedState must be kept alive (e.g.
// referenced from pkg/instance.Instance) for as long as the plugin is alive;
// Release must be called exactly once when the instance is destroyed.
func New() *SharedState {
	s := &SharedState{
		events: make(chan CallbackEvent, 256),
		log:    validatorlog.WithPrefix("host-callbacks"),
	}
	s.mainThreadID = goroutineID()
	s.status.Store(int32(Uninitialized))

	s.handle = cgo.NewHandle(s)

	s.clapHost.clap_version = C.CLAP_VERSION_INIT
	s.clapHost.host_data = unsafe.Pointer(s.handle)
	s.clapHost.name = C.CString("clap-validator")
	s.clapHost.vendor = C.CString("clap-validator contributors")
	s.clapHost.url = C.CString("https://github.com/clapgo/clap-validator")
	s.clapHost.version = C.CString("0.1.0")
	C.validator_install_host_vtable(&s.clapHost)
	C.validator_fill_ext_tables(&s.hAudioPorts, &s.hNotePorts, &s.hParams, &s.hState,
		&s.hThreadCheck, &s.hLatency, &s.hTail, &s.hVoiceInfo)
	s.pinner.Pin(s)

	return s
}

// HostPtr returns the clap_host_t* to pass to clap_plugin_factory::create_plugin.
func (s *SharedState) HostPtr() unsafe.Pointer { return unsafe.Pointer(&s.clapHost) }

// Release unpins the state and frees the cgo.Handle and the C strings owned
// by the host struct. Must only be called after the plugin's destroy() has
// returned.
func (s *SharedState) Release() {
	s.pinner.Unpin()
	s.handle.Delete()
	C.free(unsafe.Pointer(s.clapHost.name))
	C.free(unsafe.Pointer(s.clapHost.vendor))
	C.free(unsafe.Pointer(s.clapHost.url))
	C.free(unsafe.Pointer(s.clapHost.version))
}

// Status / SetStatus give pkg/instance access to the lifecycle cell.
func (s *SharedState) Status() Status        { return Status(s.status.Load()) }
func (s *SharedState) SetStatus(v Status)    { s.status.Store(int32(v)) }

// EnterAudioThread records the calling goroutine as the instance's current
// audio thread. Must be paired with ExitAudioThread on the same goroutine
// (typically via a dedicated OS thread locked for the scope's lifetime).
func (s *SharedState) EnterAudioThread() { s.audioThreadID.Store(goroutineID()) }

// ExitAudioThread clears the audio thread identity.
func (s *SharedState) ExitAudioThread() { s.audioThreadID.Store(noAudioThread) }

// RequestedRestart / ClearRequestedRestart implement the restart flag.
func (s *SharedState) RequestedRestart() bool     { return s.requestedRestart.Load() }
func (s *SharedState) ClearRequestedRestart()      { s.requestedRestart.Store(false) }
func (s *SharedState) RequestedCallback() bool     { return s.requestedCallback.Load() }
func (s *SharedState) ClearRequestedCallback()     { s.requestedCallback.Store(false) }

// Events returns the channel of queued callback events for the main thread
// to drain (e.g. between process() calls, or while polling during an audio
// scope per §5's ~1ms poll loop).
func (s *SharedState) Events() <-chan CallbackEvent { return s.events }

func (s *SharedState) enqueue(ev CallbackEvent) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("callback event queue full, dropping event", "event", ev)
	}
}

// CallbackError returns the first recorded ABI violation, if any. The test
// harness should poll this after driving the plugin and surface it as
// Failed.
func (s *SharedState) CallbackError() (string, bool) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.callbackErr == "" {
		return "", false
	}
	return s.callbackErr, true
}

// setCallbackError is write-once-wins: only the first violation is kept.
func (s *SharedState) setCallbackError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.callbackErr == "" {
		s.callbackErr = msg
	}
}

func (s *SharedState) assertMainThread(fn string) {
	if cur := goroutineID(); cur != s.mainThreadID {
		s.setCallbackError("%q may only be called from the main thread (goroutine %d), but it was called from goroutine %d", fn, s.mainThreadID, cur)
	}
}

func (s *SharedState) assertAudioThread(fn string) {
	cur := goroutineID()
	if s.audioThreadID.Load() != cur {
		if cur == s.mainThreadID {
			s.setCallbackError("%q may only be called from an audio thread, but it was called from the main thread", fn)
		} else {
			s.setCallbackError("%q may only be called from an audio thread, but it was called from an unknown thread", fn)
		}
	}
}

func (s *SharedState) assertNotAudioThread(fn string) {
	if cur := goroutineID(); s.audioThreadID.Load() == cur && cur != noAudioThread {
		s.setCallbackError("%q was called from an audio thread, this is not allowed", fn)
	}
}

// goroutineID extracts the calling goroutine's ID from its stack trace
// header ("goroutine <id> [...]"). This is the teacher's own trick
// (pkg/thread/debug.go's getThreadID) reused here as the host's notion of
// "thread identity" for the Go side of the boundary; cgo calls from a
// specific goroutine always run on that goroutine's locked OS thread for the
// duration of the call, which is the property the validator actually needs.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	for i := 10; i < n-1; i++ {
		if buf[i] == ' ' {
			continue
		}
	}
	// Format is "goroutine <id> [running]:\n..."
	const prefix = "goroutine "
	s := string(buf[:n])
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return 0
	}
	s = s[len(prefix):]
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	id, _ := strconv.ParseUint(s[:end], 10, 64)
	return id
}

func fromHost(h *C.clap_host_t) (*SharedState, bool) {
	if h == nil || h.host_data == nil {
		return nil, false
	}
	handle := cgo.Handle(h.host_data)
	v := handle.Value()
	s, ok := v.(*SharedState)
	return s, ok
}
