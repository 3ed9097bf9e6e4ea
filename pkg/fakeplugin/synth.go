// Package fakeplugin implements a minimal in-process CLAP plugin used to
// exercise pkg/testcases without a compiled native shared object. Grounded
// on original_source/tests/clack-synth (a small polyphonic sine synth with
// one automatable/modulatable "Volume" parameter and a "clck"-magic state
// blob), reimplemented in Go using the same cgo.Handle + exported-trampoline
// vtable idiom as pkg/host/callbacks.go, but on the plugin side of the ABI
// instead of the host side.
package fakeplugin

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <string.h>

extern bool go_fp_init(const clap_plugin_t *p);
extern void go_fp_destroy(const clap_plugin_t *p);
extern bool go_fp_activate(const clap_plugin_t *p, double sr, uint32_t minf, uint32_t maxf);
extern void go_fp_deactivate(const clap_plugin_t *p);
extern bool go_fp_start_processing(const clap_plugin_t *p);
extern void go_fp_stop_processing(const clap_plugin_t *p);
extern void go_fp_reset(const clap_plugin_t *p);
extern int32_t go_fp_process(const clap_plugin_t *p, const clap_process_t *proc);
extern const void *go_fp_get_extension(const clap_plugin_t *p, const char *id);
extern void go_fp_on_main_thread(const clap_plugin_t *p);

extern uint32_t go_fp_params_count(const clap_plugin_t *p);
extern bool go_fp_params_get_info(const clap_plugin_t *p, uint32_t index, clap_param_info_t *info);
extern bool go_fp_params_get_value(const clap_plugin_t *p, clap_id id, double *value);
extern bool go_fp_params_value_to_text(const clap_plugin_t *p, clap_id id, double value, char *buf, uint32_t buf_size);
extern bool go_fp_params_text_to_value(const clap_plugin_t *p, clap_id id, const char *text, double *value);
extern void go_fp_params_flush(const clap_plugin_t *p, const clap_input_events_t *in, const clap_output_events_t *out);

extern bool go_fp_state_save(const clap_plugin_t *p, const clap_ostream_t *stream);
extern bool go_fp_state_load(const clap_plugin_t *p, const clap_istream_t *stream);

static inline clap_plugin_t *validator_fp_new_plugin(const clap_plugin_descriptor_t *desc, void *plugin_data) {
    clap_plugin_t *p = (clap_plugin_t *)calloc(1, sizeof(clap_plugin_t));
    p->desc = desc;
    p->plugin_data = plugin_data;
    p->init = go_fp_init;
    p->destroy = go_fp_destroy;
    p->activate = go_fp_activate;
    p->deactivate = go_fp_deactivate;
    p->start_processing = go_fp_start_processing;
    p->stop_processing = go_fp_stop_processing;
    p->reset = go_fp_reset;
    p->process = go_fp_process;
    p->get_extension = go_fp_get_extension;
    p->on_main_thread = go_fp_on_main_thread;
    return p;
}

static inline clap_plugin_params_t *validator_fp_new_params_vtable(void) {
    clap_plugin_params_t *v = (clap_plugin_params_t *)calloc(1, sizeof(clap_plugin_params_t));
    v->count = go_fp_params_count;
    v->get_info = go_fp_params_get_info;
    v->get_value = go_fp_params_get_value;
    v->value_to_text = go_fp_params_value_to_text;
    v->text_to_value = go_fp_params_text_to_value;
    v->flush = go_fp_params_flush;
    return v;
}

static inline clap_plugin_state_t *validator_fp_new_state_vtable(void) {
    clap_plugin_state_t *v = (clap_plugin_state_t *)calloc(1, sizeof(clap_plugin_state_t));
    v->save = go_fp_state_save;
    v->load = go_fp_state_load;
    return v;
}

static inline void validator_fp_copy_cstr(char *dst, size_t dst_size, const char *src) {
    strncpy(dst, src, dst_size - 1);
    dst[dst_size - 1] = '\0';
}

// The fake plugin is a *reader* of whatever in_events/ostream/istream vtable
// the host installed (pkg/eventqueue, pkg/statestream, or a real host's own),
// so it must call through the function pointers rather than any Go package's
// native API.
static inline uint32_t invoke_events_size(const clap_input_events_t *list) {
    return list->size(list);
}
static inline const clap_event_header_t *invoke_events_get(const clap_input_events_t *list, uint32_t index) {
    return list->get(list, index);
}
static inline int64_t invoke_ostream_write(const clap_ostream_t *stream, const void *buf, uint64_t size) {
    return stream->write(stream, buf, size);
}
static inline int64_t invoke_istream_read(const clap_istream_t *stream, void *buf, uint64_t size) {
    return stream->read(stream, buf, size);
}
*/
import "C"

import (
	"math"
	"sync"
	"unsafe"

	"runtime/cgo"
)

// ParamVolumeID is the fake synth's single parameter ID, mirroring
// clack-synth's PARAM_VOLUME_ID.
const ParamVolumeID = 1

const defaultVolume = 0.2

const sampleRateDefault = 48000.0

const stateMagic = "clck"

// voice is one active sine-wave note.
type voice struct {
	noteID   int32
	key      int16
	channel  int16
	phase    float64
	freq     float64
	velocity float64
}

// Synth is the Go-side plugin state, reachable from every exported
// trampoline through the clap_plugin_t's plugin_data handle.
type Synth struct {
	mu sync.Mutex

	sampleRate float64
	volumeBits uint32 // atomic-free: guarded by mu, mirrors clack-synth's AtomicF32
	volumeMod  float64
	voices     []voice

	cPlugin *C.clap_plugin_t
	handle  cgo.Handle

	paramsVtable *C.clap_plugin_params_t
	stateVtable  *C.clap_plugin_state_t

	desc *C.clap_plugin_descriptor_t
}

var descOnce sync.Once
var sharedDesc *C.clap_plugin_descriptor_t

func descriptor() *C.clap_plugin_descriptor_t {
	descOnce.Do(func() {
		d := (*C.clap_plugin_descriptor_t)(C.calloc(1, C.sizeof_clap_plugin_descriptor_t))
		d.clap_version = C.CLAP_VERSION_INIT
		d.id = C.CString("com.clapgo.validator.fakeplugin.synth")
		d.name = C.CString("Validator Fake Synth")
		d.vendor = C.CString("clap-validator")
		d.version = C.CString("1.0.0")
		d.description = C.CString("In-process polyphonic sine synth used to exercise the validator's own tests")
		sharedDesc = d
	})
	return sharedDesc
}

// New constructs a fresh fake plugin instance, wired to hostPtr (a
// *clap_host_t from pkg/host.SharedState.HostPtr), and returns its
// clap_plugin_t* as an unsafe.Pointer for pkg/instance.NewDetached.
func New(hostPtr unsafe.Pointer) unsafe.Pointer {
	s := &Synth{sampleRate: sampleRateDefault}
	s.volumeBits = math.Float32bits(defaultVolume)
	s.handle = cgo.NewHandle(s)

	s.desc = descriptor()
	s.cPlugin = C.validator_fp_new_plugin(s.desc, unsafe.Pointer(s.handle))
	s.paramsVtable = C.validator_fp_new_params_vtable()
	s.stateVtable = C.validator_fp_new_state_vtable()

	_ = hostPtr // the fake plugin never calls back into the host, so hostPtr is accepted but not stored
	return unsafe.Pointer(s.cPlugin)
}

func (s *Synth) volume() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return math.Float32frombits(s.volumeBits)
}

func (s *Synth) setVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.mu.Lock()
	s.volumeBits = math.Float32bits(v)
	s.mu.Unlock()
}

func keyToFrequency(key int16) float64 {
	return 440.0 * math.Pow(2, (float64(key)-69)/12)
}

func fromHandle(p *C.clap_plugin_t) (*Synth, bool) {
	if p == nil || p.plugin_data == nil {
		return nil, false
	}
	v := cgo.Handle(p.plugin_data).Value()
	s, ok := v.(*Synth)
	return s, ok
}
