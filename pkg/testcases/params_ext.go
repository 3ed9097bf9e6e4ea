package testcases

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>

static inline uint32_t validator_params_count(const clap_plugin_params_t *pp, const clap_plugin_t *p) {
    return pp && pp->count ? pp->count(p) : 0;
}
static inline bool validator_params_get_info(const clap_plugin_params_t *pp, const clap_plugin_t *p,
                                              uint32_t index, clap_param_info_t *info) {
    return pp && pp->get_info ? pp->get_info(p, index, info) : false;
}
static inline bool validator_params_get_value(const clap_plugin_params_t *pp, const clap_plugin_t *p,
                                               clap_id id, double *value) {
    return pp && pp->get_value ? pp->get_value(p, id, value) : false;
}
static inline bool validator_params_value_to_text(const clap_plugin_params_t *pp, const clap_plugin_t *p,
                                                   clap_id id, double value, char *buf, uint32_t size) {
    return pp && pp->value_to_text ? pp->value_to_text(p, id, value, buf, size) : false;
}
static inline bool validator_params_text_to_value(const clap_plugin_params_t *pp, const clap_plugin_t *p,
                                                   clap_id id, const char *text, double *value) {
    return pp && pp->text_to_value ? pp->text_to_value(p, id, text, value) : false;
}
static inline void validator_params_flush(const clap_plugin_params_t *pp, const clap_plugin_t *p,
                                           const clap_input_events_t *in, const clap_output_events_t *out) {
    if (pp && pp->flush) { pp->flush(p, in, out); }
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/clapgo/clap-validator/pkg/eventqueue"
	"github.com/clapgo/clap-validator/pkg/instance"
)

// paramInfo is one entry read back from a plugin's params extension,
// grounded on pkg/param's descriptor shape (teacher's plugin-side
// declaration), reworked into a host-side query result.
type paramInfo struct {
	ID           uint32
	Name         string
	Flags        uint32
	Min          float64
	Max          float64
	DefaultValue float64
}

func (p paramInfo) automatable() bool { return p.Flags&C.CLAP_PARAM_IS_AUTOMATABLE != 0 }
func (p paramInfo) modulatable() bool { return p.Flags&C.CLAP_PARAM_IS_MODULATABLE != 0 }

// paramsExt bundles the extension vtable pointer with the plugin pointer it
// must always be called alongside.
type paramsExt struct {
	vt  *C.clap_plugin_params_t
	raw *C.clap_plugin_t
}

// paramsExtension looks up inst's clap.params extension. ok is false if the
// plugin does not implement it.
func paramsExtension(inst *instance.Instance) (paramsExt, bool) {
	ext := inst.GetExtension("clap.params")
	if ext == nil {
		return paramsExt{}, false
	}
	return paramsExt{
		vt:  (*C.clap_plugin_params_t)(ext),
		raw: (*C.clap_plugin_t)(inst.ClapPluginPtr()),
	}, true
}

func (p paramsExt) list() ([]paramInfo, error) {
	count := uint32(C.validator_params_count(p.vt, p.raw))
	out := make([]paramInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		var info C.clap_param_info_t
		if !bool(C.validator_params_get_info(p.vt, p.raw, C.uint32_t(i), &info)) {
			return nil, fmt.Errorf("params: get_info(%d) returned false", i)
		}
		out = append(out, paramInfo{
			ID:           uint32(info.id),
			Name:         C.GoString(&info.name[0]),
			Flags:        uint32(info.flags),
			Min:          float64(info.min_value),
			Max:          float64(info.max_value),
			DefaultValue: float64(info.default_value),
		})
	}
	return out, nil
}

func (p paramsExt) getValue(id uint32) (float64, bool) {
	var v C.double
	ok := bool(C.validator_params_get_value(p.vt, p.raw, C.clap_id(id), &v))
	return float64(v), ok
}

const paramTextBufSize = 256

func (p paramsExt) valueToText(id uint32, value float64) (string, bool) {
	buf := make([]C.char, paramTextBufSize)
	ok := bool(C.validator_params_value_to_text(p.vt, p.raw, C.clap_id(id), C.double(value), &buf[0], C.uint32_t(paramTextBufSize)))
	if !ok {
		return "", false
	}
	return C.GoString(&buf[0]), true
}

func (p paramsExt) textToValue(id uint32, text string) (float64, bool) {
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))
	var v C.double
	ok := bool(C.validator_params_text_to_value(p.vt, p.raw, C.clap_id(id), cText, &v))
	return float64(v), ok
}

func (p paramsExt) flush(in, out *eventqueue.Queue) {
	C.validator_params_flush(p.vt, p.raw,
		(*C.clap_input_events_t)(in.InputVtablePtr()),
		(*C.clap_output_events_t)(out.OutputVtablePtr()))
}
