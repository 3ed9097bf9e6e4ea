package testcases

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"

static inline bool validator_state_save(const clap_plugin_state_t *st, const clap_plugin_t *p,
                                        const clap_ostream_t *stream) {
    return st && st->save ? st->save(p, stream) : false;
}
static inline bool validator_state_load(const clap_plugin_state_t *st, const clap_plugin_t *p,
                                        const clap_istream_t *stream) {
    return st && st->load ? st->load(p, stream) : false;
}
*/
import "C"

import (
	"github.com/clapgo/clap-validator/pkg/instance"
	"github.com/clapgo/clap-validator/pkg/statestream"
)

// stateExt bundles the clap.state extension vtable with the plugin pointer
// it must be called alongside, mirroring paramsExt's shape.
type stateExt struct {
	vt  *C.clap_plugin_state_t
	raw *C.clap_plugin_t
}

func stateExtension(inst *instance.Instance) (stateExt, bool) {
	ext := inst.GetExtension("clap.state")
	if ext == nil {
		return stateExt{}, false
	}
	return stateExt{
		vt:  (*C.clap_plugin_state_t)(ext),
		raw: (*C.clap_plugin_t)(inst.ClapPluginPtr()),
	}, true
}

func (e stateExt) save(stream *statestream.Stream) bool {
	return bool(C.validator_state_save(e.vt, e.raw, (*C.clap_ostream_t)(stream.OstreamPtr())))
}

func (e stateExt) load(stream *statestream.Stream) bool {
	return bool(C.validator_state_load(e.vt, e.raw, (*C.clap_istream_t)(stream.IstreamPtr())))
}
