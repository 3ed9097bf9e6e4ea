// Package instance implements §3's PluginInstance and §4.3's lifecycle state
// machine: the single source of truth for which ABI calls are currently
// legal on a given plugin instance. Grounded on the teacher's pkg/api.Plugin
// lifecycle interface (Init/Activate/Deactivate/StartProcessing/
// StopProcessing/Reset/Process/Destroy), reworked from "a Go plugin
// implementing the ABI" into "a host driving a C plugin through the ABI".
package instance

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>

static inline void validator_plugin_deactivate(const clap_plugin_t *p) {
    if (p && p->deactivate) { p->deactivate(p); }
}
static inline bool validator_plugin_activate(const clap_plugin_t *p, double sr, uint32_t minf, uint32_t maxf) {
    return p && p->activate ? p->activate(p, sr, minf, maxf) : false;
}
static inline bool validator_plugin_start_processing(const clap_plugin_t *p) {
    return p && p->start_processing ? p->start_processing(p) : false;
}
static inline void validator_plugin_stop_processing(const clap_plugin_t *p) {
    if (p && p->stop_processing) { p->stop_processing(p); }
}
static inline void validator_plugin_reset(const clap_plugin_t *p) {
    if (p && p->reset) { p->reset(p); }
}
static inline void validator_plugin_on_main_thread(const clap_plugin_t *p) {
    if (p && p->on_main_thread) { p->on_main_thread(p); }
}
static inline void validator_plugin_destroy2(const clap_plugin_t *p) {
    if (p && p->destroy) { p->destroy(p); }
}
static inline const void *validator_plugin_get_extension(const clap_plugin_t *p, const char *id) {
    return p && p->get_extension ? p->get_extension(p, id) : NULL;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/clapgo/clap-validator/pkg/host"
	"github.com/clapgo/clap-validator/pkg/pluginlib"
)

// Status re-exports host.Status so callers never have to import pkg/host
// just to compare lifecycle states.
type Status = host.Status

const (
	Uninitialized = host.Uninitialized
	Deactivated   = host.Deactivated
	Activating    = host.Activating
	Activated     = host.Activated
	Processing    = host.Processing
)

// Instance is §3's PluginInstance: a single live plugin, its parent library
// reference (non-owning, lifetime-enforced), its pinned InstanceSharedState,
// and the current lifecycle status.
type Instance struct {
	lib        *pluginlib.Library
	descriptor pluginlib.Descriptor
	shared     *host.SharedState
	clapPlugin *C.clap_plugin_t
	destroyed  bool
}

// Create instantiates pluginID from lib's factory. lib is retained for the
// instance's lifetime; Destroy releases it.
func Create(lib *pluginlib.Library, pluginID string) (*Instance, error) {
	desc, ok := lib.Descriptor(pluginID)
	if !ok {
		return nil, fmt.Errorf("instance: %q has no plugin with id %q", lib.Path(), pluginID)
	}

	shared := host.New()

	factory := lib.Factory()
	rawPlugin, err := factory.CreatePlugin(shared.HostPtr(), pluginID)
	if err != nil {
		shared.Release()
		return nil, err
	}

	lib.Retain()
	shared.SetStatus(host.Deactivated)

	return &Instance{
		lib:        lib,
		descriptor: desc,
		shared:     shared,
		clapPlugin: (*C.clap_plugin_t)(rawPlugin),
	}, nil
}

// NewDetached wraps an already-initialized clap_plugin_t that was not
// produced by a dlopen'd pluginlib.Library's factory -- namely,
// pkg/fakeplugin's in-process test plugin. There is no backing Library to
// retain or release; Destroy skips that step.
func NewDetached(desc pluginlib.Descriptor, shared *host.SharedState, rawPlugin unsafe.Pointer) *Instance {
	shared.SetStatus(host.Deactivated)
	return &Instance{
		descriptor: desc,
		shared:     shared,
		clapPlugin: (*C.clap_plugin_t)(rawPlugin),
	}
}

// Descriptor returns the plugin's descriptor as reported by the factory.
func (i *Instance) Descriptor() pluginlib.Descriptor { return i.descriptor }

// Shared exposes the shared host state to pkg/process and pkg/host-adjacent
// test cases that need to poll callback events or the callback error slot.
func (i *Instance) Shared() *host.SharedState { return i.shared }

// Status returns the current lifecycle state.
func (i *Instance) Status() Status { return i.shared.Status() }

// ClapPluginPtr exposes the raw clap_plugin_t* for pkg/process, which issues
// the process() call directly (it owns the clap_process_t construction).
func (i *Instance) ClapPluginPtr() unsafe.Pointer { return unsafe.Pointer(i.clapPlugin) }

// GetExtension looks up a plugin-side extension by its string id. Returns
// nil if unsupported, matching clap_plugin::get_extension's contract.
func (i *Instance) GetExtension(id string) unsafe.Pointer {
	cID := C.CString(id)
	defer freeCString(cID)
	return unsafe.Pointer(C.validator_plugin_get_extension(i.clapPlugin, cID))
}

// assertStatus is a programming-error assertion, not a plugin failure: it
// panics if the validator itself calls an operation out of lifecycle order.
func (i *Instance) assertStatus(predicate func(Status) bool, description string) {
	if !predicate(i.Status()) {
		panic(fmt.Sprintf("instance: validator bug: expected %s but status was %s", description, i.Status()))
	}
}

func equals(want Status) func(Status) bool    { return func(s Status) bool { return s == want } }
func atLeast(want Status) func(Status) bool    { return func(s Status) bool { return s >= want } }
func atMost(want Status) func(Status) bool     { return func(s Status) bool { return s <= want } }

// Activate drives Deactivated -> Activating -> {Activated, Deactivated},
// per §4.3. The Activating intermediate state exists so the host callback
// surface can detect a plugin calling latency.changed() outside activate().
func (i *Instance) Activate(sampleRate float64, minFrames, maxFrames uint32) error {
	i.assertStatus(equals(host.Deactivated), "deactivated")

	i.shared.SetStatus(host.Activating)
	ok := bool(C.validator_plugin_activate(i.clapPlugin, C.double(sampleRate), C.uint32_t(minFrames), C.uint32_t(maxFrames)))
	if !ok {
		i.shared.SetStatus(host.Deactivated)
		return fmt.Errorf("instance: %q's activate(%.0f, %d, %d) returned false", i.descriptor.ID, sampleRate, minFrames, maxFrames)
	}

	i.shared.SetStatus(host.Activated)
	return nil
}

// Deactivate drives Activated -> Deactivated.
func (i *Instance) Deactivate() {
	i.assertStatus(equals(host.Activated), "activated")
	C.validator_plugin_deactivate(i.clapPlugin)
	i.shared.SetStatus(host.Deactivated)
}

// StartProcessing drives Activated -> Processing.
func (i *Instance) StartProcessing() error {
	i.assertStatus(equals(host.Activated), "activated")
	if !bool(C.validator_plugin_start_processing(i.clapPlugin)) {
		return fmt.Errorf("instance: %q's start_processing() returned false", i.descriptor.ID)
	}
	i.shared.SetStatus(host.Processing)
	return nil
}

// StopProcessing drives Processing -> Activated.
func (i *Instance) StopProcessing() {
	i.assertStatus(equals(host.Processing), "processing")
	C.validator_plugin_stop_processing(i.clapPlugin)
	i.shared.SetStatus(host.Activated)
}

// Reset calls the plugin's reset(); legal at any point at or past Deactivated.
func (i *Instance) Reset() {
	i.assertStatus(atLeast(host.Deactivated), "at least deactivated")
	C.validator_plugin_reset(i.clapPlugin)
}

// OnMainThread dispatches the plugin's main-thread callback poll.
func (i *Instance) OnMainThread() {
	C.validator_plugin_on_main_thread(i.clapPlugin)
}

// Destroy auto-transitions Processing -> Activated -> Deactivated ->
// destroyed, calls the plugin's destroy(), releases the shared host state
// and the parent library reference. Safe to call multiple times.
func (i *Instance) Destroy() {
	if i.destroyed {
		return
	}

	if i.Status() == host.Processing {
		i.StopProcessing()
	}
	if i.Status() == host.Activated {
		i.Deactivate()
	}

	C.validator_plugin_destroy2(i.clapPlugin)
	i.shared.Release()
	if i.lib != nil {
		i.lib.Release()
	}
	i.destroyed = true
}

func freeCString(p *C.char) { C.free(unsafe.Pointer(p)) }

var _ = atMost // reserved for tests/processing checks that assert an upper bound
