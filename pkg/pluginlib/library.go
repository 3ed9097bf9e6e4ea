// Package pluginlib implements §4.1's plugin library loader: resolving and
// dlopen'ing a plugin shared object, verifying ABI compatibility, and
// enumerating the descriptors it exposes. It is grounded on the teacher's
// cgo-shim idiom (pkg/api/cgo_wrapper.go, pkg/thread/check.go) layered over
// internal/clapabi.
package pluginlib

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/clapgo/clap-validator/internal/clapabi"
	"github.com/clapgo/clap-validator/pkg/validatorlog"
)

// Descriptor is the validator's stable, immutable view of a plugin's
// identity. It never changes after being read from the factory.
type Descriptor = clapabi.Descriptor

// Metadata is the cached, whole-library information read once at load time:
// the declared CLAP version and every plugin descriptor the factory
// exposes. Added per SPEC_FULL.md §3 from the original's PluginMetadata.
type Metadata struct {
	ClapVersion clapabi.Version
	Plugins     []Descriptor
}

// Library is a loaded plugin shared object. It owns the OS-level handle and
// must not be dropped (via Close) until every PluginInstance created from it
// has been destroyed -- enforced by the refcount below, mirroring the
// single-direction "library outlives its instances" ownership rule from
// SPEC_FULL.md's DESIGN NOTES.
type Library struct {
	path    string
	handle  *clapabi.Handle
	factory *clapabi.Factory
	meta    Metadata

	refcount int64

	mu     sync.Mutex
	closed bool
}

// Load dlopen's path, verifies it exports a plugin factory, and caches the
// descriptor list. It does not yet check ABI compatibility; callers should
// consult Metadata().ClapVersion.IsCompatible() and skip plugin-level tests
// when it is false, per §4.1.
func Load(path string) (*Library, error) {
	log := validatorlog.WithPrefix("pluginlib")

	handle, err := clapabi.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pluginlib: %s: %w", path, err)
	}

	factory, err := handle.Factory()
	if err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("pluginlib: %s: %w", path, err)
	}

	count := factory.Count()
	descs := make([]Descriptor, 0, count)
	for i := uint32(0); i < count; i++ {
		d, err := factory.Descriptor(i)
		if err != nil {
			log.Warn("skipping unreadable descriptor", "path", path, "index", i, "err", err)
			continue
		}
		descs = append(descs, d)
	}

	lib := &Library{
		path:    path,
		handle:  handle,
		factory: factory,
		meta: Metadata{
			ClapVersion: handle.EntryVersion(),
			Plugins:     descs,
		},
	}

	log.Debug("loaded plugin library", "path", path, "plugins", len(descs))
	return lib, nil
}

// Path returns the filesystem path this library was loaded from.
func (l *Library) Path() string { return l.path }

// Metadata returns the cached library metadata.
func (l *Library) Metadata() Metadata { return l.meta }

// IsABICompatible reports whether the validator understands this library's
// declared CLAP version. Runners should skip all plugin-level tests (but
// still run library-level ones) when this is false.
func (l *Library) IsABICompatible() bool { return l.meta.ClapVersion.IsCompatible() }

// Descriptor looks up a plugin's descriptor by ID, as stored by the factory.
func (l *Library) Descriptor(pluginID string) (Descriptor, bool) {
	for _, d := range l.meta.Plugins {
		if d.ID == pluginID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Factory exposes the raw factory handle to pkg/instance for plugin
// creation. Not for use outside the validator's own host runtime packages.
func (l *Library) Factory() *clapabi.Factory { return l.factory }

// FactoryByID resolves an arbitrary factory export by its string id, e.g.
// the preset-discovery factory's "clap.preset-discovery-factory/2", for
// pkg/testcases' preset-discovery tests.
func (l *Library) FactoryByID(id string) unsafe.Pointer { return l.handle.GetFactory(id) }

// retain/release implement the refcount that keeps the library alive while
// instances derived from it exist. pkg/instance calls these on
// creation/destruction.
func (l *Library) retain() { atomic.AddInt64(&l.refcount, 1) }

func (l *Library) release() {
	if atomic.AddInt64(&l.refcount, -1) == 0 {
		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.closed && atomic.LoadInt64(&l.refcount) == 0 {
			// Deliberately left loaded: an explicit Close() call, not an
			// implicit one on last-instance-drop, is required so a second
			// instance can still be created from the same library in the
			// common "create, destroy, create again" test pattern.
		}
	}
}

// Retain increments the instance refcount. Exported for pkg/instance.
func (l *Library) Retain() { l.retain() }

// Release decrements the instance refcount. Exported for pkg/instance.
func (l *Library) Release() { l.release() }

// Close unloads the shared library. It is an error to call this while any
// instance created from it is still alive.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if atomic.LoadInt64(&l.refcount) != 0 {
		return fmt.Errorf("pluginlib: %s: Close called with %d live instance(s)", l.path, l.refcount)
	}

	l.closed = true
	return l.handle.Close()
}
