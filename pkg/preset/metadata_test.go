package preset

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>
*/
import "C"

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cCharOrNil(s string) *C.char {
	if s == "" {
		return nil
	}
	return C.CString(s)
}

func freeIfSet(p *C.char) {
	if p != nil {
		C.free(unsafe.Pointer(p))
	}
}

func TestSinglePresetRoundTrip(t *testing.T) {
	r := New("my-preset.fxp", Flags{IsFactoryContent: true})
	defer r.Close()

	name := cCharOrNil("Lush Pad")
	defer freeIfSet(name)
	ok := go_preset_begin_preset(&r.vtable, name, nil)
	require.True(t, bool(ok))

	abi := cCharOrNil("clap")
	id := cCharOrNil("com.example.synth")
	defer freeIfSet(abi)
	defer freeIfSet(id)
	cid := C.clap_universal_plugin_id_t{abi: abi, id: id}
	go_preset_add_plugin_id(&r.vtable, &cid)

	file, err := r.Finish()
	require.NoError(t, err)
	require.NotNil(t, file.Single)
	assert.Equal(t, "Lush Pad", file.Single.Name.Value)
	assert.True(t, file.Single.Flags.IsInherited)
	assert.True(t, file.Single.Flags.Flags.IsFactoryContent)
}

func TestContainerPresetRoundTrip(t *testing.T) {
	r := New("bank.fxb", Flags{})
	defer r.Close()

	for _, key := range []string{"0", "1"} {
		name := cCharOrNil("Preset " + key)
		loadKey := cCharOrNil(key)
		ok := go_preset_begin_preset(&r.vtable, name, loadKey)
		require.True(t, bool(ok))
		freeIfSet(name)
		freeIfSet(loadKey)

		abi := cCharOrNil("clap")
		id := cCharOrNil("com.example.synth")
		cid := C.clap_universal_plugin_id_t{abi: abi, id: id}
		go_preset_add_plugin_id(&r.vtable, &cid)
		freeIfSet(abi)
		freeIfSet(id)
	}

	file, err := r.Finish()
	require.NoError(t, err)
	require.NotNil(t, file.Container)
	assert.Len(t, file.Container, 2)
	assert.Equal(t, "Preset 0", file.Container["0"].Name.Value)
}

func TestBeginPresetTwiceWithoutLoadKeyFails(t *testing.T) {
	r := New("solo.fxp", Flags{})
	defer r.Close()

	name := cCharOrNil("A")
	ok := go_preset_begin_preset(&r.vtable, name, nil)
	require.True(t, bool(ok))
	freeIfSet(name)

	abi := cCharOrNil("clap")
	id := cCharOrNil("x")
	cid := C.clap_universal_plugin_id_t{abi: abi, id: id}
	go_preset_add_plugin_id(&r.vtable, &cid)
	freeIfSet(abi)
	freeIfSet(id)

	name2 := cCharOrNil("B")
	defer freeIfSet(name2)
	go_preset_begin_preset(&r.vtable, name2, nil)

	_, err := r.Finish()
	assert.Error(t, err)
}

func TestNameDerivedFromLocationWhenUnset(t *testing.T) {
	r := New("derived.fxp", Flags{})
	defer r.Close()

	ok := go_preset_begin_preset(&r.vtable, nil, nil)
	require.True(t, bool(ok))

	abi := cCharOrNil("clap")
	id := cCharOrNil("x")
	cid := C.clap_universal_plugin_id_t{abi: abi, id: id}
	go_preset_add_plugin_id(&r.vtable, &cid)
	freeIfSet(abi)
	freeIfSet(id)

	file, err := r.Finish()
	require.NoError(t, err)
	require.NotNil(t, file.Single)
	assert.False(t, file.Single.Name.Explicit)
	assert.Equal(t, "derived.fxp", file.Single.Name.Value)
}

func TestMissingPluginIDFailsFinalize(t *testing.T) {
	r := New("x.fxp", Flags{})
	defer r.Close()

	name := cCharOrNil("No plugin id")
	defer freeIfSet(name)
	ok := go_preset_begin_preset(&r.vtable, name, nil)
	require.True(t, bool(ok))

	_, err := r.Finish()
	assert.Error(t, err)
}
