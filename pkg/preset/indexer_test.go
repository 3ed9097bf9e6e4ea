package preset

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"
#include <stdlib.h>
*/
import "C"

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexerDeclareFiletypeRejectsLeadingPeriod(t *testing.T) {
	idx := NewIndexer()
	defer idx.Close()

	name := cCharOrNil("Preset")
	ext := cCharOrNil(".fxp")
	defer freeIfSet(name)
	defer freeIfSet(ext)

	ft := C.clap_preset_discovery_filetype_t{name: name, file_extension: ext}
	ok := go_indexer_declare_filetype(&idx.vtable, &ft)
	assert.False(t, bool(ok))
	require.Error(t, idx.Err())
}

func TestIndexerDeclareLocationWithoutPathIsPluginLocation(t *testing.T) {
	idx := NewIndexer()
	defer idx.Close()

	name := cCharOrNil("User presets")
	defer freeIfSet(name)

	loc := C.clap_preset_discovery_location_t{name: name}
	ok := go_indexer_declare_location(&idx.vtable, &loc)
	assert.True(t, bool(ok))
	require.Len(t, idx.Locations, 1)
	assert.Equal(t, LocationPlugin, idx.Locations[0].Kind)
}

func TestIndexerDeclareLocationAccumulates(t *testing.T) {
	idx := NewIndexer()
	defer idx.Close()

	name := cCharOrNil("Factory presets")
	path := cCharOrNil("/usr/share/presets")
	defer freeIfSet(name)
	defer freeIfSet(path)

	loc := C.clap_preset_discovery_location_t{
		flags:    C.CLAP_PRESET_DISCOVERY_IS_FACTORY_CONTENT,
		name:     name,
		location: path,
	}
	ok := go_indexer_declare_location(&idx.vtable, &loc)
	require.True(t, bool(ok))
	require.Len(t, idx.Locations, 1)
	assert.Equal(t, LocationFile, idx.Locations[0].Kind)
	assert.True(t, idx.Locations[0].Flags.IsFactoryContent)
}

func TestIndexerRejectsCallsAfterClose(t *testing.T) {
	idx := NewIndexer()

	name := cCharOrNil("Factory presets")
	path := cCharOrNil("/usr/share/presets")
	defer freeIfSet(name)
	defer freeIfSet(path)

	idx.mu.Lock()
	idx.closed = true
	idx.mu.Unlock()

	loc := C.clap_preset_discovery_location_t{name: name, location: path}
	ok := go_indexer_declare_location(&idx.vtable, &loc)
	assert.False(t, bool(ok))
	idx.Close()
}
