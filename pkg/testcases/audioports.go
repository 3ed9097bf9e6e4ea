package testcases

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/clapabi/include
#include "clap_validator_abi.h"

static inline uint32_t validator_ap_count(const clap_plugin_audio_ports_t *ap, const clap_plugin_t *p, bool is_input) {
    return ap && ap->count ? ap->count(p, is_input) : 0;
}
static inline bool validator_ap_get(const clap_plugin_audio_ports_t *ap, const clap_plugin_t *p, uint32_t index,
                                      bool is_input, clap_audio_port_info_t *info) {
    return ap && ap->get ? ap->get(p, index, is_input, info) : false;
}
*/
import "C"

import (
	"fmt"

	"github.com/clapgo/clap-validator/pkg/audiobuf"
	"github.com/clapgo/clap-validator/pkg/instance"
)

// audioPortInfo is one port entry read back from the plugin's audio-ports
// extension, kept separate from audiobuf.PortSpec because it additionally
// carries the fields layout tests need to check for self-consistency (id,
// name, flags) that audiobuf has no use for once buffers are built.
type audioPortInfo struct {
	ID           uint32
	Name         string
	IsMain       bool
	Supports64   bool
	ChannelCount uint32
	InPlacePair  *uint32
}

const clapInvalidID = 0xFFFFFFFF

// readAudioPorts queries inst's clap.audio-ports extension (if present) for
// every declared port on one side (isInput selects which), grounded on
// pkg/extensions/audio_ports.go's clap_plugin_audio_ports_t vtable shape,
// reworked from "the extension a Go plugin exposes" into "the extension a
// host reads back".
func readAudioPorts(inst *instance.Instance, isInput bool) ([]audioPortInfo, bool, error) {
	ext := inst.GetExtension("clap.audio-ports")
	if ext == nil {
		return nil, false, nil
	}
	ap := (*C.clap_plugin_audio_ports_t)(ext)
	raw := (*C.clap_plugin_t)(inst.ClapPluginPtr())

	count := uint32(C.validator_ap_count(ap, raw, C.bool(isInput)))
	ports := make([]audioPortInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		var info C.clap_audio_port_info_t
		if !bool(C.validator_ap_get(ap, raw, C.uint32_t(i), C.bool(isInput), &info)) {
			return nil, true, fmt.Errorf("audio-ports: get(%d, is_input=%v) returned false", i, isInput)
		}
		p := audioPortInfo{
			ID:           uint32(info.id),
			Name:         C.GoString(&info.name[0]),
			IsMain:       info.flags&C.CLAP_AUDIO_PORT_IS_MAIN != 0,
			Supports64:   info.flags&C.CLAP_AUDIO_PORT_SUPPORTS_64BITS != 0,
			ChannelCount: uint32(info.channel_count),
		}
		if info.in_place_pair != clapInvalidID {
			v := uint32(info.in_place_pair)
			p.InPlacePair = &v
		}
		ports = append(ports, p)
	}
	return ports, true, nil
}

// layoutFromInstance reads both port directions and assembles an
// audiobuf.PortLayout so pkg/process can build real buffers for it.
func layoutFromInstance(inst *instance.Instance) (audiobuf.PortLayout, bool, error) {
	inputs, hasExt, err := readAudioPorts(inst, true)
	if err != nil || !hasExt {
		return audiobuf.PortLayout{}, hasExt, err
	}
	outputs, _, err := readAudioPorts(inst, false)
	if err != nil {
		return audiobuf.PortLayout{}, true, err
	}

	outIndexByID := make(map[uint32]int, len(outputs))
	for i, o := range outputs {
		outIndexByID[o.ID] = i
	}

	layout := audiobuf.PortLayout{
		Inputs:  make([]audiobuf.PortSpec, len(inputs)),
		Outputs: make([]audiobuf.PortSpec, len(outputs)),
	}
	for i, p := range inputs {
		spec := audiobuf.PortSpec{Channels: p.ChannelCount, IsMain: p.IsMain, Supports64Bit: p.Supports64}
		if p.InPlacePair != nil {
			if out, ok := outIndexByID[*p.InPlacePair]; ok {
				spec.InPlacePair = &out
			}
		}
		layout.Inputs[i] = spec
	}
	for o, p := range outputs {
		layout.Outputs[o] = audiobuf.PortSpec{Channels: p.ChannelCount, IsMain: p.IsMain, Supports64Bit: p.Supports64}
	}
	return layout, true, nil
}
