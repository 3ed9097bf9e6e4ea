package testcases

import (
	"fmt"

	"github.com/clapgo/clap-validator/pkg/instance"
	"github.com/clapgo/clap-validator/pkg/pluginlib"
)

// Note: this vendored ABI declares only the base clap.audio-ports extension
// (internal/clapabi/include/clap_validator_abi.h has no
// clap_plugin_audio_ports_config_t / clap_plugin_configurable_audio_ports_t
// struct, only the two extension id strings). §4.9's "selecting each
// port-configuration preset" and "random channel-count apply" checks have no
// vtable to drive under this header, so this group is limited to what the
// base extension actually exposes: the self-consistency of the declared
// port layout itself.

func init() {
	registerPluginCase(PluginCase{
		Name:        "audio-ports-self-consistency",
		Description: "declared audio ports have unique ids, at most one main port per direction, and valid in-place pairings",
		Run:         testAudioPortsSelfConsistency,
	})
}

func testAudioPortsSelfConsistency(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()

	inputs, hasExt, err := readAudioPorts(inst, true)
	if err != nil {
		return FromError(err)
	}
	if !hasExt {
		return Skip("plugin does not implement clap.audio-ports")
	}
	outputs, _, err := readAudioPorts(inst, false)
	if err != nil {
		return FromError(err)
	}

	inStatus := checkPortSideConsistency("input", inputs)
	if inStatus.Code == Failed {
		return inStatus
	}
	outStatus := checkPortSideConsistency("output", outputs)
	if outStatus.Code == Failed {
		return outStatus
	}

	outByID := make(map[uint32]audioPortInfo, len(outputs))
	for _, o := range outputs {
		outByID[o.ID] = o
	}
	for _, in := range inputs {
		if in.InPlacePair == nil {
			continue
		}
		out, ok := outByID[*in.InPlacePair]
		if !ok {
			return Fail("input port %d declares in-place pair %d, which is not a valid output port id", in.ID, *in.InPlacePair)
		}
		if out.InPlacePair == nil || *out.InPlacePair != in.ID {
			return Fail("input port %d pairs with output port %d, but that output does not pair back", in.ID, out.ID)
		}
	}

	if inStatus.Code == Warning {
		return inStatus
	}
	if outStatus.Code == Warning {
		return outStatus
	}
	return Pass("")
}

func checkPortSideConsistency(side string, ports []audioPortInfo) Status {
	seenIDs := make(map[uint32]bool, len(ports))
	mainCount := 0
	for _, p := range ports {
		if seenIDs[p.ID] {
			return Fail("%s port id %d is declared more than once", side, p.ID)
		}
		seenIDs[p.ID] = true
		if p.ChannelCount == 0 {
			return Fail("%s port %d declares zero channels", side, p.ID)
		}
		if p.IsMain {
			mainCount++
		}
	}
	if mainCount > 1 {
		return Fail("%s side declares %d main ports, want at most 1", side, mainCount)
	}
	if len(ports) > 0 && mainCount == 0 {
		return Warn("%s", fmt.Sprintf("%s side declares %d port(s) but none is marked main", side, len(ports)))
	}
	return Pass("")
}
