package testcases

import (
	"fmt"

	"github.com/clapgo/clap-validator/pkg/audiobuf"
	"github.com/clapgo/clap-validator/pkg/eventqueue"
	"github.com/clapgo/clap-validator/pkg/generators"
	"github.com/clapgo/clap-validator/pkg/instance"
	"github.com/clapgo/clap-validator/pkg/pluginlib"
	"github.com/clapgo/clap-validator/pkg/process"
)

// sampleRates covers §4.9's "varying sample rates" requirement: the usual
// studio rates, the extremes a host may legally offer, and one fractional
// rate (digital audio workstations sometimes resample to odd rates when
// following a video transport).
var sampleRates = []float64{8000, 44100, 48000, 96000, 192000, 384000, 768000, 44100.5}

// fixedBlockSizes covers "varying fixed block sizes", deliberately including
// 1 (the degenerate single-sample block) and sizes that are not powers of
// two, which a naive plugin's internal ring buffers sometimes mishandle.
var fixedBlockSizes = []uint32{1, 3, 7, 17, 64, 100, 513, 1024, 4095, 16384}

func init() {
	registerPluginCase(PluginCase{
		Name:        "process-basic-out-of-place-32",
		Description: "a single out-of-place process() call at 32-bit precision leaves no audit violations",
		Run:         func(lib *pluginlib.Library, id string) Status { return testBasicProcess(lib, id, audiobuf.NewOutOfPlace, audiobuf.F32) },
	})
	registerPluginCase(PluginCase{
		Name:        "process-basic-in-place-32",
		Description: "a single in-place process() call at 32-bit precision leaves no audit violations",
		Run:         func(lib *pluginlib.Library, id string) Status { return testBasicProcess(lib, id, audiobuf.NewInPlace, audiobuf.F32) },
	})
	registerPluginCase(PluginCase{
		Name:        "process-basic-out-of-place-64",
		Description: "a single out-of-place process() call at 64-bit precision leaves no audit violations, when the plugin's ports support it",
		Run:         func(lib *pluginlib.Library, id string) Status { return testBasicProcess(lib, id, audiobuf.NewOutOfPlace, audiobuf.F64) },
	})
	registerPluginCase(PluginCase{
		Name:        "process-sample-rates",
		Description: "process() succeeds across a range of sample rates from 8kHz to 768kHz, including a fractional rate",
		Run:         testVaryingSampleRates,
	})
	registerPluginCase(PluginCase{
		Name:        "process-fixed-block-sizes",
		Description: "process() succeeds across a range of fixed block sizes, including non-power-of-two sizes",
		Run:         testFixedBlockSizes,
	})
	registerPluginCase(PluginCase{
		Name:        "process-random-block-sizes",
		Description: "process() succeeds when the host varies the block size randomly within [1, 2048] between calls",
		Run:         testRandomBlockSizes,
	})
	registerPluginCase(PluginCase{
		Name:        "process-reset-determinism",
		Description: "reset() (and a deactivate/reactivate cycle) produce identical output for the same seeded input",
		Run:         testResetDeterminism,
	})
}

// newProcessInstance creates, activates, and starts processing on an
// instance, returning the layout alongside it since every case below needs
// both.
func newProcessInstance(lib *pluginlib.Library, pluginID string, sampleRate float64, maxFrames uint32) (*instance.Instance, audiobuf.PortLayout, error) {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return nil, audiobuf.PortLayout{}, err
	}
	layout, hasExt, err := layoutFromInstance(inst)
	if err != nil {
		inst.Destroy()
		return nil, audiobuf.PortLayout{}, err
	}
	if !hasExt {
		inst.Destroy()
		return nil, audiobuf.PortLayout{}, nil
	}
	if err := inst.Activate(sampleRate, 1, maxFrames); err != nil {
		inst.Destroy()
		return nil, audiobuf.PortLayout{}, err
	}
	if err := inst.StartProcessing(); err != nil {
		inst.Destroy()
		return nil, audiobuf.PortLayout{}, err
	}
	return inst, layout, nil
}

func runOneBlock(inst *instance.Instance, buffers *audiobuf.Buffers, steadyTime int64) ([]process.Violation, error) {
	in, out := eventqueue.New(), eventqueue.New()
	defer in.Close()
	defer out.Close()

	scope := process.NewScope(inst, buffers, in, out, process.TransportState{}, steadyTime)
	status, err := scope.Run(buffers.NumSamples())
	if err != nil {
		return nil, err
	}
	if status == process.StatusError {
		return nil, fmt.Errorf("process() returned CLAP_PROCESS_ERROR")
	}
	return scope.Audit(), nil
}

func auditToStatus(violations []process.Violation) Status {
	if len(violations) == 0 {
		return Pass("")
	}
	return Fail("%s", violations[0].Error())
}

type buffersCtor func(layout audiobuf.PortLayout, numSamples uint32, precision audiobuf.Precision) *audiobuf.Buffers

func testBasicProcess(lib *pluginlib.Library, pluginID string, ctor buffersCtor, precision audiobuf.Precision) Status {
	inst, layout, err := newProcessInstance(lib, pluginID, 48000, 4096)
	if err != nil {
		return FromError(err)
	}
	if inst == nil {
		return Skip("plugin does not implement clap.audio-ports")
	}
	defer inst.Destroy()

	if precision == audiobuf.F64 && !layout.Supports64Bit() {
		return Skip("plugin does not declare 64-bit support on every port")
	}

	buffers := ctor(layout, 512, precision)
	violations, err := runOneBlock(inst, buffers, 0)
	if err != nil {
		return FromError(err)
	}
	return auditToStatus(violations)
}

func testVaryingSampleRates(lib *pluginlib.Library, pluginID string) Status {
	for _, sr := range sampleRates {
		inst, layout, err := newProcessInstance(lib, pluginID, sr, 4096)
		if err != nil {
			return Fail("sample rate %v: %s", sr, err.Error())
		}
		if inst == nil {
			return Skip("plugin does not implement clap.audio-ports")
		}

		buffers := audiobuf.NewOutOfPlace(layout, 256, audiobuf.F32)
		violations, err := runOneBlock(inst, buffers, 0)
		inst.Destroy()
		if err != nil {
			return Fail("sample rate %v: %s", sr, err.Error())
		}
		if len(violations) > 0 {
			return Fail("sample rate %v: %s", sr, violations[0].Error())
		}
	}
	return Pass("")
}

func testFixedBlockSizes(lib *pluginlib.Library, pluginID string) Status {
	for _, block := range fixedBlockSizes {
		inst, layout, err := newProcessInstance(lib, pluginID, 48000, 16384)
		if err != nil {
			return Fail("block size %d: %s", block, err.Error())
		}
		if inst == nil {
			return Skip("plugin does not implement clap.audio-ports")
		}

		buffers := audiobuf.NewOutOfPlace(layout, block, audiobuf.F32)
		violations, err := runOneBlock(inst, buffers, 0)
		inst.Destroy()
		if err != nil {
			return Fail("block size %d: %s", block, err.Error())
		}
		if len(violations) > 0 {
			return Fail("block size %d: %s", block, violations[0].Error())
		}
	}
	return Pass("")
}

func testRandomBlockSizes(lib *pluginlib.Library, pluginID string) Status {
	inst, layout, err := newProcessInstance(lib, pluginID, 48000, 2048)
	if err != nil {
		return FromError(err)
	}
	if inst == nil {
		return Skip("plugin does not implement clap.audio-ports")
	}
	defer inst.Destroy()

	rng := generators.NewRand()
	var steady int64
	const calls = 64
	for i := 0; i < calls; i++ {
		block := uint32(rng.IntN(2048) + 1)
		buffers := audiobuf.NewOutOfPlace(layout, block, audiobuf.F32)
		violations, err := runOneBlock(inst, buffers, steady)
		if err != nil {
			return Fail("call %d (block %d): %s", i, block, err.Error())
		}
		if len(violations) > 0 {
			return Fail("call %d (block %d): %s", i, block, violations[0].Error())
		}
		steady += int64(block)
	}
	return Pass("")
}

// testResetDeterminism feeds the same seeded note stream through a plugin
// twice -- once followed by reset(), once by a full deactivate/reactivate
// cycle -- and requires the rendered output to be bit-identical both times,
// per §4.9's reset-determinism requirement.
func testResetDeterminism(lib *pluginlib.Library, pluginID string) Status {
	const numFrames = 512

	renderOnce := func(between func(inst *instance.Instance) error) (*audiobuf.Buffer, audiobuf.PortLayout, error) {
		inst, layout, err := newProcessInstance(lib, pluginID, 48000, numFrames)
		if err != nil {
			return nil, layout, err
		}
		if inst == nil {
			return nil, layout, nil
		}
		defer inst.Destroy()

		rng := generators.NewRand()
		gen := generators.NewNoteGenerator(rng, 0)

		buffers := audiobuf.NewOutOfPlace(layout, numFrames, audiobuf.F32)
		in, out := eventqueue.New(), eventqueue.New()
		in.AddEvents(gen.Generate(numFrames, 4)...)
		scope := process.NewScope(inst, buffers, in, out, process.TransportState{}, 0)
		if _, err := scope.Run(numFrames); err != nil {
			in.Close()
			out.Close()
			return nil, layout, err
		}
		in.Close()
		out.Close()

		if between != nil {
			if err := between(inst); err != nil {
				return nil, layout, err
			}
		}

		in2, out2 := eventqueue.New(), eventqueue.New()
		defer in2.Close()
		defer out2.Close()
		buffers2 := audiobuf.NewOutOfPlace(layout, numFrames, audiobuf.F32)
		scope2 := process.NewScope(inst, buffers2, in2, out2, process.TransportState{}, int64(numFrames))
		if _, err := scope2.Run(numFrames); err != nil {
			return nil, layout, err
		}

		outPorts := buffers2.Ports()
		for _, p := range outPorts {
			if p.Role.IsOutput {
				return p, layout, nil
			}
		}
		return nil, layout, nil
	}

	resetBuf, _, err := renderOnce(func(inst *instance.Instance) error {
		inst.Reset()
		return nil
	})
	if err != nil {
		return FromError(err)
	}
	if resetBuf == nil {
		return Skip("plugin does not implement clap.audio-ports")
	}

	cycleBuf, _, err := renderOnce(func(inst *instance.Instance) error {
		inst.StopProcessing()
		inst.Deactivate()
		if err := inst.Activate(48000, 1, numFrames); err != nil {
			return err
		}
		return inst.StartProcessing()
	})
	if err != nil {
		return FromError(err)
	}

	if !resetBuf.Equal(cycleBuf) {
		return Fail("output after reset() differs from output after a deactivate/reactivate cycle")
	}
	return Pass("")
}
