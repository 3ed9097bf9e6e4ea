package testcases

import (
	"github.com/clapgo/clap-validator/pkg/eventqueue"
	"github.com/clapgo/clap-validator/pkg/generators"
	"github.com/clapgo/clap-validator/pkg/instance"
	"github.com/clapgo/clap-validator/pkg/pluginlib"
	"github.com/clapgo/clap-validator/pkg/statestream"
)

func init() {
	registerPluginCase(PluginCase{
		Name:        "state-empty-load-rejected",
		Description: "loading a zero-length state blob does not silently succeed",
		Run:         testStateEmptyLoadRejected,
	})
	registerPluginCase(PluginCase{
		Name:        "state-large-random-blobs-do-not-crash",
		Description: "loading three unrelated 1MB random blobs never crashes the plugin",
		Run:         testStateLargeRandomBlobsNoCrash,
	})
	registerPluginCase(PluginCase{
		Name:        "state-save-load-round-trip",
		Description: "parameter values survive a save, fresh-instance create, and load round trip",
		Run:         testStateSaveLoadRoundTrip,
	})
	registerPluginCase(PluginCase{
		Name:        "state-flush-vs-process-equivalence",
		Description: "a param-value event applied via flush() yields the same value as the same event applied via process()",
		Run:         testStateFlushVsProcessEquivalence,
	})
	registerPluginCase(PluginCase{
		Name:        "state-buffered-stream-round-trip",
		Description: "a save/load round trip survives a stream that only ever returns short reads (17 bytes) and accepts short writes (23 bytes)",
		Run:         testStateBufferedStreamRoundTrip,
	})
}

func testStateEmptyLoadRejected(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()

	ext, ok := stateExtension(inst)
	if !ok {
		return Skip("plugin does not implement clap.state")
	}

	stream := statestream.NewInput(nil, 0)
	defer stream.Close()

	result := Recover(func() Status {
		if ext.load(stream) {
			return Warn("load() returned true for a zero-length stream")
		}
		return Pass("")
	})
	return result
}

func testStateLargeRandomBlobsNoCrash(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()

	ext, ok := stateExtension(inst)
	if !ok {
		return Skip("plugin does not implement clap.state")
	}

	rng := generators.NewRand()
	const blobSize = 1 << 20
	for i := 0; i < 3; i++ {
		blob := make([]byte, blobSize)
		for j := range blob {
			blob[j] = byte(rng.Uint32())
		}

		result := Recover(func() Status {
			stream := statestream.NewInput(blob, 0)
			defer stream.Close()
			ext.load(stream) // return value is plugin-defined for garbage input; only a crash is a failure here
			return Pass("")
		})
		if result.Code != Success {
			return result
		}
	}
	return Pass("")
}

func testStateSaveLoadRoundTrip(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}

	sExt, hasState := stateExtension(inst)
	pExt, hasParams := paramsExtension(inst)
	if !hasState {
		inst.Destroy()
		return Skip("plugin does not implement clap.state")
	}

	var before map[uint32]float64
	if hasParams {
		params, err := pExt.list()
		if err != nil {
			inst.Destroy()
			return FromError(err)
		}
		before = make(map[uint32]float64, len(params))
		rng := generators.NewRand()
		for _, p := range params {
			if !p.automatable() || p.Max <= p.Min {
				continue
			}
			value := p.Min + rng.Float64()*(p.Max-p.Min)
			applyParamValueDirectly(inst, p.ID, value)
			if v, ok := pExt.getValue(p.ID); ok {
				before[p.ID] = v
			}
		}
	}

	out := statestream.NewOutput(0)
	defer out.Close()
	if !sExt.save(out) {
		inst.Destroy()
		return Fail("save() returned false")
	}
	saved := out.Bytes()
	inst.Destroy()

	inst2, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst2.Destroy()

	sExt2, _ := stateExtension(inst2)
	in := statestream.NewInput(saved, 0)
	defer in.Close()
	if !sExt2.load(in) {
		return Fail("load() returned false for a blob this instance produced with save()")
	}

	if hasParams {
		pExt2, _ := paramsExtension(inst2)
		for id, want := range before {
			got, ok := pExt2.getValue(id)
			if !ok {
				return Fail("get_value(%d) returned false after load", id)
			}
			if got != want {
				return Fail("parameter %d: expected %v after save/load round trip, got %v", id, want, got)
			}
		}
	}
	return Pass("")
}

func testStateFlushVsProcessEquivalence(lib *pluginlib.Library, pluginID string) Status {
	params, status := firstAutomatableParam(lib, pluginID)
	if status.Code != Success {
		return status
	}

	value := params.Min + (params.Max-params.Min)*0.5
	event := eventqueue.Event{
		Header: eventqueue.Header{Time: 0, Type: 5},
		Kind:   eventqueue.KindParamValue,
		ParamValue: eventqueue.ParamValueData{
			ParamID: params.ID, NoteID: -1, Port: -1, Channel: -1, Key: -1, Value: value,
		},
	}

	viaProcess, s := runParamEventsProcess(lib, pluginID, params.ID, []eventqueue.Event{event}, 64)
	if s.Code != Success {
		return s
	}

	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()
	pExt, ok := paramsExtension(inst)
	if !ok {
		return Skip("plugin does not implement clap.params")
	}

	in, out := eventqueue.New(), eventqueue.New()
	defer in.Close()
	defer out.Close()
	in.AddEvents(event)
	pExt.flush(in, out)

	viaFlush, ok := pExt.getValue(params.ID)
	if !ok {
		return Fail("get_value(%d) returned false after flush()", params.ID)
	}

	if viaFlush != viaProcess {
		return Fail("parameter %d: flush() produced %v but process() produced %v for the same event", params.ID, viaFlush, viaProcess)
	}
	return Pass("")
}

func testStateBufferedStreamRoundTrip(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	sExt, hasState := stateExtension(inst)
	if !hasState {
		inst.Destroy()
		return Skip("plugin does not implement clap.state")
	}

	out := statestream.NewOutput(23)
	defer out.Close()
	if !sExt.save(out) {
		inst.Destroy()
		return Fail("save() returned false on a write-capped (23 byte) stream")
	}
	saved := out.Bytes()
	inst.Destroy()

	inst2, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst2.Destroy()
	sExt2, _ := stateExtension(inst2)

	in := statestream.NewInput(saved, 17)
	defer in.Close()
	if !sExt2.load(in) {
		return Fail("load() returned false on a read-capped (17 byte) stream holding the bytes save() wrote to a write-capped (23 byte) stream")
	}
	return Pass("")
}

// firstAutomatableParam returns the first declared automatable parameter
// with a non-degenerate range, for tests that just need any one parameter
// to exercise.
func firstAutomatableParam(lib *pluginlib.Library, pluginID string) (paramInfo, Status) {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return paramInfo{}, FromError(err)
	}
	defer inst.Destroy()

	ext, ok := paramsExtension(inst)
	if !ok {
		return paramInfo{}, Skip("plugin does not implement clap.params")
	}
	params, err := ext.list()
	if err != nil {
		return paramInfo{}, FromError(err)
	}
	for _, p := range params {
		if p.automatable() && p.Max > p.Min {
			return p, Pass("")
		}
	}
	return paramInfo{}, Skip("plugin declares no automatable parameter with a non-degenerate range")
}

// applyParamValueDirectly passes a single param-value event to clap.params'
// flush() so testStateSaveLoadRoundTrip can randomize state without a
// process() call and so without an audio-ports layout.
func applyParamValueDirectly(inst *instance.Instance, paramID uint32, value float64) {
	ext, ok := paramsExtension(inst)
	if !ok {
		return
	}
	in, out := eventqueue.New(), eventqueue.New()
	defer in.Close()
	defer out.Close()
	in.AddEvents(eventqueue.Event{
		Header: eventqueue.Header{Time: 0, Type: 5},
		Kind:   eventqueue.KindParamValue,
		ParamValue: eventqueue.ParamValueData{
			ParamID: paramID, NoteID: -1, Port: -1, Channel: -1, Key: -1, Value: value,
		},
	})
	ext.flush(in, out)
}
