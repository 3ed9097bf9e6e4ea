package testcases

import (
	"math"
	"math/rand/v2"

	"github.com/clapgo/clap-validator/pkg/audiobuf"
	"github.com/clapgo/clap-validator/pkg/eventqueue"
	"github.com/clapgo/clap-validator/pkg/generators"
	"github.com/clapgo/clap-validator/pkg/instance"
	"github.com/clapgo/clap-validator/pkg/pluginlib"
	"github.com/clapgo/clap-validator/pkg/process"
)

func init() {
	registerPluginCase(PluginCase{
		Name:        "params-defaults-match-initial-values",
		Description: "every declared parameter's queried value immediately after creation equals its reported default",
		Run:         testParamsDefaultsMatchInitialValues,
	})
	registerPluginCase(PluginCase{
		Name:        "params-text-round-trip-consistency",
		Description: "value-to-text and text-to-value are both implemented, or both unimplemented, for every parameter -- never a mix",
		Run:         testParamsTextRoundTripConsistency,
	})
	registerPluginCase(PluginCase{
		Name:        "params-fuzz-range-bound-values",
		Description: "random in-range parameter values formatted by value_to_text are accepted back by text_to_value as a finite value",
		Run:         testParamsFuzzRangeBoundValues,
	})
	registerPluginCase(PluginCase{
		Name:        "params-sample-accurate-fuzz",
		Description: "param-value events spaced at 1, 100, and 1000-sample intervals are processed without an error status or an output consistency violation",
		Run:         testParamsSampleAccurateFuzz,
	})
	registerPluginCase(PluginCase{
		Name:        "params-modulation-fuzz",
		Description: "param-mod events are accepted without forcing process() into an error status",
		Run:         testParamsModulationFuzz,
	})
	registerPluginCase(PluginCase{
		Name:        "params-wrong-namespace-ignored",
		Description: "a param-value event tagged with a non-core event space id is ignored rather than applied",
		Run:         testParamsWrongNamespaceIgnored,
	})
}

func testParamsDefaultsMatchInitialValues(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()

	ext, ok := paramsExtension(inst)
	if !ok {
		return Skip("plugin does not implement clap.params")
	}
	params, err := ext.list()
	if err != nil {
		return FromError(err)
	}

	for _, p := range params {
		v, ok := ext.getValue(p.ID)
		if !ok {
			return Fail("get_value(%d) returned false for a declared parameter", p.ID)
		}
		if v != p.DefaultValue {
			return Fail("parameter %q (id %d): initial value %v does not match declared default %v", p.Name, p.ID, v, p.DefaultValue)
		}
	}
	return Pass("")
}

func testParamsTextRoundTripConsistency(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()

	ext, ok := paramsExtension(inst)
	if !ok {
		return Skip("plugin does not implement clap.params")
	}
	params, err := ext.list()
	if err != nil {
		return FromError(err)
	}
	if len(params) == 0 {
		return Skip("plugin declares no parameters")
	}

	implementedCount := 0
	for _, p := range params {
		text, toTextOK := ext.valueToText(p.ID, p.DefaultValue)
		_, toValueOK := ext.textToValue(p.ID, text)
		if toTextOK != toValueOK {
			return Fail("parameter %q (id %d): value_to_text=%v but text_to_value=%v, want both implemented or neither", p.Name, p.ID, toTextOK, toValueOK)
		}
		if toTextOK {
			implementedCount++
		}
	}

	if implementedCount != 0 && implementedCount != len(params) {
		return Warn("value_to_text is implemented for %d/%d parameters; CLAP allows per-parameter text support, but a uniform implementation is more common", implementedCount, len(params))
	}
	return Pass("")
}

func testParamsFuzzRangeBoundValues(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()

	ext, ok := paramsExtension(inst)
	if !ok {
		return Skip("plugin does not implement clap.params")
	}
	params, err := ext.list()
	if err != nil {
		return FromError(err)
	}
	if len(params) == 0 {
		return Skip("plugin declares no parameters")
	}

	rng := generators.NewRand()
	const attempts = 32
	for _, p := range params {
		if p.Max <= p.Min {
			continue
		}
		for i := 0; i < attempts; i++ {
			value := p.Min + rng.Float64()*(p.Max-p.Min)
			text, ok := ext.valueToText(p.ID, value)
			if !ok {
				break // this parameter does not implement text conversion; covered by the round-trip case
			}
			parsed, ok := ext.textToValue(p.ID, text)
			if !ok {
				return Fail("parameter %q (id %d): value_to_text succeeded but text_to_value rejected %q", p.Name, p.ID, text)
			}
			if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
				return Fail("parameter %q (id %d): text_to_value(%q) produced a non-finite value", p.Name, p.ID, text)
			}
		}
	}
	return Pass("")
}

// runParamEventsProcess drives numFrames of processing with events fed in
// through the input queue and returns the final queried value of paramID.
func runParamEventsProcess(lib *pluginlib.Library, pluginID string, paramID uint32, events []eventqueue.Event, numFrames uint32) (float64, Status) {
	inst, layout, err := newProcessInstance(lib, pluginID, 48000, numFrames)
	if err != nil {
		return 0, FromError(err)
	}
	if inst == nil {
		return 0, Skip("plugin does not implement clap.audio-ports")
	}
	defer inst.Destroy()

	ext, ok := paramsExtension(inst)
	if !ok {
		return 0, Skip("plugin does not implement clap.params")
	}

	buffers := audiobuf.NewOutOfPlace(layout, numFrames, audiobuf.F32)
	in, out := eventqueue.New(), eventqueue.New()
	defer in.Close()
	defer out.Close()
	in.AddEvents(events...)

	scope := process.NewScope(inst, buffers, in, out, process.TransportState{}, 0)
	status, err := scope.Run(numFrames)
	if err != nil {
		return 0, FromError(err)
	}
	if status == process.StatusError {
		return 0, Fail("process() returned CLAP_PROCESS_ERROR")
	}
	if violations := scope.Audit(); len(violations) > 0 {
		return 0, Fail("%s", violations[0].Error())
	}

	v, ok := ext.getValue(paramID)
	if !ok {
		return 0, Fail("get_value(%d) returned false after processing", paramID)
	}
	return v, Pass("")
}

// paramEventsAtInterval emits a param-value event at every sample offset
// that is a multiple of interval within numFrames -- §4.9's "sample-accurate
// fuzz at intervals {1, 100, 1000}".
func paramEventsAtInterval(rng *rand.Rand, id uint32, min, max float64, interval, numFrames uint32) []eventqueue.Event {
	var events []eventqueue.Event
	for t := uint32(0); t < numFrames; t += interval {
		value := min + rng.Float64()*(max-min)
		events = append(events, eventqueue.Event{
			Header: eventqueue.Header{Time: t, Type: 5},
			Kind:   eventqueue.KindParamValue,
			ParamValue: eventqueue.ParamValueData{
				ParamID: id, NoteID: -1, Port: -1, Channel: -1, Key: -1, Value: value,
			},
		})
	}
	return events
}

func testParamsSampleAccurateFuzz(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	ext, hasParams := paramsExtension(inst)
	var params []paramInfo
	if hasParams {
		params, err = ext.list()
	}
	inst.Destroy()
	if err != nil {
		return FromError(err)
	}
	if !hasParams || len(params) == 0 {
		return Skip("plugin declares no parameters")
	}

	id := params[0].ID
	min, max := params[0].Min, params[0].Max
	if max <= min {
		max = min + 1
	}

	for _, interval := range []uint32{1, 100, 1000} {
		numFrames := interval * 4
		rng := generators.NewRand()
		events := paramEventsAtInterval(rng, id, min, max, interval, numFrames)
		if len(events) == 0 {
			continue
		}
		if _, s := runParamEventsProcess(lib, pluginID, id, events, numFrames); s.Code != Success {
			return s
		}
	}
	return Pass("")
}

func testParamsModulationFuzz(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	ext, hasParams := paramsExtension(inst)
	var params []paramInfo
	if hasParams {
		params, err = ext.list()
	}
	inst.Destroy()
	if err != nil {
		return FromError(err)
	}
	modulatable := make([]paramInfo, 0, len(params))
	for _, p := range params {
		if p.modulatable() {
			modulatable = append(modulatable, p)
		}
	}
	if len(modulatable) == 0 {
		return Skip("plugin declares no modulatable parameters")
	}

	rng := generators.NewRand()
	const numFrames = 256
	var events []eventqueue.Event
	for i := 0; i < 16; i++ {
		p := modulatable[rng.IntN(len(modulatable))]
		amount := (rng.Float64()*2 - 1) * (p.Max - p.Min)
		events = append(events, eventqueue.Event{
			Header: eventqueue.Header{Time: uint32(rng.IntN(numFrames)), Type: 6},
			Kind:   eventqueue.KindParamMod,
			ParamMod: eventqueue.ParamModData{
				ParamID: p.ID, NoteID: -1, Port: -1, Channel: -1, Key: -1, Amount: amount,
			},
		})
	}

	if _, s := runParamEventsProcess(lib, pluginID, modulatable[0].ID, events, numFrames); s.Code != Success {
		return s
	}
	return Pass("")
}

func testParamsWrongNamespaceIgnored(lib *pluginlib.Library, pluginID string) Status {
	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	ext, hasParams := paramsExtension(inst)
	var params []paramInfo
	if hasParams {
		params, err = ext.list()
	}
	inst.Destroy()
	if err != nil {
		return FromError(err)
	}
	if !hasParams || len(params) == 0 {
		return Skip("plugin declares no parameters")
	}

	p := params[0]
	before, s := runParamEventsProcess(lib, pluginID, p.ID, nil, 64)
	if s.Code != Success {
		return s
	}

	offValue := p.Max
	if before == p.Max {
		offValue = p.Min
	}
	wrongSpace := []eventqueue.Event{{
		Header: eventqueue.Header{Time: 0, SpaceID: 1, Type: 5},
		Kind:   eventqueue.KindUnknown,
		ParamValue: eventqueue.ParamValueData{
			ParamID: p.ID, NoteID: -1, Port: -1, Channel: -1, Key: -1, Value: offValue,
		},
	}}

	after, s := runParamEventsProcess(lib, pluginID, p.ID, wrongSpace, 64)
	if s.Code != Success {
		return s
	}
	if after != before {
		return Fail("parameter %q (id %d) changed from %v to %v after a param-value event tagged with a non-core event space id", p.Name, p.ID, before, after)
	}
	return Pass("")
}
