// Package generators implements §4.8's deterministic test-input generators:
// NoteGenerator, ParamFuzzer, and TransportFuzzer, all seeded from the
// validator's fixed PRNG seed (1337, 420) so a failing run reproduces
// byte-for-byte. Grounded on the teacher's pkg/audio oscillator helpers for
// the "derive a value from a running phase" idiom, generalized from
// synthesizing audio into synthesizing CLAP events and transport snapshots.
package generators

import (
	"math/rand/v2"
	"slices"

	"github.com/clapgo/clap-validator/pkg/eventqueue"
	"github.com/clapgo/clap-validator/pkg/process"
)

// Seed1 and Seed2 are the validator's fixed PRNG seed, chosen once and never varied, so
// that a scenario failure is always reproducible from a bare re-run.
var Seed1, Seed2 uint64 = 1337, 420

// NewRand builds a rand.Rand seeded from Seed1/Seed2. Callers that need
// independent streams (e.g. one per worker) should derive their seeds from
// a single NewRand call rather than reseeding from Seed1/Seed2 directly, to
// avoid correlated sequences across workers.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(Seed1, Seed2))
}

// NoteGenerator emits a plausible note-on/note-off/choke/expression stream
// within a process block, per §4.8.
type NoteGenerator struct {
	rng         *rand.Rand
	port        int16
	openVoices  map[int32]int16 // noteID -> key, for well-formed on/off pairing
	nextNoteID  int32
}

// NewNoteGenerator builds a NoteGenerator reading from rng.
func NewNoteGenerator(rng *rand.Rand, port int16) *NoteGenerator {
	return &NoteGenerator{rng: rng, port: port, openVoices: make(map[int32]int16)}
}

// Generate appends up to maxEvents notes into numFrames samples, each as a
// note-on, an optional expression, and a note-off at a time within
// [0, numFrames). Every note's events are in time order, but the returned
// slice is not sorted across notes. Every voice it opens is closed within
// the same call so state never leaks across process() calls silently.
func (g *NoteGenerator) Generate(numFrames uint32, maxEvents int) []eventqueue.Event {
	if numFrames == 0 || maxEvents <= 0 {
		return nil
	}

	var out []eventqueue.Event
	n := g.rng.IntN(maxEvents + 1)
	for i := 0; i < n; i++ {
		time := uint32(g.rng.IntN(int(numFrames)))
		key := int16(g.rng.IntN(128))
		channel := int16(g.rng.IntN(16))
		noteID := g.nextNoteID
		g.nextNoteID++

		out = append(out, eventqueue.Event{
			Header: eventqueue.Header{Time: time, Type: 0},
			Kind:   eventqueue.KindNoteOn,
			Note: eventqueue.NoteData{
				NoteID:   noteID,
				Port:     g.port,
				Channel:  channel,
				Key:      key,
				Velocity: g.rng.Float64(),
			},
		})

		if g.rng.Float64() < 0.3 {
			exprTime := time
			if exprTime < numFrames-1 {
				exprTime++
			}
			out = append(out, eventqueue.Event{
				Header: eventqueue.Header{Time: exprTime, Type: 4},
				Kind:   eventqueue.KindNoteExpression,
				Expression: eventqueue.ExpressionData{
					ExpressionID: int32(g.rng.IntN(5)),
					NoteID:       noteID,
					Port:         g.port,
					Channel:      channel,
					Key:          key,
					Value:        g.rng.Float64()*2 - 1,
				},
			})
		}

		offTime := time
		if offTime < numFrames-1 {
			offTime = uint32(g.rng.IntN(int(numFrames-1-offTime))) + offTime + 1
		}
		out = append(out, eventqueue.Event{
			Header: eventqueue.Header{Time: offTime, Type: 1},
			Kind:   eventqueue.KindNoteOff,
			Note: eventqueue.NoteData{
				NoteID:   noteID,
				Port:     g.port,
				Channel:  channel,
				Key:      key,
				Velocity: 0,
			},
		})
	}
	return out
}

// ParamFuzzer emits param-value and gesture-begin/end events for a known set
// of declared parameter IDs, per §4.8.
type ParamFuzzer struct {
	rng     *rand.Rand
	paramID []uint32
	ranges  map[uint32][2]float64
}

// NewParamFuzzer builds a ParamFuzzer over the given declared parameters,
// each with its [min, max] range as reported by the params extension.
func NewParamFuzzer(rng *rand.Rand, ranges map[uint32][2]float64) *ParamFuzzer {
	ids := make([]uint32, 0, len(ranges))
	for id := range ranges {
		ids = append(ids, id)
	}
	slices.Sort(ids) // map order is random; sorting keeps the event stream reproducible
	return &ParamFuzzer{rng: rng, paramID: ids, ranges: ranges}
}

// Generate appends up to maxEvents parameter automation events, each
// bracketed by a gesture begin/end pair per CLAP's recommended convention.
func (f *ParamFuzzer) Generate(numFrames uint32, maxEvents int) []eventqueue.Event {
	if len(f.paramID) == 0 || numFrames == 0 || maxEvents <= 0 {
		return nil
	}

	var out []eventqueue.Event
	n := f.rng.IntN(maxEvents + 1)
	for i := 0; i < n; i++ {
		id := f.paramID[f.rng.IntN(len(f.paramID))]
		r := f.ranges[id]
		value := r[0] + f.rng.Float64()*(r[1]-r[0])
		time := uint32(f.rng.IntN(int(numFrames)))

		out = append(out,
			eventqueue.Event{
				Header:  eventqueue.Header{Time: time, Type: 7},
				Kind:    eventqueue.KindParamGestureBegin,
				Gesture: eventqueue.GestureData{ParamID: id},
			},
			eventqueue.Event{
				Header:     eventqueue.Header{Time: time, Type: 5},
				Kind:       eventqueue.KindParamValue,
				ParamValue: eventqueue.ParamValueData{ParamID: id, Value: value, Port: -1, Channel: -1, Key: -1, NoteID: -1},
			},
			eventqueue.Event{
				Header:  eventqueue.Header{Time: time, Type: 8},
				Kind:    eventqueue.KindParamGestureEnd,
				Gesture: eventqueue.GestureData{ParamID: id},
			},
		)
	}
	return out
}

// TransportFuzzer synthesizes plausible transport snapshots (tempo, time
// signature, playing/recording flags, song position) across a run's
// successive process() calls, per §4.8.
type TransportFuzzer struct {
	rng    *rand.Rand
	tempo  float64
	beats  int64
	playing bool
	recording bool
}

// NewTransportFuzzer builds a TransportFuzzer starting at a 120bpm, 4/4,
// stopped transport.
func NewTransportFuzzer(rng *rand.Rand) *TransportFuzzer {
	return &TransportFuzzer{rng: rng, tempo: 120}
}

// Next advances the transport by numFrames at the current tempo and
// sampleRate, occasionally flipping playing/recording state, and returns the
// resulting snapshot.
func (f *TransportFuzzer) Next(numFrames uint32, sampleRate float64) process.TransportState {
	if f.rng.Float64() < 0.05 {
		f.playing = !f.playing
	}
	if f.rng.Float64() < 0.05 {
		f.recording = !f.recording
	}
	if f.rng.Float64() < 0.1 {
		f.tempo = 60 + f.rng.Float64()*140
	}

	flags := uint32(1 | 2 | 4 | 8) // HAS_TEMPO | HAS_BEATS_TIMELINE | HAS_SECONDS_TIMELINE | HAS_TIME_SIGNATURE
	if f.playing {
		flags |= 1 << 4
		beatsPerSample := f.tempo / 60 / sampleRate
		f.beats += int64(float64(numFrames) * beatsPerSample * (1 << 31))
	}
	if f.recording {
		flags |= 1 << 5 // IS_RECORDING
	}

	return process.TransportState{
		Flags:          flags,
		SongPosBeats:   f.beats,
		SongPosSeconds: 0,
		Tempo:          f.tempo,
		TempoInc:       0,
		BarNumber:      0,
		TsigNum:        4,
		TsigDenom:      4,
	}
}
