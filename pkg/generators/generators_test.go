package generators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNoteGeneratorClosesEveryVoiceItOpens(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numFrames := uint32(rapid.IntRange(1, 4096).Draw(t, "numFrames"))
		maxEvents := rapid.IntRange(0, 32).Draw(t, "maxEvents")

		gen := NewNoteGenerator(NewRand(), 0)
		events := gen.Generate(numFrames, maxEvents)

		open := map[int32]bool{}
		for _, e := range events {
			switch e.Kind {
			case 0: // KindNoteOn
				open[e.Note.NoteID] = true
			case 1: // KindNoteOff
				delete(open, e.Note.NoteID)
			}
		}
		assert.Empty(t, open, "every opened voice must be closed within the same call")

		for _, e := range events {
			assert.Less(t, e.Header.Time, numFrames)
		}
	})
}

func TestParamFuzzerStaysWithinDeclaredRange(t *testing.T) {
	ranges := map[uint32][2]float64{1: {0, 1}, 2: {-10, 10}}
	f := NewParamFuzzer(NewRand(), ranges)
	events := f.Generate(128, 16)

	require.NotNil(t, events)
	for _, e := range events {
		if e.Kind != 5 { // KindParamValue
			continue
		}
		r := ranges[e.ParamValue.ParamID]
		assert.GreaterOrEqual(t, e.ParamValue.Value, r[0])
		assert.LessOrEqual(t, e.ParamValue.Value, r[1])
	}
}

func TestParamFuzzerBracketsValueWithGestures(t *testing.T) {
	ranges := map[uint32][2]float64{1: {0, 1}}
	f := NewParamFuzzer(NewRand(), ranges)

	raw := f.Generate(64, 4)
	require.NotEmpty(t, raw)
	require.Zero(t, len(raw)%3, "events come in (begin, value, end) triples")
	for i := 0; i+2 < len(raw); i += 3 {
		assert.EqualValues(t, 7, raw[i].Kind)
		assert.EqualValues(t, 5, raw[i+1].Kind)
		assert.EqualValues(t, 8, raw[i+2].Kind)
	}
}

func TestTransportFuzzerNeverGoesBackwardsWhilePlaying(t *testing.T) {
	f := NewTransportFuzzer(NewRand())
	f.playing = true

	last := int64(0)
	for i := 0; i < 100; i++ {
		snap := f.Next(512, 48000)
		assert.GreaterOrEqual(t, snap.SongPosBeats, last)
		last = snap.SongPosBeats
	}
}
