package audiobuf

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stereoMono() PortLayout {
	return PortLayout{
		Inputs:  []PortSpec{{Channels: 2, IsMain: true, InPlacePair: ptr(0)}},
		Outputs: []PortSpec{{Channels: 2, IsMain: true}},
	}
}

func ptr(i int) *int { return &i }

func TestOutOfPlaceCoversEveryPortExactlyOnce(t *testing.T) {
	bufs := NewOutOfPlace(stereoMono(), 512, F32)
	require.NoError(t, bufs.Validate())
	assert.Len(t, bufs.Ports(), 2)
}

func TestInPlaceSharesMatchingChannelCounts(t *testing.T) {
	bufs := NewInPlace(stereoMono(), 512, F32)
	require.NoError(t, bufs.Validate())
	require.Len(t, bufs.Ports(), 1)
	assert.True(t, bufs.Ports()[0].Role.IsInput)
	assert.True(t, bufs.Ports()[0].Role.IsOutput)
}

func TestInPlaceFallsBackWhenChannelsDiffer(t *testing.T) {
	layout := PortLayout{
		Inputs:  []PortSpec{{Channels: 1, InPlacePair: ptr(0)}},
		Outputs: []PortSpec{{Channels: 2}},
	}
	bufs := NewInPlace(layout, 256, F32)
	require.Len(t, bufs.Ports(), 2)
	for _, p := range bufs.Ports() {
		assert.NotEqual(t, Role{Input: 0, Output: 0, IsInput: true, IsOutput: true}, p.Role)
	}
}

func TestFillPoisonThenFillSilenceChangesSamples(t *testing.T) {
	b := NewBuffer(OutputRole(0), F32, 2, 16)
	b.FillPoison()
	assert.Equal(t, math.Float32bits(PoisonF32), math.Float32bits(b.Samples32(0)[0]))

	b.FillSilence()
	assert.Equal(t, float32(0), b.Samples32(0)[0])
}

func TestSnapshotAndEqual(t *testing.T) {
	b := NewBuffer(InputRole(0), F32, 1, 8)
	rng := rand.New(rand.NewPCG(1337, 420))
	b.FillWhiteNoise(rng.Float64)

	snap := b.Snapshot()
	assert.True(t, b.Equal(snap))

	b.Samples32(0)[0] += 1
	assert.False(t, b.Equal(snap))
}

func TestWhiteNoiseClampsSubnormalsToZero(t *testing.T) {
	b := NewBuffer(InputRole(0), F32, 1, 1)
	b.FillWhiteNoise(func() float64 { return 0.5 }) // -> 0 exactly, never subnormal by construction
	assert.False(t, isSubnormal32(b.Samples32(0)[0]))
}
