package fakeplugin

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clapgo/clap-validator/internal/clapabi"
	"github.com/clapgo/clap-validator/pkg/audiobuf"
	"github.com/clapgo/clap-validator/pkg/eventqueue"
	"github.com/clapgo/clap-validator/pkg/host"
	"github.com/clapgo/clap-validator/pkg/instance"
	"github.com/clapgo/clap-validator/pkg/process"
)

func newSynthInstance(t *testing.T) *instance.Instance {
	t.Helper()
	shared := host.New()
	raw := New(shared.HostPtr())
	require.NotEqual(t, unsafe.Pointer(nil), raw)

	desc := clapabi.Descriptor{ID: "com.clapgo.validator.fakeplugin.synth", Name: "Validator Fake Synth"}
	inst := instance.NewDetached(desc, shared, raw)
	t.Cleanup(inst.Destroy)
	return inst
}

func stereoLayout() audiobuf.PortLayout {
	return audiobuf.PortLayout{
		Outputs: []audiobuf.PortSpec{{Channels: 2, IsMain: true}},
	}
}

func TestActivateStartProcessingRoundTrip(t *testing.T) {
	inst := newSynthInstance(t)

	require.NoError(t, inst.Activate(48000, 1, 512))
	require.NoError(t, inst.StartProcessing())
	inst.StopProcessing()
	inst.Deactivate()
}

func TestProcessRendersSilenceWithNoNotes(t *testing.T) {
	inst := newSynthInstance(t)
	require.NoError(t, inst.Activate(48000, 1, 128))
	require.NoError(t, inst.StartProcessing())

	buffers := audiobuf.NewOutOfPlace(stereoLayout(), 128, audiobuf.F32)
	in := eventqueue.New()
	out := eventqueue.New()
	defer in.Close()
	defer out.Close()

	scope := process.NewScope(inst, buffers, in, out, process.TransportState{Tempo: 120}, 0)
	status, err := scope.Run(128)
	require.NoError(t, err)
	assert.Equal(t, process.StatusContinue, status)

	for _, v := range scope.Audit() {
		assert.NotEqual(t, "output-uninitialized", v.Check, v.Error())
	}

	for _, p := range buffers.Ports() {
		if !p.Role.IsOutput {
			continue
		}
		for c := 0; c < p.Channels(); c++ {
			for i, sample := range p.Samples32(c) {
				assert.Zero(t, sample, "channel %d sample %d", c, i)
			}
		}
	}
}

func TestProcessRendersNoteAsNonSilence(t *testing.T) {
	inst := newSynthInstance(t)
	require.NoError(t, inst.Activate(48000, 1, 512))
	require.NoError(t, inst.StartProcessing())

	buffers := audiobuf.NewOutOfPlace(stereoLayout(), 512, audiobuf.F32)
	in := eventqueue.New()
	out := eventqueue.New()
	defer in.Close()
	defer out.Close()

	in.AddEvents(eventqueue.Event{
		Header: eventqueue.Header{Time: 0, SpaceID: 0, Type: uint16(eventqueue.KindNoteOn)},
		Kind:   eventqueue.KindNoteOn,
		Note: eventqueue.NoteData{
			NoteID:   1,
			Key:      69,
			Channel:  0,
			Velocity: 1,
		},
	})

	scope := process.NewScope(inst, buffers, in, out, process.TransportState{Tempo: 120}, 0)
	status, err := scope.Run(512)
	require.NoError(t, err)
	assert.Equal(t, process.StatusContinue, status)

	nonZero := false
	for _, p := range buffers.Ports() {
		if !p.Role.IsOutput {
			continue
		}
		for c := 0; c < p.Channels(); c++ {
			for _, sample := range p.Samples32(c) {
				if sample != 0 {
					nonZero = true
				}
			}
		}
	}
	assert.True(t, nonZero, "expected the synth to render a non-silent sine wave once a note is on")
}

func TestStateExtensionIsExposed(t *testing.T) {
	inst := newSynthInstance(t)
	require.NoError(t, inst.Activate(48000, 1, 128))

	statePtr := inst.GetExtension("clap.state")
	require.NotNil(t, statePtr)
}
