package eventqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEventsAppendsInOrder(t *testing.T) {
	q := New()
	defer q.Close()

	q.AddEvents(
		Event{Header: Header{Time: 0, Type: 0}, Kind: KindNoteOn},
		Event{Header: Header{Time: 10, Type: 1}, Kind: KindNoteOff},
	)

	require.Equal(t, 2, q.Len())
	assert.Equal(t, KindNoteOn, q.At(0).Kind)
	assert.Equal(t, KindNoteOff, q.At(1).Kind)
}

func TestAddEventsResortsOnMergeForMonotonicTime(t *testing.T) {
	q := New()
	defer q.Close()

	q.AddEvents(Event{Header: Header{Time: 20}})
	q.AddEvents(Event{Header: Header{Time: 5}})

	all := q.All()
	require.Len(t, all, 2)
	assert.Equal(t, uint32(5), all[0].Header.Time)
	assert.Equal(t, uint32(20), all[1].Header.Time)
}

func TestLastEventTimeEmptyQueue(t *testing.T) {
	q := New()
	defer q.Close()

	_, ok := q.LastEventTime()
	assert.False(t, ok)

	q.AddEvents(Event{Header: Header{Time: 42}})
	last, ok := q.LastEventTime()
	require.True(t, ok)
	assert.Equal(t, uint32(42), last)
}

func TestClearEmptiesQueue(t *testing.T) {
	q := New()
	defer q.Close()

	q.AddEvents(Event{Header: Header{Time: 1}}, Event{Header: Header{Time: 2}})
	require.Equal(t, 2, q.Len())

	q.Clear()
	assert.Equal(t, 0, q.Len())
}

func TestClassifyUnknownSpaceAndType(t *testing.T) {
	assert.Equal(t, KindNoteOn, classify(0, 0))
	assert.Equal(t, KindTransport, classify(0, 9))
	assert.Equal(t, KindUnknown, classify(1, 0))
	assert.Equal(t, KindUnknown, classify(0, 99))
}

func TestPushFromOutputViewIsVisibleToHost(t *testing.T) {
	q := New()
	defer q.Close()

	ok := q.push(Event{Header: Header{Time: 7}, Kind: KindParamValue, ParamValue: ParamValueData{ParamID: 3, Value: 0.5}})
	require.True(t, ok)

	all := q.All()
	require.Len(t, all, 1)
	assert.Equal(t, uint32(3), all[0].ParamValue.ParamID)
}
