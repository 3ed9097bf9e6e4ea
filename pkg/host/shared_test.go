package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackErrorIsWriteOnceWins(t *testing.T) {
	s := New()
	defer s.Release()

	_, ok := s.CallbackError()
	require.False(t, ok)

	s.setCallbackError("first violation: %s", "boom")
	s.setCallbackError("second violation")

	msg, ok := s.CallbackError()
	require.True(t, ok)
	assert.Equal(t, "first violation: boom", msg)
}

func TestStatusOrdering(t *testing.T) {
	assert.True(t, Uninitialized < Deactivated)
	assert.True(t, Deactivated < Activating)
	assert.True(t, Activating < Activated)
	assert.True(t, Activated < Processing)
}

func TestAssertMainThreadFlagsOtherGoroutine(t *testing.T) {
	s := New()
	defer s.Release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.assertMainThread("test-callback")
	}()
	<-done

	msg, ok := s.CallbackError()
	require.True(t, ok)
	assert.Contains(t, msg, "main thread")
}

func TestRequestedRestartFlag(t *testing.T) {
	s := New()
	defer s.Release()

	assert.False(t, s.RequestedRestart())
	s.requestedRestart.Store(true)
	assert.True(t, s.RequestedRestart())
	s.ClearRequestedRestart()
	assert.False(t, s.RequestedRestart())
}
