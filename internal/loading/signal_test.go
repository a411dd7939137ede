package loading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_StartsIdle(t *testing.T) {
	s := New()
	assert.False(t, s.IsBusy())
	assert.Equal(t, 0, s.Depth())

	var zero Signal
	assert.False(t, zero.IsBusy())
}

func TestSignal_EmitsOncePerCallWithoutDedup(t *testing.T) {
	s := New()
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.SetBusy()
	s.SetBusy()
	s.SetIdle()
	s.SetIdle()
	s.SetIdle() // extra idle still emits

	assert.Equal(t, []Event{EventLoading, EventLoading, EventDoneLoading, EventDoneLoading, EventDoneLoading}, events)
	assert.False(t, s.IsBusy())
	assert.Equal(t, 0, s.Depth())
}

func TestSignal_NestedBracketsKeepBusy(t *testing.T) {
	s := New()
	outer := s.Acquire()
	inner := s.Acquire()

	inner()
	assert.True(t, s.IsBusy(), "outer bracket still open")

	outer()
	assert.False(t, s.IsBusy())
}

func TestSignal_ReleaseIsIdempotent(t *testing.T) {
	s := New()
	var done int
	s.Subscribe(func(ev Event) {
		if ev == EventDoneLoading {
			done++
		}
	})

	keep := s.Acquire()
	release := s.Acquire()
	release()
	release()

	assert.Equal(t, 1, done)
	assert.True(t, s.IsBusy())
	keep()
	assert.False(t, s.IsBusy())
}

func TestSignal_Unsubscribe(t *testing.T) {
	s := New()
	var calls int
	unsubscribe := s.Subscribe(func(Event) { calls++ })
	s.SetBusy()
	unsubscribe()
	s.SetIdle()
	assert.Equal(t, 1, calls)
}

func TestSignal_ListenersRunInRegistrationOrder(t *testing.T) {
	s := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.Subscribe(func(Event) { order = append(order, i) })
	}
	s.SetBusy()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSignal_ConcurrentBrackets(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := s.Acquire()
			defer release()
		}()
	}
	wg.Wait()
	assert.False(t, s.IsBusy())
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "loading", EventLoading.String())
	assert.Equal(t, "doneloading", EventDoneLoading.String())
}
