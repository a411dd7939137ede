package loading

import (
	"sort"
	"sync"
)

// Event is a loading transition notification.
type Event int

const (
	// EventLoading is emitted by every SetBusy call.
	EventLoading Event = iota
	// EventDoneLoading is emitted by every SetIdle call.
	EventDoneLoading
)

func (e Event) String() string {
	if e == EventLoading {
		return "loading"
	}
	return "doneloading"
}

// Listener receives loading events.
type Listener func(Event)

// Release closes a busy bracket. Calling it more than once has no effect.
type Release func()

// Signal is a reference-counted busy flag. The zero value is idle and ready
// to use.
type Signal struct {
	mu        sync.Mutex
	depth     int
	nextID    int
	listeners map[int]Listener
}

// New returns an idle signal.
func New() *Signal {
	return &Signal{}
}

// SetBusy opens a busy bracket and emits EventLoading.
func (s *Signal) SetBusy() {
	s.mu.Lock()
	s.depth++
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	emit(listeners, EventLoading)
}

// SetIdle closes a busy bracket and emits EventDoneLoading. The bracket
// count never goes below zero.
func (s *Signal) SetIdle() {
	s.mu.Lock()
	if s.depth > 0 {
		s.depth--
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	emit(listeners, EventDoneLoading)
}

// IsBusy reports whether any bracket is open.
func (s *Signal) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth > 0
}

// Depth returns the number of open brackets.
func (s *Signal) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// Acquire opens a bracket and returns the func that closes it.
func (s *Signal) Acquire() Release {
	s.SetBusy()
	var once sync.Once
	return func() {
		once.Do(s.SetIdle)
	}
}

// Subscribe registers fn for every subsequent event. The returned func
// removes the registration.
func (s *Signal) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]Listener)
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Signal) snapshotListeners() []Listener {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}

func emit(listeners []Listener, ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}
