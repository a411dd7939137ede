package binding

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/five82/marina/internal/records"
)

// Resolution is the handle of one in-flight fetch started by Resolve.
type Resolution struct {
	key    records.FilterKey
	gen    uint64
	tag    ulid.ULID
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	err        error
	superseded bool
}

func newResolution(key records.FilterKey, gen uint64, cancel context.CancelFunc) *Resolution {
	return &Resolution{
		key:    key,
		gen:    gen,
		tag:    ulid.Make(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Key returns the filter key the fetch was issued for.
func (r *Resolution) Key() records.FilterKey { return r.key }

// Tag returns the unique tag of the fetch.
func (r *Resolution) Tag() ulid.ULID { return r.tag }

// Cancel cancels the fetch context. The resolution still settles and still
// releases its busy bracket.
func (r *Resolution) Cancel() { r.cancel() }

// Done is closed once the fetch has settled and its bracket is released.
func (r *Resolution) Done() <-chan struct{} { return r.done }

// Wait blocks until the resolution settles or ctx ends and returns the
// fetch error.
func (r *Resolution) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the fetch error once settled.
func (r *Resolution) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Superseded reports whether a newer fetch won and this result was dropped.
func (r *Resolution) Superseded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.superseded
}

func (r *Resolution) settle(err error, superseded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.superseded = superseded
}
