package binding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/five82/marina/internal/loading"
	"github.com/five82/marina/internal/records"
	"github.com/five82/marina/internal/state"
)

// Fetcher loads the records for a filter key.
type Fetcher interface {
	FetchRecords(ctx context.Context, req records.FetchRequest) ([]records.Record, error)
}

// Observer is told about every completed fetch.
type Observer interface {
	FetchCompleted(refresh bool, accepted bool, err error, elapsed time.Duration)
}

// Option customizes a Binding.
type Option func(*Binding)

// WithObserver registers an observer for completed fetches.
func WithObserver(o Observer) Option {
	return func(b *Binding) { b.observer = o }
}

// WithStore makes the binding write into an existing store.
func WithStore(s *state.Store) Option {
	return func(b *Binding) { b.store = s }
}

// Binding keeps the current result set in step with the current filter key.
type Binding struct {
	fetcher  Fetcher
	store    *state.Store
	logger   *zap.Logger
	observer Observer

	mu        sync.Mutex
	key       records.FilterKey
	pending   map[uint64]*Resolution
	nextID    int
	listeners map[int]func(records.ResultSet)
}

// New builds a binding over fetcher. A nil logger disables logging.
func New(fetcher Fetcher, logger *zap.Logger, opts ...Option) *Binding {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Binding{
		fetcher:   fetcher,
		logger:    logger,
		pending:   make(map[uint64]*Resolution),
		listeners: make(map[int]func(records.ResultSet)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = &state.Store{}
	}
	return b
}

// Resolve makes key the current filter key and starts one fetch for it.
// Every call starts exactly one fetch, even when key equals the current key.
// When the fetch settles its result replaces the current result set, unless
// a newer fetch has been issued meanwhile, and release is called. release
// may be nil.
func (b *Binding) Resolve(ctx context.Context, key records.FilterKey, release loading.Release) *Resolution {
	rctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	gen := b.store.Issue()
	b.key = key
	r := newResolution(key, gen, cancel)
	b.pending[gen] = r
	b.mu.Unlock()

	b.logger.Debug("resolving filter key",
		zap.String("filter_key", string(key)),
		zap.String("tag", r.tag.String()))

	go b.run(rctx, r, release)
	return r
}

func (b *Binding) run(ctx context.Context, r *Resolution, release loading.Release) {
	rs, accepted := b.fetch(ctx, r.gen, records.FetchRequest{Key: r.key}, r.tag)

	b.mu.Lock()
	delete(b.pending, r.gen)
	b.mu.Unlock()
	r.cancel()

	if !accepted {
		b.logger.Debug("discarded stale result",
			zap.String("filter_key", string(r.key)),
			zap.String("tag", r.tag.String()))
	}
	r.settle(rs.Err, !accepted)
	if release != nil {
		release()
	}
	close(r.done)
}

// ForceRefresh re-fetches the current filter key, handing the current
// result set to the transport as a refresh hint, and blocks until the result
// is stored. The filter key is not changed. A refresh overtaken by a newer
// Resolve is discarded along with its error. Otherwise the fetch error, if
// any, is returned and also stored. Close cancels a pending refresh.
func (b *Binding) ForceRefresh(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	key := b.key
	gen := b.store.Issue()
	r := newResolution(key, gen, cancel)
	b.pending[gen] = r
	b.mu.Unlock()

	b.logger.Debug("refreshing filter key",
		zap.String("filter_key", string(key)),
		zap.String("tag", r.tag.String()))

	req := records.FetchRequest{Key: key, Refresh: true, Previous: b.store.Snapshot().Result}
	rs, accepted := b.fetch(rctx, gen, req, r.tag)

	b.mu.Lock()
	delete(b.pending, gen)
	b.mu.Unlock()
	cancel()

	if !accepted {
		b.logger.Debug("discarded stale refresh",
			zap.String("filter_key", string(key)),
			zap.String("tag", r.tag.String()),
			zap.NamedError("discarded_error", rs.Err))
		return nil
	}
	if rs.Err != nil {
		return fmt.Errorf("refresh %q: %w", key, rs.Err)
	}
	return nil
}

func (b *Binding) fetch(ctx context.Context, gen uint64, req records.FetchRequest, tag ulid.ULID) (records.ResultSet, bool) {
	start := time.Now()
	recs, err := b.safeFetch(ctx, req)

	var rs records.ResultSet
	if err != nil {
		b.logger.Warn("fetch failed",
			zap.String("filter_key", string(req.Key)),
			zap.Bool("refresh", req.Refresh),
			zap.Error(err))
		rs = records.FailedResultSet(req.Key, err)
	} else {
		rs = records.NewResultSet(req.Key, recs)
	}
	rs.Tag = tag

	accepted := b.store.Update(gen, rs)
	if b.observer != nil {
		b.observer.FetchCompleted(req.Refresh, accepted, err, time.Since(start))
	}
	if accepted {
		b.notify(b.store.Snapshot().Result)
	}
	return rs, accepted
}

func (b *Binding) safeFetch(ctx context.Context, req records.FetchRequest) (recs []records.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("fetch panicked: %v", p)
		}
	}()
	if b.fetcher == nil {
		return nil, fmt.Errorf("no record fetcher configured")
	}
	return b.fetcher.FetchRecords(ctx, req)
}

// Key returns the current filter key.
func (b *Binding) Key() records.FilterKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key
}

// Current returns a copy of the current result set.
func (b *Binding) Current() records.ResultSet {
	return b.store.Snapshot().Result
}

// Snapshot returns the full store snapshot, including failure counters.
func (b *Binding) Snapshot() state.Snapshot {
	return b.store.Snapshot()
}

// OnChange registers fn to be called with every accepted result set. The
// returned func removes the registration.
func (b *Binding) OnChange(fn func(records.ResultSet)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *Binding) notify(rs records.ResultSet) {
	b.mu.Lock()
	fns := make([]func(records.ResultSet), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(rs.Clone())
	}
}

// Close cancels every outstanding resolution and refresh.
func (b *Binding) Close() {
	b.mu.Lock()
	pending := make([]*Resolution, 0, len(b.pending))
	for _, r := range b.pending {
		pending = append(pending, r)
	}
	b.mu.Unlock()
	for _, r := range pending {
		r.Cancel()
	}
}
