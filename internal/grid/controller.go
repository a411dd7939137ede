package grid

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/marina/internal/binding"
	"github.com/five82/marina/internal/draft"
	"github.com/five82/marina/internal/loading"
	"github.com/five82/marina/internal/notify"
	"github.com/five82/marina/internal/records"
	"github.com/five82/marina/internal/save"
	"github.com/five82/marina/internal/selection"
	"github.com/five82/marina/internal/state"
)

// Options configure a Controller.
type Options struct {
	Fetcher   binding.Fetcher
	Persister save.Persister
	Notifier  notify.Notifier
	Publisher selection.Publisher
	Channel   selection.Channel // defaults to selection.BoatChannel
	Logger    *zap.Logger

	FetchObserver  binding.Observer
	CommitObserver save.Observer
}

// Controller wires the grid's components together. All methods are safe for
// concurrent use.
type Controller struct {
	logger      *zap.Logger
	signal      *loading.Signal
	binding     *binding.Binding
	buffer      *draft.Buffer
	saver       *save.Orchestrator
	broadcaster *selection.Broadcaster

	mu      sync.Mutex
	lastErr error
}

// New builds a Controller. The loading signal starts idle.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := opts.Channel
	if channel == "" {
		channel = selection.BoatChannel
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}

	c := &Controller{
		logger: logger,
		signal: loading.New(),
		buffer: &draft.Buffer{},
	}

	var bindOpts []binding.Option
	if opts.FetchObserver != nil {
		bindOpts = append(bindOpts, binding.WithObserver(opts.FetchObserver))
	}
	c.binding = binding.New(opts.Fetcher, logger.Named("binding"), bindOpts...)
	c.saver = save.New(save.Deps{
		Signal:    c.signal,
		Buffer:    c.buffer,
		Persister: opts.Persister,
		Refresher: c.binding,
		Notifier:  notifier,
		Logger:    logger.Named("save"),
		Observer:  opts.CommitObserver,
	})
	c.broadcaster = selection.NewBroadcaster(opts.Publisher, channel, logger.Named("selection"))
	return c
}

// Search sets busy and makes key the current filter key. The binding clears
// busy when the fetch settles. The returned handle can be waited on.
func (c *Controller) Search(ctx context.Context, key records.FilterKey) *binding.Resolution {
	release := c.signal.Acquire()
	return c.binding.Resolve(ctx, key, release)
}

// Refresh re-fetches the current filter key inside a busy bracket. The
// error is also stored in the result set.
func (c *Controller) Refresh(ctx context.Context) error {
	release := c.signal.Acquire()
	defer release()
	if err := c.binding.ForceRefresh(ctx); err != nil {
		c.logger.Warn("refresh failed", zap.Error(err))
		c.setLastError(err)
		return err
	}
	return nil
}

// OnRowSelected broadcasts the selected record.
func (c *Controller) OnRowSelected(recordID string) {
	c.broadcaster.Select(recordID)
}

// OnCellsEdited buffers edits without persisting them.
func (c *Controller) OnCellsEdited(edits ...records.DraftEdit) {
	c.buffer.Add(edits...)
}

// OnSaveTriggered buffers edits and commits the whole buffer.
func (c *Controller) OnSaveTriggered(ctx context.Context, edits ...records.DraftEdit) save.Outcome {
	c.buffer.Add(edits...)
	out := c.saver.Commit(ctx)
	switch {
	case out.Err != nil:
		c.setLastError(out.Err)
	case out.RefreshErr != nil:
		c.setLastError(out.RefreshErr)
	}
	return out
}

// ResultSet returns the current result set.
func (c *Controller) ResultSet() records.ResultSet { return c.binding.Current() }

// Snapshot returns the current result set with its fetch bookkeeping.
func (c *Controller) Snapshot() state.Snapshot { return c.binding.Snapshot() }

// FilterKey returns the current filter key.
func (c *Controller) FilterKey() records.FilterKey { return c.binding.Key() }

// Drafts returns the pending edits.
func (c *Controller) Drafts() []records.DraftEdit { return c.buffer.Snapshot() }

// Draft returns the pending value of one cell.
func (c *Controller) Draft(recordID string, field records.Field) (records.Value, bool) {
	return c.buffer.Value(recordID, field)
}

// DiscardDrafts drops every pending edit.
func (c *Controller) DiscardDrafts() { c.buffer.Clear() }

// Busy reports whether any operation is in flight.
func (c *Controller) Busy() bool { return c.signal.IsBusy() }

// Saving reports whether a save commit is running.
func (c *Controller) Saving() bool { return c.saver.InFlight() }

// Selected returns the last selected record id.
func (c *Controller) Selected() string { return c.broadcaster.Selected() }

// Signal exposes the loading signal for observers such as metrics.
func (c *Controller) Signal() *loading.Signal { return c.signal }

// Subscribe registers fn for loading/doneloading events.
func (c *Controller) Subscribe(fn loading.Listener) func() { return c.signal.Subscribe(fn) }

// OnResultChange registers fn for every accepted result set.
func (c *Controller) OnResultChange(fn func(records.ResultSet)) func() {
	return c.binding.OnChange(fn)
}

// LastError returns the most recent save or refresh failure.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close cancels outstanding fetches.
func (c *Controller) Close() {
	c.binding.Close()
}

func (c *Controller) setLastError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}
