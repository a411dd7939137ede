package save

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/five82/marina/internal/draft"
	"github.com/five82/marina/internal/loading"
	"github.com/five82/marina/internal/notify"
	"github.com/five82/marina/internal/records"
)

// Toast texts shown after a commit.
const (
	SuccessTitle   = "Success"
	SuccessMessage = "Ship it!"
	ErrorTitle     = "Error"
	RefreshTitle   = "Refresh failed"
)

// ErrCommitInFlight is returned when Commit is called while another commit
// has not settled yet.
var ErrCommitInFlight = errors.New("a save is already in progress")

// Persister writes a batch of edits. The batch is all-or-nothing.
type Persister interface {
	PersistBatch(ctx context.Context, edits []records.DraftEdit) error
}

// Refresher re-fetches the current result set and blocks until it is stored.
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}

// Observer is told about every settled commit.
type Observer interface {
	CommitCompleted(out Outcome, elapsed time.Duration)
}

// Outcome reports what a commit did. Err is the persist failure; RefreshErr
// is a failure of the refresh that follows a successful persist.
type Outcome struct {
	Saved      int
	Err        error
	RefreshErr error
}

// OK reports whether the batch was persisted.
func (o Outcome) OK() bool { return o.Err == nil }

// Orchestrator drives the commit sequence.
type Orchestrator struct {
	signal    *loading.Signal
	buffer    *draft.Buffer
	persister Persister
	refresher Refresher
	notifier  notify.Notifier
	logger    *zap.Logger
	observer  Observer

	inFlight atomic.Bool
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Signal    *loading.Signal
	Buffer    *draft.Buffer
	Persister Persister
	Refresher Refresher
	Notifier  notify.Notifier
	Logger    *zap.Logger
	Observer  Observer
}

// New builds an Orchestrator.
func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Log{Logger: d.Logger}
	}
	if d.Signal == nil {
		d.Signal = loading.New()
	}
	if d.Buffer == nil {
		d.Buffer = &draft.Buffer{}
	}
	return &Orchestrator{
		signal:    d.Signal,
		buffer:    d.Buffer,
		persister: d.Persister,
		refresher: d.Refresher,
		notifier:  d.Notifier,
		logger:    d.Logger,
		observer:  d.Observer,
	}
}

// Commit persists the buffered edits as one batch.
//
// The whole commit, including the refresh after a successful persist, runs
// inside one busy bracket; the bracket is closed on every exit path. On
// success the committed edits leave the buffer and the result set is
// refreshed. On failure the buffer is left untouched and no refresh happens.
// Commit never panics on transport failures.
func (o *Orchestrator) Commit(ctx context.Context) (out Outcome) {
	if !o.inFlight.CompareAndSwap(false, true) {
		o.logger.Warn("save ignored, previous save still running")
		return Outcome{Err: ErrCommitInFlight}
	}
	defer o.inFlight.Store(false)

	release := o.signal.Acquire()
	defer release()

	start := time.Now()
	if o.observer != nil {
		defer func() { o.observer.CommitCompleted(out, time.Since(start)) }()
	}

	edits := o.buffer.Snapshot()
	o.logger.Debug("persisting batch", zap.Int("edits", len(edits)))

	if err := o.persist(ctx, edits); err != nil {
		o.logger.Warn("persist failed", zap.Int("edits", len(edits)), zap.Error(err))
		o.notifier.Notify(notify.Notification{
			Title:    ErrorTitle,
			Message:  records.MessageOf(err),
			Severity: notify.SeverityError,
		})
		return Outcome{Err: err}
	}

	o.notifier.Notify(notify.Notification{
		Title:    SuccessTitle,
		Message:  SuccessMessage,
		Severity: notify.SeveritySuccess,
	})
	o.buffer.Discard(edits)
	out = Outcome{Saved: len(edits)}

	if err := o.refresh(ctx); err != nil {
		o.logger.Warn("refresh after save failed", zap.Error(err))
		o.notifier.Notify(notify.Notification{
			Title:    RefreshTitle,
			Message:  records.MessageOf(err),
			Severity: notify.SeverityError,
		})
		out.RefreshErr = err
	}
	return out
}

// InFlight reports whether a commit is running.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) persist(ctx context.Context, edits []records.DraftEdit) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("persist panicked: %v", p)
		}
	}()
	if o.persister == nil {
		return fmt.Errorf("no persister configured")
	}
	return o.persister.PersistBatch(ctx, edits)
}

func (o *Orchestrator) refresh(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("refresh panicked: %v", p)
		}
	}()
	if o.refresher == nil {
		return nil
	}
	return o.refresher.ForceRefresh(ctx)
}
