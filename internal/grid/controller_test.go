package grid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/marina/internal/loading"
	"github.com/five82/marina/internal/notify"
	"github.com/five82/marina/internal/records"
	"github.com/five82/marina/internal/selection"
)

// memoryService is an in-memory record service. Fetches can be held back
// per key to simulate out-of-order delivery.
type memoryService struct {
	mu        sync.Mutex
	boats     map[records.FilterKey][]records.Record
	holds     map[records.FilterKey]chan struct{}
	fetches   []records.FetchRequest
	persisted [][]records.DraftEdit
	persistFn func([]records.DraftEdit) error
	fetchErr  error
}

func newMemoryService() *memoryService {
	return &memoryService{
		boats: map[records.FilterKey][]records.Record{
			"sail":  {boat("1", "Osprey", 50000), boat("2", "Tern", 72000)},
			"motor": {boat("3", "Marlin", 120000)},
		},
		holds: make(map[records.FilterKey]chan struct{}),
	}
}

func boat(id, name string, cents int64) records.Record {
	return records.Record{ID: id, Fields: map[records.Field]records.Value{
		records.FieldName:  records.Text(name),
		records.FieldPrice: records.Currency(cents),
	}}
}

func (m *memoryService) hold(key records.FilterKey) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.holds[key] = ch
	return ch
}

func (m *memoryService) FetchRecords(ctx context.Context, req records.FetchRequest) ([]records.Record, error) {
	m.mu.Lock()
	m.fetches = append(m.fetches, req)
	hold := m.holds[req.Key]
	delete(m.holds, req.Key)
	m.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return records.CloneRecords(m.boats[req.Key]), nil
}

func (m *memoryService) PersistBatch(ctx context.Context, edits []records.DraftEdit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted = append(m.persisted, edits)
	if m.persistFn != nil {
		if err := m.persistFn(edits); err != nil {
			return err
		}
	}
	for key, list := range m.boats {
		for i := range list {
			for _, e := range edits {
				if list[i].ID == e.RecordID {
					list[i].Fields[e.Field] = e.Value
				}
			}
		}
		m.boats[key] = list
	}
	return nil
}

func (m *memoryService) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.fetches {
		if f.Refresh {
			n++
		}
	}
	return n
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []selection.Message
}

func (c *capturePublisher) Publish(_ selection.Channel, msg selection.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

type harness struct {
	svc   *memoryService
	notes *notify.Recorder
	pub   *capturePublisher
	ctl   *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{svc: newMemoryService(), notes: &notify.Recorder{}, pub: &capturePublisher{}}
	h.ctl = New(Options{
		Fetcher:   h.svc,
		Persister: h.svc,
		Notifier:  h.notes,
		Publisher: h.pub,
	})
	t.Cleanup(h.ctl.Close)
	return h
}

func ctxFor(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSearch_BracketsTheFetch(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	var events []loading.Event
	var mu sync.Mutex
	h.ctl.Subscribe(func(ev loading.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	hold := h.svc.hold("sail")
	r := h.ctl.Search(ctx, "sail")
	assert.True(t, h.ctl.Busy())

	close(hold)
	require.NoError(t, r.Wait(ctx))
	assert.False(t, h.ctl.Busy())
	assert.Len(t, h.ctl.ResultSet().Records, 2)
	assert.Equal(t, records.FilterKey("sail"), h.ctl.FilterKey())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []loading.Event{loading.EventLoading, loading.EventDoneLoading}, events)
}

func TestSearch_LastIssuedKeyWinsOutOfOrder(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)

	holdSail := h.svc.hold("sail")
	first := h.ctl.Search(ctx, "sail")
	second := h.ctl.Search(ctx, "motor")
	require.NoError(t, second.Wait(ctx))
	assert.True(t, h.ctl.Busy(), "sail fetch still pending")

	close(holdSail)
	require.NoError(t, first.Wait(ctx))

	rs := h.ctl.ResultSet()
	assert.Equal(t, records.FilterKey("motor"), rs.Key)
	require.Len(t, rs.Records, 1)
	assert.Equal(t, "3", rs.Records[0].ID)
	assert.False(t, h.ctl.Busy())
}

func TestSearch_FetchErrorIsStoredNotThrown(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	h.svc.fetchErr = errors.New("service unavailable")

	r := h.ctl.Search(ctx, "sail")
	assert.Error(t, r.Wait(ctx))

	rs := h.ctl.ResultSet()
	assert.Nil(t, rs.Records)
	assert.Error(t, rs.Err)
	assert.False(t, h.ctl.Busy())
}

func TestCommit_SuccessScenario(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	require.NoError(t, h.ctl.Search(ctx, "sail").Wait(ctx))

	h.ctl.OnCellsEdited(records.DraftEdit{RecordID: "1", Field: records.FieldPrice, Value: records.Currency(500)})
	out := h.ctl.OnSaveTriggered(ctx)

	require.True(t, out.OK())
	assert.Equal(t, []notify.Notification{{Title: "Success", Message: "Ship it!", Severity: notify.SeveritySuccess}}, h.notes.All())
	assert.Empty(t, h.ctl.Drafts())
	assert.Equal(t, 1, h.svc.refreshCount())
	assert.False(t, h.ctl.Busy())

	// refreshed data carries the saved value
	rs := h.ctl.ResultSet()
	require.Len(t, rs.Records, 2)
	assert.Equal(t, records.Currency(500), rs.Records[0].Fields[records.FieldPrice])
	assert.NoError(t, h.ctl.LastError())
}

func TestCommit_FailureScenario(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	require.NoError(t, h.ctl.Search(ctx, "sail").Wait(ctx))
	h.svc.persistFn = func([]records.DraftEdit) error {
		return &records.ServerError{Status: 400, Message: "Update failed"}
	}

	edit := records.DraftEdit{RecordID: "1", Field: records.FieldPrice, Value: records.Currency(500)}
	out := h.ctl.OnSaveTriggered(ctx, edit)

	require.False(t, out.OK())
	assert.Equal(t, []notify.Notification{{Title: "Error", Message: "Update failed", Severity: notify.SeverityError}}, h.notes.All())
	assert.Equal(t, []records.DraftEdit{edit}, h.ctl.Drafts())
	assert.Equal(t, 0, h.svc.refreshCount())
	assert.False(t, h.ctl.Busy())
	assert.Equal(t, "Update failed", records.MessageOf(h.ctl.LastError()))
}

func TestCommit_IdleOnlyAfterRefreshSettles(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	require.NoError(t, h.ctl.Search(ctx, "sail").Wait(ctx))

	hold := h.svc.hold("sail")
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ctl.OnSaveTriggered(ctx, records.DraftEdit{RecordID: "2", Field: records.FieldName, Value: records.Text("Gull")})
	}()

	require.Eventually(t, func() bool { return h.svc.refreshCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.ctl.Busy(), "refresh after save is still outstanding")

	close(hold)
	<-done
	assert.False(t, h.ctl.Busy())
}

func TestOnSaveTriggered_MergesEditsBeforeCommit(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)

	h.ctl.OnCellsEdited(records.DraftEdit{RecordID: "1", Field: records.FieldName, Value: records.Text("Draft")})
	h.ctl.OnSaveTriggered(ctx,
		records.DraftEdit{RecordID: "1", Field: records.FieldName, Value: records.Text("Final")},
		records.DraftEdit{RecordID: "2", Field: records.FieldPrice, Value: records.Currency(100)},
	)

	require.Len(t, h.svc.persisted, 1)
	assert.Equal(t, []records.DraftEdit{
		{RecordID: "1", Field: records.FieldName, Value: records.Text("Final")},
		{RecordID: "2", Field: records.FieldPrice, Value: records.Currency(100)},
	}, h.svc.persisted[0])
}

func TestOnRowSelected_PublishesWithoutTouchingState(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	require.NoError(t, h.ctl.Search(ctx, "sail").Wait(ctx))
	before := h.ctl.ResultSet()
	fetches := len(h.svc.fetches)

	var events int
	h.ctl.Subscribe(func(loading.Event) { events++ })
	h.ctl.OnRowSelected("2")

	require.Len(t, h.pub.msgs, 1)
	assert.Equal(t, "2", h.pub.msgs[0].RecordID)
	assert.Equal(t, "2", h.ctl.Selected())
	assert.Equal(t, 0, events)
	assert.False(t, h.ctl.Busy())
	assert.Equal(t, before.Tag, h.ctl.ResultSet().Tag)
	assert.Equal(t, fetches, len(h.svc.fetches))
}

func TestRefresh_IsIdempotentWithoutEdits(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	require.NoError(t, h.ctl.Search(ctx, "sail").Wait(ctx))
	before := h.ctl.ResultSet()

	require.NoError(t, h.ctl.Refresh(ctx))

	after := h.ctl.ResultSet()
	assert.Equal(t, before.Key, after.Key)
	assert.Equal(t, before.Records, after.Records)
	assert.False(t, h.ctl.Busy())
}

func TestRefresh_ErrorStoredAndIdle(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	require.NoError(t, h.ctl.Search(ctx, "sail").Wait(ctx))
	h.svc.fetchErr = errors.New("gateway timeout")

	err := h.ctl.Refresh(ctx)
	require.Error(t, err)
	assert.Nil(t, h.ctl.ResultSet().Records)
	assert.False(t, h.ctl.Busy())
	assert.Error(t, h.ctl.LastError())
}

func TestRefresh_OvertakenBySearchReportsNoError(t *testing.T) {
	h := newHarness(t)
	ctx := ctxFor(t)
	require.NoError(t, h.ctl.Search(ctx, "sail").Wait(ctx))

	hold := h.svc.hold("sail")
	done := make(chan error, 1)
	go func() { done <- h.ctl.Refresh(ctx) }()
	require.Eventually(t, func() bool { return h.svc.refreshCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.ctl.Search(ctx, "motor").Wait(ctx))

	h.svc.mu.Lock()
	h.svc.fetchErr = errors.New("stale transport failure")
	h.svc.mu.Unlock()
	close(hold)

	assert.NoError(t, <-done)
	assert.NoError(t, h.ctl.LastError())
	rs := h.ctl.ResultSet()
	assert.Equal(t, records.FilterKey("motor"), rs.Key)
	assert.NoError(t, rs.Err)
	assert.False(t, h.ctl.Busy())
}

func TestDiscardDrafts(t *testing.T) {
	h := newHarness(t)
	h.ctl.OnCellsEdited(records.DraftEdit{RecordID: "1", Field: records.FieldName, Value: records.Text("X")})
	v, ok := h.ctl.Draft("1", records.FieldName)
	require.True(t, ok)
	assert.Equal(t, records.Text("X"), v)

	h.ctl.DiscardDrafts()
	assert.Empty(t, h.ctl.Drafts())
}
