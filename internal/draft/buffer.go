package draft

import (
	"sync"

	"github.com/five82/marina/internal/records"
)

// Buffer holds pending edits keyed by record id and field. A later edit of
// the same cell replaces the earlier one. The zero value is ready to use.
type Buffer struct {
	mu    sync.Mutex
	edits map[records.DraftKey]records.Value
}

// Add merges edits into the buffer, last write wins per cell.
func (b *Buffer) Add(edits ...records.DraftEdit) {
	if len(edits) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.edits == nil {
		b.edits = make(map[records.DraftKey]records.Value, len(edits))
	}
	for _, e := range edits {
		b.edits[e.Key()] = e.Value
	}
}

// Snapshot returns the pending edits without clearing them, ordered by
// record id and column.
func (b *Buffer) Snapshot() []records.DraftEdit {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]records.DraftEdit, 0, len(b.edits))
	for k, v := range b.edits {
		out = append(out, records.DraftEdit{RecordID: k.RecordID, Field: k.Field, Value: v})
	}
	records.SortEdits(out)
	return out
}

// Clear drops every pending edit.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edits = nil
}

// Discard removes the committed edits whose cell still holds the committed
// value. Cells edited again after the commit snapshot was taken are kept.
func (b *Buffer) Discard(committed []records.DraftEdit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range committed {
		if cur, ok := b.edits[e.Key()]; ok && cur == e.Value {
			delete(b.edits, e.Key())
		}
	}
}

// Len returns the number of pending cells.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.edits)
}

// Value returns the pending value of one cell.
func (b *Buffer) Value(recordID string, field records.Field) (records.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.edits[records.DraftKey{RecordID: recordID, Field: field}]
	return v, ok
}
