package records

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// Field names a record column.
type Field string

const (
	FieldName        Field = "name"
	FieldLength      Field = "length"
	FieldPrice       Field = "price"
	FieldDescription Field = "description"
)

// Column describes one grid column.
type Column struct {
	Field    Field
	Label    string
	Kind     Kind
	Editable bool
}

// BoatColumns lists the boat grid columns in display order.
var BoatColumns = []Column{
	{Field: FieldName, Label: "Name", Kind: KindText, Editable: true},
	{Field: FieldLength, Label: "Length", Kind: KindNumber, Editable: true},
	{Field: FieldPrice, Label: "Price", Kind: KindCurrency, Editable: true},
	{Field: FieldDescription, Label: "Description", Kind: KindText, Editable: true},
}

// KindOf returns the kind of a known field.
func KindOf(field Field) (Kind, bool) {
	for _, col := range BoatColumns {
		if col.Field == field {
			return col.Kind, true
		}
	}
	return 0, false
}

func fieldOrder(field Field) int {
	for i, col := range BoatColumns {
		if col.Field == field {
			return i
		}
	}
	return len(BoatColumns)
}

// FilterKey selects which subset of records to fetch. It is opaque to the
// grid; the empty key is handed to the fetch transport unchanged.
type FilterKey string

// Record is one row of the grid.
type Record struct {
	ID     string
	Fields map[Field]Value
}

// Get returns the value stored for field.
func (r Record) Get(field Field) (Value, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	dup := Record{ID: r.ID}
	if r.Fields != nil {
		dup.Fields = make(map[Field]Value, len(r.Fields))
		for k, v := range r.Fields {
			dup.Fields[k] = v
		}
	}
	return dup
}

// MarshalJSON flattens the record into {"id": ..., "<field>": value}.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	out["id"] = r.ID
	for k, v := range r.Fields {
		out[string(k)] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flattened record using the boat column kinds.
// Unknown keys are ignored.
func (r *Record) UnmarshalJSON(data []byte) error {
	id, fields, err := decodeFlat(data)
	if err != nil {
		return err
	}
	r.ID = id
	r.Fields = fields
	return nil
}

func decodeFlat(data []byte) (string, map[Field]Value, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("decode record: %w", err)
	}
	var id string
	if rawID, ok := raw["id"]; ok {
		if err := json.Unmarshal(rawID, &id); err != nil {
			return "", nil, fmt.Errorf("decode record id: %w", err)
		}
	}
	fields := make(map[Field]Value)
	for key, val := range raw {
		kind, ok := KindOf(Field(key))
		if !ok {
			continue
		}
		v, err := decodeValue(kind, val)
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", key, err)
		}
		fields[Field(key)] = v
	}
	return id, fields, nil
}

// CloneRecords deep-copies a record slice. A nil slice stays nil.
func CloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}

// ResultSet is one resolution of a filter key: either records or an error.
type ResultSet struct {
	Key       FilterKey
	Records   []Record
	Err       error
	Tag       ulid.ULID
	FetchedAt time.Time
}

// NewResultSet builds a successful result set.
func NewResultSet(key FilterKey, recs []Record) ResultSet {
	if recs == nil {
		recs = []Record{}
	}
	return ResultSet{Key: key, Records: recs, FetchedAt: time.Now()}
}

// FailedResultSet builds a result set holding only an error.
func FailedResultSet(key FilterKey, err error) ResultSet {
	return ResultSet{Key: key, Err: err, FetchedAt: time.Now()}
}

// Loaded reports whether the set holds a successful fetch.
func (rs ResultSet) Loaded() bool {
	return rs.Err == nil && rs.Records != nil
}

// Clone returns a copy with its records deep-copied.
func (rs ResultSet) Clone() ResultSet {
	dup := rs
	dup.Records = CloneRecords(rs.Records)
	return dup
}

// DraftKey identifies one pending cell.
type DraftKey struct {
	RecordID string
	Field    Field
}

// DraftEdit is one pending, unpersisted field change.
type DraftEdit struct {
	RecordID string
	Field    Field
	Value    Value
}

// Key returns the buffer key of the edit.
func (e DraftEdit) Key() DraftKey {
	return DraftKey{RecordID: e.RecordID, Field: e.Field}
}

// SortEdits orders edits by record id, then by column order.
func SortEdits(edits []DraftEdit) {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].RecordID != edits[j].RecordID {
			return edits[i].RecordID < edits[j].RecordID
		}
		return fieldOrder(edits[i].Field) < fieldOrder(edits[j].Field)
	})
}

// RowPatch groups the edits of a single record, the shape of one row of a
// batch update request.
type RowPatch struct {
	ID     string
	Fields map[Field]Value
}

// MarshalJSON flattens the patch into {"id": ..., "<field>": value}.
func (p RowPatch) MarshalJSON() ([]byte, error) {
	return Record(p).MarshalJSON()
}

// UnmarshalJSON decodes a flattened patch.
func (p *RowPatch) UnmarshalJSON(data []byte) error {
	id, fields, err := decodeFlat(data)
	if err != nil {
		return err
	}
	p.ID = id
	p.Fields = fields
	return nil
}

// Rows groups edits per record, preserving first-seen record order.
func Rows(edits []DraftEdit) []RowPatch {
	index := make(map[string]int)
	var rows []RowPatch
	for _, e := range edits {
		i, ok := index[e.RecordID]
		if !ok {
			i = len(rows)
			index[e.RecordID] = i
			rows = append(rows, RowPatch{ID: e.RecordID, Fields: make(map[Field]Value)})
		}
		rows[i].Fields[e.Field] = e.Value
	}
	return rows
}

// Edits flattens row patches back into sorted edits.
func Edits(rows []RowPatch) []DraftEdit {
	var edits []DraftEdit
	for _, row := range rows {
		for field, v := range row.Fields {
			edits = append(edits, DraftEdit{RecordID: row.ID, Field: field, Value: v})
		}
	}
	SortEdits(edits)
	return edits
}
