package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		input string
		want  Value
	}{
		{"text trims", KindText, "  Sea Ray  ", Text("Sea Ray")},
		{"number", KindNumber, "32.5", Number(32.5)},
		{"currency plain", KindCurrency, "500", Currency(50000)},
		{"currency symbol and grouping", KindCurrency, "$1,234.56", Currency(123456)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.kind, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseValue(KindNumber, "long")
	assert.Error(t, err)
}

func TestParseValueRejectsOutOfRange(t *testing.T) {
	for _, tt := range []struct {
		kind  Kind
		input string
	}{
		{KindCurrency, "1e20"},
		{KindCurrency, "-1e20"},
		{KindCurrency, "NaN"},
		{KindCurrency, "Inf"},
		{KindNumber, "NaN"},
		{KindNumber, "-Inf"},
	} {
		_, err := ParseValue(tt.kind, tt.input)
		assert.Error(t, err, "%v %q", tt.kind, tt.input)
	}

	got, err := ParseValue(KindCurrency, "90071992547409.91")
	require.NoError(t, err)
	assert.Equal(t, KindCurrency, got.Kind)
}

func TestRecordJSONRejectsOutOfRangePrice(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{"id":"a1","price":1e20}`), &rec)
	assert.Error(t, err)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "$500.00", Currency(50000).String())
	assert.Equal(t, "-$0.05", Currency(-5).String())
	assert.Equal(t, "24", Number(24).String())
	assert.Equal(t, "Sloop", Text("Sloop").String())
}

func TestRecordJSONUsesColumnKinds(t *testing.T) {
	data := []byte(`{"id":"a1","name":"Marlin","length":28,"price":45000.5,"description":"fast","owner":"ignored"}`)

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "a1", rec.ID)
	assert.Equal(t, Text("Marlin"), rec.Fields[FieldName])
	assert.Equal(t, Number(28), rec.Fields[FieldLength])
	assert.Equal(t, Currency(4500050), rec.Fields[FieldPrice])
	assert.Len(t, rec.Fields, 4)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","name":"Marlin","length":28,"price":45000.50,"description":"fast"}`, string(out))
}

func TestRecordJSONRejectsWrongType(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{"id":"a1","length":"long"}`), &rec)
	assert.Error(t, err)
}

func TestRowsGroupsPerRecord(t *testing.T) {
	edits := []DraftEdit{
		{RecordID: "2", Field: FieldPrice, Value: Currency(100)},
		{RecordID: "1", Field: FieldName, Value: Text("A")},
		{RecordID: "2", Field: FieldName, Value: Text("B")},
	}
	rows := Rows(edits)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].ID)
	assert.Len(t, rows[0].Fields, 2)
	assert.Equal(t, "1", rows[1].ID)

	back := Edits(rows)
	require.Len(t, back, 3)
	assert.Equal(t, DraftKey{RecordID: "1", Field: FieldName}, back[0].Key())
	assert.Equal(t, DraftKey{RecordID: "2", Field: FieldName}, back[1].Key())
	assert.Equal(t, DraftKey{RecordID: "2", Field: FieldPrice}, back[2].Key())
}

func TestResultSetClone(t *testing.T) {
	rs := NewResultSet("sail", []Record{{ID: "1", Fields: map[Field]Value{FieldName: Text("A")}}})
	dup := rs.Clone()
	dup.Records[0].Fields[FieldName] = Text("changed")
	assert.Equal(t, Text("A"), rs.Records[0].Fields[FieldName])
	assert.True(t, rs.Loaded())

	failed := FailedResultSet("sail", errors.New("down"))
	assert.False(t, failed.Loaded())
	assert.Nil(t, failed.Records)
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "Update failed", MessageOf(&ServerError{Status: 400, Message: "Update failed"}))
	wrapped := fmt.Errorf("persist: %w", &ServerError{Message: "Update failed"})
	assert.Equal(t, "Update failed", MessageOf(wrapped))
	assert.Equal(t, "boom", MessageOf(errors.New("boom")))
}
