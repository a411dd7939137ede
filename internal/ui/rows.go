package ui

import (
	"github.com/charmbracelet/bubbles/table"

	"github.com/five82/marina/internal/records"
)

const pendingMarker = "*"

var minColumnWidth = map[records.Field]int{
	records.FieldName:        16,
	records.FieldLength:      8,
	records.FieldPrice:       14,
	records.FieldDescription: 20,
}

// draftLookup returns the pending value of a cell, if any.
type draftLookup func(recordID string, field records.Field) (records.Value, bool)

// buildColumns lays out the boat columns across width, marking the focused
// one. Description takes whatever the fixed columns leave.
func buildColumns(width, focused int) []table.Column {
	cols := make([]table.Column, len(records.BoatColumns))
	used := 0
	for i, c := range records.BoatColumns {
		w := minColumnWidth[c.Field]
		if w == 0 {
			w = 10
		}
		cols[i] = table.Column{Title: columnTitle(c, i == focused), Width: w}
		used += w + 2 // cell padding
	}
	if last := len(cols) - 1; last >= 0 && width > used {
		cols[last].Width += width - used
	}
	return cols
}

func columnTitle(c records.Column, focused bool) string {
	if focused {
		return "▸" + c.Label
	}
	return " " + c.Label
}

// buildRows renders a result set. Cells with an unsaved edit show the
// pending value behind a marker. The returned ids are parallel to the rows.
func buildRows(rs records.ResultSet, draft draftLookup) ([]table.Row, []string) {
	rows := make([]table.Row, 0, len(rs.Records))
	ids := make([]string, 0, len(rs.Records))
	for _, rec := range rs.Records {
		row := make(table.Row, len(records.BoatColumns))
		for i, c := range records.BoatColumns {
			row[i] = cellText(rec, c.Field, draft)
		}
		rows = append(rows, row)
		ids = append(ids, rec.ID)
	}
	return rows, ids
}

func cellText(rec records.Record, field records.Field, draft draftLookup) string {
	if draft != nil {
		if v, ok := draft(rec.ID, field); ok {
			return pendingMarker + v.String()
		}
	}
	v, ok := rec.Get(field)
	if !ok {
		return ""
	}
	return v.String()
}

// recordByID finds a record in the current result set.
func recordByID(rs records.ResultSet, id string) (records.Record, bool) {
	for _, rec := range rs.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return records.Record{}, false
}
