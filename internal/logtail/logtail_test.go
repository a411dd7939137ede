package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v, want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	line := `{"level":"warn","ts":"2026-03-01T09:15:30.250Z","logger":"save","msg":"save failed","edits":2,"error":"boom"}`
	e := Parse(line)
	if e.Raw != "" {
		t.Fatalf("Raw = %q, want empty for JSON line", e.Raw)
	}
	if e.Level != "warn" || e.Logger != "save" || e.Message != "save failed" {
		t.Fatalf("entry = %#v, want warn/save/save failed", e)
	}
	if e.Time.IsZero() || e.Time.Minute() != 15 {
		t.Fatalf("Time = %v, want parsed timestamp", e.Time)
	}
	want := map[string]string{"edits": "2", "error": "boom"}
	if !reflect.DeepEqual(e.Fields, want) {
		t.Fatalf("Fields = %#v, want %#v", e.Fields, want)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name:  "raw passthrough",
			entry: Parse("plain text line"),
			want:  "plain text line",
		},
		{
			name:  "fields sorted",
			entry: Entry{Level: "info", Logger: "grid", Message: "search", Fields: map[string]string{"tag": "x", "filter_key": "sail"}},
			want:  "INFO  grid  search  filter_key=sail tag=x",
		},
		{
			name:  "no logger no fields",
			entry: Entry{Level: "error", Message: "boom"},
			want:  "ERROR  boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.entry); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTail_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marina.log")
	body := `{"level":"info","msg":"one"}` + "\n\n" + `{"level":"info","msg":"two"}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, err := Tail(path, 10)
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(entries) != 2 || entries[1].Message != "two" {
		t.Fatalf("Tail = %#v, want two entries", entries)
	}
}
