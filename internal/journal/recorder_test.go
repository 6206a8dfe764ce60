package journal

import (
	"path/filepath"
	"testing"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	entry := Stamp(Entry{Action: "execute", Target: "CTARGET", Value: "15000", Outcome: OutcomeSucceeded})
	recorder.Record(entry)
	recorder.Record(Stamp(Entry{Action: "execute", Outcome: OutcomeFailed, Message: "paused"}))
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	recorder.Record(entry)

	entries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != entry.ID || entries[0].Target != "CTARGET" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Message != "paused" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}

func TestReadFileMissing(t *testing.T) {
	entries, err := ReadFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil || entries != nil {
		t.Fatalf("expected no entries and no error, got %v %v", entries, err)
	}
}
