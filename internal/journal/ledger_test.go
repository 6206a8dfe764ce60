package journal

import "testing"

func TestLedgerRecordSnapshot(t *testing.T) {
	ledger := NewLedger(2)
	ledger.Record(Entry{ID: "a", Action: "execute"})

	snapshot := ledger.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snapshot))
	}
	if snapshot[0].ID != "a" {
		t.Fatalf("unexpected entry id")
	}

	ledger.Reset()
	if len(ledger.Snapshot()) != 0 {
		t.Fatalf("expected ledger reset")
	}
}

func TestLedgerKeepsNewest(t *testing.T) {
	ledger := NewLedger(2)
	for _, id := range []string{"a", "b", "c"} {
		ledger.Record(Entry{ID: id})
	}
	snapshot := ledger.Snapshot()
	if len(snapshot) != 2 || snapshot[0].ID != "b" || snapshot[1].ID != "c" {
		t.Fatalf("unexpected entries %+v", snapshot)
	}
}

func TestStampAndMulti(t *testing.T) {
	e := Stamp(Entry{Action: "execute"})
	if e.ID == "" || e.Time.IsZero() {
		t.Fatalf("expected id and time to be stamped")
	}
	if again := Stamp(e); again.ID != e.ID {
		t.Fatalf("stamp must keep an existing id")
	}

	a, b := NewLedger(0), NewLedger(0)
	Multi{a, nil, b}.Record(e)
	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatalf("expected entry fanned out to both ledgers")
	}
}
