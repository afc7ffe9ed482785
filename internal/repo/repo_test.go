package repo

import (
	"testing"
	"time"

	"storewatch/internal/model"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestUpsertNormalizesAndReplaces(t *testing.T) {
	r := New(nil)
	r.Upsert(model.Store{Number: "7", IP: "10.0.0.9", Ticket: "1234"})

	store, ok := r.Get("0007")
	if !ok {
		t.Fatalf("expected store under normalized number")
	}
	if store.Ticket != "HD-1234" {
		t.Fatalf("expected normalized ticket, got %q", store.Ticket)
	}

	r.Upsert(model.Store{Number: "0007", IP: "10.0.0.10"})
	store, _ = r.Get("7")
	if store.IP != "10.0.0.10" || store.Ticket != "" {
		t.Fatalf("upsert must replace wholesale, got %+v", store)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	r := New(nil)
	store := model.Store{Number: "0001", IP: "192.0.2.1"}
	r.Upsert(store)
	r.SetStatus("0001", true)
	r.Upsert(store)

	snap := r.Snapshot()
	if len(snap.Stores) != 1 {
		t.Fatalf("expected one store, got %d", len(snap.Stores))
	}
	record, known := snap.Status["0001"]
	if !known || !record.Online {
		t.Fatalf("re-upsert must not reset status, got %+v known=%v", record, known)
	}
}

func TestFirstObservationNeverStamps(t *testing.T) {
	for _, online := range []bool{true, false} {
		r := New([]model.Store{{Number: "0001", IP: "192.0.2.1"}})
		prev, ok := r.SetStatus("0001", online)
		if !ok {
			t.Fatalf("expected status applied")
		}
		if prev.Known {
			t.Fatalf("first observation must report unknown prior")
		}
		record := r.Snapshot().Status["0001"]
		if !record.LastChange.IsZero() {
			t.Fatalf("online=%v: first observation must not stamp last change", online)
		}
	}
}

func TestTransitionStampsAndRepeatDoesNot(t *testing.T) {
	r := New([]model.Store{{Number: "0001", IP: "192.0.2.1"}})
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = fixedClock(t0)

	r.SetStatus("0001", true)
	r.SetStatus("0001", false)
	record := r.Snapshot().Status["0001"]
	if record.Online || !record.LastChange.Equal(t0) {
		t.Fatalf("flip must stamp transition time, got %+v", record)
	}

	r.now = fixedClock(t0.Add(time.Hour))
	r.SetStatus("0001", false)
	record = r.Snapshot().Status["0001"]
	if !record.LastChange.Equal(t0) {
		t.Fatalf("repeat status must leave last change untouched, got %v", record.LastChange)
	}

	r.SetStatus("0001", true)
	record = r.Snapshot().Status["0001"]
	if !record.LastChange.Equal(t0.Add(time.Hour)) {
		t.Fatalf("second flip must restamp, got %v", record.LastChange)
	}
}

func TestSetStatusMissingStore(t *testing.T) {
	r := New(nil)
	if _, ok := r.SetStatus("0042", true); ok {
		t.Fatalf("status for unknown store must be rejected")
	}
	if len(r.Snapshot().Status) != 0 {
		t.Fatalf("rejected status must leave no trace")
	}
}

func TestRemoveDeletesAllDerivedState(t *testing.T) {
	r := New([]model.Store{{Number: "0001", IP: "192.0.2.1"}})
	r.SetStatus("0001", true)
	r.SetStatus("0001", false)

	r.Remove("1")
	snap := r.Snapshot()
	if len(snap.Stores) != 0 {
		t.Fatalf("store not removed")
	}
	if _, known := snap.Status["0001"]; known {
		t.Fatalf("status must be removed with the store")
	}

	// Removing again is a no-op.
	r.Remove("0001")
}

func TestClear(t *testing.T) {
	r := New([]model.Store{
		{Number: "0001", IP: "192.0.2.1"},
		{Number: "0002", IP: "192.0.2.2"},
	})
	r.SetStatus("0001", true)

	r.Clear()
	snap := r.Snapshot()
	if len(snap.Stores) != 0 || len(snap.Status) != 0 {
		t.Fatalf("clear must drop everything, got %+v", snap)
	}
}

func TestSnapshotIsIndependentAndOrdered(t *testing.T) {
	r := New([]model.Store{
		{Number: "0010", IP: "192.0.2.10"},
		{Number: "0002", IP: "192.0.2.2"},
		{Number: "0001", IP: "192.0.2.1"},
	})
	r.SetStatus("0001", true)

	snap := r.Snapshot()
	want := []string{"0001", "0002", "0010"}
	for i, number := range want {
		if snap.Stores[i].Number != number {
			t.Fatalf("snapshot order %d: got %s, want %s", i, snap.Stores[i].Number, number)
		}
	}

	// Mutating the snapshot must not leak back into the repository.
	snap.Stores[0].IP = "changed"
	snap.Status["0001"] = StatusRecord{Online: false}
	store, _ := r.Get("0001")
	if store.IP != "192.0.2.1" {
		t.Fatalf("snapshot mutation leaked into repository")
	}
	if record := r.Snapshot().Status["0001"]; !record.Online {
		t.Fatalf("status map mutation leaked into repository")
	}
}
