// Package repo owns the live store and status collections. Every operation
// runs under one lock and readers only ever receive copies, so the monitor
// goroutine and the UI never share mutable structures.
package repo

import (
	"sort"
	"sync"
	"time"

	"storewatch/internal/model"
)

// StatusRecord is the derived per-store state. LastChange is zero until the
// store transitions between two known statuses; a first observation never
// stamps it.
type StatusRecord struct {
	Online     bool
	LastChange time.Time
}

// Prev describes the status a store held before a SetStatus call.
type Prev struct {
	Known  bool
	Online bool
}

// Snapshot is an independently owned, point-in-time copy of repository
// state. Stores is sorted by number so per-cycle iteration is deterministic.
type Snapshot struct {
	Stores []model.Store
	Status map[string]StatusRecord
}

// Repository is the single source of truth for store definitions and
// status. Safe for concurrent use.
type Repository struct {
	mu     sync.Mutex
	stores map[string]model.Store
	status map[string]StatusRecord
	now    func() time.Time
}

// New builds a repository seeded with the given stores. Seed entries are
// normalized; duplicates collapse onto the last occurrence.
func New(seed []model.Store) *Repository {
	r := &Repository{
		stores: make(map[string]model.Store),
		status: make(map[string]StatusRecord),
		now:    time.Now,
	}
	for _, s := range seed {
		s = s.Normalize()
		if s.Number == "" {
			continue
		}
		r.stores[s.Number] = s
	}
	return r
}

// Upsert inserts or wholly replaces a store keyed by its normalized number.
// Existing status and last-change records are untouched.
func (r *Repository) Upsert(store model.Store) {
	store = store.Normalize()
	if store.Number == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[store.Number] = store
}

// Get returns a copy of the store with the given number.
func (r *Repository) Get(number string) (model.Store, bool) {
	number = model.NormalizeNumber(number)
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[number]
	return store, ok
}

// Remove deletes a store together with its status and last-change record.
// No-op when absent.
func (r *Repository) Remove(number string) {
	number = model.NormalizeNumber(number)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, number)
	delete(r.status, number)
}

// Clear removes every store and all derived state.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = make(map[string]model.Store)
	r.status = make(map[string]StatusRecord)
}

// SetStatus records a new online value for a store and stamps LastChange
// when it differs from a previously known value. Returns the prior status.
// Stores deleted since the caller's snapshot are left untouched (ok=false),
// so a completed probe cannot resurrect state for a removed store.
func (r *Repository) SetStatus(number string, online bool) (prev Prev, ok bool) {
	number = model.NormalizeNumber(number)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[number]; !exists {
		return Prev{}, false
	}

	record, known := r.status[number]
	prev = Prev{Known: known, Online: record.Online}

	record.Online = online
	if known && prev.Online != online {
		record.LastChange = r.now()
	}
	r.status[number] = record
	return prev, true
}

// Snapshot returns a consistent copy of stores and statuses taken under one
// lock acquisition.
func (r *Repository) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Stores: make([]model.Store, 0, len(r.stores)),
		Status: make(map[string]StatusRecord, len(r.status)),
	}
	for _, store := range r.stores {
		snap.Stores = append(snap.Stores, store)
	}
	sort.Slice(snap.Stores, func(i, j int) bool {
		return snap.Stores[i].Number < snap.Stores[j].Number
	})
	for number, record := range r.status {
		snap.Status[number] = record
	}
	return snap
}

// Stores returns a sorted copy of the store list, for persistence.
func (r *Repository) Stores() []model.Store {
	return r.Snapshot().Stores
}
