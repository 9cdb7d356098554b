package ledger

import (
	"context"
	"sync"

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/storage"
)

// entry is a once-loaded ledger slot. The once latch makes rehydration
// single-flight per bill without holding the registry lock across store I/O.
type entry struct {
	once sync.Once
	l    *Ledger
	err  error
}

// Registry owns the live Ledger per bill. Ledgers are created when a bill is
// created and rehydrated lazily from the store after a restart, so the
// process never depends on every active bill surviving in memory.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	store   storage.Store
	pub     Publisher
}

// NewRegistry builds a registry backed by store. Ledgers it creates publish
// their deltas to pub; pub may be nil, which drops them.
func NewRegistry(store storage.Store, pub Publisher) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		store:   store,
		pub:     pub,
	}
}

// Create registers a ledger for a freshly created bill.
func (r *Registry) Create(billID string, items []models.Item) *Ledger {
	e := &entry{}
	e.once.Do(func() { e.l = New(billID, items, r.pub) })

	r.mu.Lock()
	r.entries[billID] = e
	r.mu.Unlock()
	return e.l
}

// Get returns the ledger for billID, loading it from the store if this
// process has not seen the bill yet. Concurrent callers for the same bill
// share one load; callers for other bills are not blocked behind it.
// Returns models.ErrNotFound when the bill does not exist anywhere.
func (r *Registry) Get(ctx context.Context, billID string) (*Ledger, error) {
	r.mu.Lock()
	e, ok := r.entries[billID]
	if !ok {
		e = &entry{}
		r.entries[billID] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		_, items, err := r.store.GetBill(ctx, billID)
		if err != nil {
			e.err = err
			return
		}
		e.l = New(billID, items, r.pub)
	})

	if e.err != nil {
		// Forget the failed slot so a later call can retry the load.
		r.mu.Lock()
		if r.entries[billID] == e {
			delete(r.entries, billID)
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e.l, nil
}
