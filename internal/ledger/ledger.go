// Package ledger owns the authoritative claim state for bills.
//
// Each bill gets its own Ledger instance (no process-wide singleton), and
// every mutation of an item's ClaimedBy field goes through it. The claim
// operation is a per-item compare-and-set serialized by the ledger mutex:
// first successful claim wins, and a non-empty claimant is never
// overwritten. Host edits (add/remove/split) share the same mutex but are
// deliberately not claim-protected: removing or splitting a claimed item
// discards the claim and reports it as a delta so observers converge.
//
// Deltas are handed to the Publisher at the commit point, while the bill
// mutex is still held, so delivery order for an item always matches commit
// order. Publish must therefore never block; mirroring to storage stays
// the caller's job and happens after the commit.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
)

// Publisher receives the deltas a mutation committed. It is called with the
// bill mutex held and must not block.
type Publisher interface {
	Publish(billID string, deltas ...models.Delta)
}

// Ledger is the authoritative, ordered list of claimable items for one bill.
type Ledger struct {
	mu     sync.Mutex
	billID string
	items  []models.Item // slice order == display order
	pub    Publisher
}

// New builds a ledger for billID from an existing item set. Items are
// ordered by OrderIndex and reindexed so slice position and OrderIndex
// agree from then on. pub may be nil, which drops deltas.
func New(billID string, items []models.Item, pub Publisher) *Ledger {
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})
	for i := range sorted {
		sorted[i].OrderIndex = i
	}
	return &Ledger{billID: billID, items: sorted, pub: pub}
}

// BillID returns the owning bill's id.
func (l *Ledger) BillID() string {
	return l.billID
}

// Snapshot returns a copy of the items in display order. It may be stale by
// the time it is rendered; deltas or an explicit refresh resolve that.
func (l *Ledger) Snapshot() []models.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Item, len(l.items))
	copy(out, l.items)
	return out
}

// AddItem appends a new unclaimed item at the end of the display order.
func (l *Ledger) AddItem(name string, price money.Cents) (models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Item{}, fmt.Errorf("%w: item name required", models.ErrInvalidInput)
	}
	if price < 0 {
		return models.Item{}, fmt.Errorf("%w: price must not be negative", models.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	item := models.Item{
		ID:         uuid.New().String(),
		BillID:     l.billID,
		Name:       name,
		Price:      price,
		OrderIndex: len(l.items),
	}
	l.items = append(l.items, item)
	return item, nil
}

// RemoveItem deletes the item. If it was claimed, the claim is discarded and
// a delta with an empty claimant is published so observers converge.
func (l *Ledger) RemoveItem(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: item %s", models.ErrNotFound, id)
	}

	var deltas []models.Delta
	if l.items[idx].Claimed() {
		deltas = append(deltas, models.Delta{ItemID: id})
	}

	l.items = append(l.items[:idx], l.items[idx+1:]...)
	l.reindex()
	l.publish(deltas)
	return nil
}

// SplitItem replaces the target item with ways new unclaimed items at the
// same position, each named with its fractional share. The part prices sum
// exactly to the original: price/ways floored to cents, with the remainder
// cents going one each to the first parts. The original item's identity is
// discarded, and with it any claim on it.
func (l *Ledger) SplitItem(id string, ways int) ([]models.Item, error) {
	if ways < 2 {
		return nil, fmt.Errorf("%w: split ways must be at least 2", models.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: item %s", models.ErrNotFound, id)
	}
	orig := l.items[idx]

	var deltas []models.Delta
	if orig.Claimed() {
		deltas = append(deltas, models.Delta{ItemID: id})
	}

	base := orig.Price / money.Cents(ways)
	rem := int(orig.Price % money.Cents(ways))
	parts := make([]models.Item, ways)
	for i := 0; i < ways; i++ {
		price := base
		if i < rem {
			price++
		}
		parts[i] = models.Item{
			ID:     uuid.New().String(),
			BillID: l.billID,
			Name:   fmt.Sprintf("%s (1/%d)", orig.Name, ways),
			Price:  price,
		}
	}

	replaced := make([]models.Item, 0, len(l.items)+ways-1)
	replaced = append(replaced, l.items[:idx]...)
	replaced = append(replaced, parts...)
	replaced = append(replaced, l.items[idx+1:]...)
	l.items = replaced
	l.reindex()

	out := make([]models.Item, ways)
	copy(out, l.items[idx:idx+ways])
	l.publish(deltas)
	return out, nil
}

// TryClaim attempts to claim each requested item for claimant. Each grant is
// a compare-and-set: it succeeds only if the item is unclaimed at the moment
// of mutation. The attempt is not atomic across the set; ids already
// claimed by anyone (including claimant re-submitting) or unknown land in
// Rejected, and partial success is expected under concurrency.
func (l *Ledger) TryClaim(itemIDs []string, claimant string) (models.ClaimResult, error) {
	claimant = strings.TrimSpace(claimant)
	if claimant == "" {
		return models.ClaimResult{}, fmt.Errorf("%w: claimant name required", models.ErrInvalidInput)
	}
	if claimant == models.HostClaimant {
		return models.ClaimResult{}, fmt.Errorf("%w: claimant name %q is reserved", models.ErrInvalidInput, models.HostClaimant)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	result := models.ClaimResult{Claimed: []string{}, Rejected: []string{}}
	var deltas []models.Delta
	for _, id := range itemIDs {
		idx := l.indexOf(id)
		if idx < 0 || l.items[idx].Claimed() {
			result.Rejected = append(result.Rejected, id)
			continue
		}
		l.items[idx].ClaimedBy = claimant
		result.Claimed = append(result.Claimed, id)
		deltas = append(deltas, models.Delta{ItemID: id, ClaimedBy: claimant})
	}
	l.publish(deltas)
	return result, nil
}

// publish hands committed deltas to the Publisher. Caller holds the mutex;
// the Publisher contract is non-blocking, so this does not stall other
// mutations.
func (l *Ledger) publish(deltas []models.Delta) {
	if l.pub == nil || len(deltas) == 0 {
		return
	}
	l.pub.Publish(l.billID, deltas...)
}

// indexOf finds an item by id. Caller holds the mutex.
func (l *Ledger) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// reindex reassigns OrderIndex after a structural edit. Caller holds the
// mutex.
func (l *Ledger) reindex() {
	for i := range l.items {
		l.items[i].OrderIndex = i
	}
}
