// Package notify fans claim-state deltas out to bill observers.
//
// Delivery is best-effort and asynchronous: publishing never blocks the
// mutation path. Each subscriber owns a buffered channel; a subscriber that
// stops draining is evicted (its channel closed) and must reconcile by
// re-fetching a snapshot, since the delta stream is a freshness hint, not a
// source of truth. Deltas for the same item are delivered in commit order:
// the ledger calls Publish at its commit point, and the broker fans out
// under its own mutex, so calls cannot reorder between commit and delivery.
package notify

import (
	"sync"

	"github.com/cheq-app/cheq-backend/internal/models"
)

// subscriberBuffer bounds how far behind a subscriber may fall before it is
// evicted. Bills are small; a full buffer means the consumer is gone.
const subscriberBuffer = 64

// Subscription is one observer's handle on a bill's delta stream. C is
// closed when the subscription is cancelled or the subscriber is evicted.
type Subscription struct {
	C <-chan models.Delta

	billID string
	id     uint64
	ch     chan models.Delta
}

// Broker routes deltas to all active subscribers of each bill.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*Subscription // billID -> sub id -> sub
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]*Subscription)}
}

// Subscribe registers an observer for billID's deltas.
func (b *Broker) Subscribe(billID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ch := make(chan models.Delta, subscriberBuffer)
	sub := &Subscription{C: ch, billID: billID, id: b.nextID, ch: ch}
	if b.subs[billID] == nil {
		b.subs[billID] = make(map[uint64]*Subscription)
	}
	b.subs[billID][sub.id] = sub
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Safe to call
// after an eviction.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(sub)
}

// Publish delivers deltas to every subscriber of billID without blocking.
// Subscribers whose buffers are full are evicted.
func (b *Broker) Publish(billID string, deltas ...models.Delta) {
	if len(deltas) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[billID] {
		for _, d := range deltas {
			select {
			case sub.ch <- d:
				continue
			default:
			}
			// Buffer full: the consumer is not draining. Evict it so
			// the ledger path stays non-blocking.
			b.remove(sub)
			break
		}
	}
}

// SubscriberCount reports active subscribers for billID.
func (b *Broker) SubscriberCount(billID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[billID])
}

// remove deletes and closes a subscription. Caller holds the mutex.
func (b *Broker) remove(sub *Subscription) {
	bySub, ok := b.subs[sub.billID]
	if !ok {
		return
	}
	if _, ok := bySub[sub.id]; !ok {
		return
	}
	delete(bySub, sub.id)
	if len(bySub) == 0 {
		delete(b.subs, sub.billID)
	}
	close(sub.ch)
}
