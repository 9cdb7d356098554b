package models

import "github.com/cheq-app/cheq-backend/internal/money"

// HostClaimant is the sentinel ClaimedBy value for items the host kept for
// themselves. Guest display names may not collide with it; validation
// rejects it as a claimant name.
const HostClaimant = "HOST"

// PaymentHandles are the host-supplied destinations for up to three payment
// rails. All optional; settable at bill creation or later.
type PaymentHandles struct {
	Venmo   string `json:"venmo,omitempty"`
	CashApp string `json:"cashapp,omitempty"`
	Zelle   string `json:"zelle,omitempty"`
}

// Bill is one shared-expense session. Immutable after creation except for
// payment handles and the tax/tip absolute overrides a receipt scan may
// supply.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string `json:"id"`

	// TaxRate and TipRate are non-negative fractions (0.08 = 8%) applied
	// to a subtotal when no absolute override is present.
	TaxRate float64 `json:"tax_rate"`
	TipRate float64 `json:"tip_rate"`

	// TaxAbsolute and TipAbsolute override the rate computation for the
	// whole bill when set (e.g. exact amounts read off the receipt).
	// Party shares pro-rate them by subtotal.
	TaxAbsolute *money.Cents `json:"tax_absolute_cents,omitempty"`
	TipAbsolute *money.Cents `json:"tip_absolute_cents,omitempty"`

	// Payment holds the host's payment rail handles.
	Payment PaymentHandles `json:"payment"`

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64 `json:"created_at"`
}

// Item is one claimable line entry on a bill.
type Item struct {
	// ID is unique within the bill (UUID format).
	ID string `json:"id"`

	// BillID is the owning bill.
	BillID string `json:"bill_id"`

	// Name is the line description, e.g. "Pad Thai" or "Pad Thai (1/3)"
	// after a split.
	Name string `json:"name"`

	// Price is the pre-tax price in cents. Never negative.
	Price money.Cents `json:"price_cents"`

	// OrderIndex defines the stable display order. It is explicit, not
	// derived from insertion order, and is reassigned on split/remove.
	OrderIndex int `json:"order_index"`

	// ClaimedBy is empty while unclaimed, HostClaimant for the host, or a
	// guest's display name. Set at most once per successful claim; only
	// discarded when a host edit removes or splits the item.
	ClaimedBy string `json:"claimed_by,omitempty"`
}

// Claimed reports whether the item has a claimant.
func (i Item) Claimed() bool {
	return i.ClaimedBy != ""
}

// ClaimResult is the outcome of one claim attempt. The attempt is not atomic
// across the requested set: ids lost to an earlier claimant land in Rejected
// and the caller reconciles against a fresh snapshot.
type ClaimResult struct {
	Claimed  []string `json:"claimed"`
	Rejected []string `json:"rejected"`
}

// Delta describes one item's claim-state change for realtime fan-out.
// An empty ClaimedBy means the claim was discarded (host removed or split a
// claimed item). Deltas are a freshness hint, not a source of truth;
// observers reconcile by re-fetching the bill snapshot.
type Delta struct {
	ItemID    string `json:"item_id"`
	ClaimedBy string `json:"claimed_by"`
}
