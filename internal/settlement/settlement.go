// Package settlement derives per-party monetary totals from a bill and a
// snapshot of its items. All functions are pure: recomputing on an unchanged
// snapshot yields identical numbers.
package settlement

import (
	"sort"

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
)

// Share is the monetary breakdown for one subset of items.
type Share struct {
	Subtotal money.Cents `json:"subtotal_cents"`
	Tax      money.Cents `json:"tax_cents"`
	Tip      money.Cents `json:"tip_cents"`
	Total    money.Cents `json:"total_cents"`
}

// GuestShare pairs a guest display name with their share.
type GuestShare struct {
	Name  string `json:"name"`
	Share Share  `json:"share"`
}

// Summary is the settlement view of a whole bill.
type Summary struct {
	// Bill covers all items regardless of claim state.
	Bill Share `json:"bill"`
	// Host covers items claimed by the host sentinel.
	Host Share `json:"host"`
	// Guests covers each non-host claimant, sorted by name.
	Guests []GuestShare `json:"guests"`
	// Unclaimed covers items nobody has claimed yet.
	Unclaimed Share `json:"unclaimed"`

	// Recoverable is what the host is owed: total(all) - total(host).
	Recoverable money.Cents `json:"recoverable_cents"`
	// Recovered is the sum of guest totals committed so far. Each guest
	// total rounds independently, so Recovered may differ from
	// Recoverable by a few cents even once everything is claimed.
	Recovered money.Cents `json:"recovered_cents"`
	// Settled means there was something to recover and no claimable
	// value remains unclaimed. Stated over subtotals rather than an
	// epsilon on totals so the check is exact in cents.
	Settled bool `json:"settled"`
}

// share computes the breakdown for a party subtotal. Absolute overrides
// apply to the whole bill and are pro-rated by subtotal share; rates apply
// directly. A zero whole-bill subtotal with an override present contributes
// zero (pro-ration undefined).
func share(bill *models.Bill, subtotal, allSubtotal money.Cents) Share {
	s := Share{Subtotal: subtotal}

	if bill.TaxAbsolute != nil {
		s.Tax = money.Prorate(*bill.TaxAbsolute, subtotal, allSubtotal)
	} else {
		s.Tax = money.RateAmount(subtotal, bill.TaxRate)
	}
	if bill.TipAbsolute != nil {
		s.Tip = money.Prorate(*bill.TipAbsolute, subtotal, allSubtotal)
	} else {
		s.Tip = money.RateAmount(subtotal, bill.TipRate)
	}

	s.Total = s.Subtotal + s.Tax + s.Tip
	return s
}

// Party computes the share for the subset of items claimed by claimant.
// Use models.HostClaimant for the host's personal share.
func Party(bill *models.Bill, items []models.Item, claimant string) Share {
	var all, mine money.Cents
	for _, item := range items {
		all += item.Price
		if item.ClaimedBy == claimant {
			mine += item.Price
		}
	}
	return share(bill, mine, all)
}

// Summarize computes the full settlement view for a bill snapshot.
func Summarize(bill *models.Bill, items []models.Item) Summary {
	var all money.Cents
	subtotals := make(map[string]money.Cents) // claimant -> subtotal, "" for unclaimed
	for _, item := range items {
		all += item.Price
		subtotals[item.ClaimedBy] += item.Price
	}

	sum := Summary{
		Bill:      share(bill, all, all),
		Host:      share(bill, subtotals[models.HostClaimant], all),
		Unclaimed: share(bill, subtotals[""], all),
	}

	names := make([]string, 0, len(subtotals))
	for name := range subtotals {
		if name == "" || name == models.HostClaimant {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		gs := GuestShare{Name: name, Share: share(bill, subtotals[name], all)}
		sum.Guests = append(sum.Guests, gs)
		sum.Recovered += gs.Share.Total
	}

	sum.Recoverable = sum.Bill.Total - sum.Host.Total
	sum.Settled = sum.Recoverable > 0 && sum.Unclaimed.Subtotal == 0
	return sum
}
