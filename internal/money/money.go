// Package money implements fixed-point currency arithmetic in minor units.
//
// All ledger and settlement math runs on integer cents so that totals,
// pro-rated shares, and the settled check are exact. Floating point only
// appears at the edges: tax/tip rates are dimensionless fractions, and every
// rate multiplication is rounded straight back to cents.
package money

import (
	"fmt"
	"math"
)

// Cents is a monetary amount in minor units (1/100 of the currency unit).
type Cents int64

// Round converts a floating-point cent amount to Cents, rounding half away
// from zero.
func Round(f float64) Cents {
	return Cents(math.Round(f))
}

// FromFloat converts a major-unit amount (e.g. 12.34 dollars) to Cents.
// Useful at ingestion boundaries where external services report decimals.
func FromFloat(major float64) Cents {
	return Round(major * 100)
}

// RateAmount applies a fractional rate (e.g. 0.08 for 8% tax) to a subtotal.
func RateAmount(subtotal Cents, rate float64) Cents {
	return Round(float64(subtotal) * rate)
}

// Prorate distributes a whole-bill absolute amount to a party in proportion
// to its subtotal share: whole * part / all. When all == 0 the ratio is
// undefined and the contribution is zero.
func Prorate(whole, part, all Cents) Cents {
	if all == 0 {
		return 0
	}
	return Round(float64(whole) * float64(part) / float64(all))
}

// String formats the amount as a decimal string, e.g. 1234 -> "12.34".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Float returns the amount in major units. Display/formatting only; never
// feed the result back into ledger arithmetic.
func (c Cents) Float() float64 {
	return float64(c) / 100
}
