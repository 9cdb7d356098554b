// Package models defines the core domain types for cheq.
//
// A Bill is one shared-expense session: a tax/tip policy, optional payment
// handles, and a set of claimable Items. Guests are identified by display
// name only; there are no user accounts. The host is a sentinel claimant
// (HostClaimant) plus a signed token minted at bill creation.
//
// Design principles:
//
//  1. All money is int64 cents (money.Cents); floats exist only for rates.
//  2. ClaimedBy is the single authoritative claim field, owned by the
//     ledger. Client-side "selected" staging never enters these types.
//  3. Relationships use ID strings, not pointers, to avoid cycles.
package models
