// Package models holds the pool's persistent data shapes. Keep them
// transport-agnostic so stores and handlers can share them.
package models

import (
	"time"

	"givepool/pkg/domain"
)

// Beneficiary is a registered recipient of donation splits. The balance is
// the accrued, withdrawable amount in base units; it only ever grows via
// splits and resets to zero on withdrawal. Beneficiaries are never deleted;
// deactivation is a status flag.
type Beneficiary struct {
	ID                domain.PrincipalID
	AllocationPercent int
	Active            bool
	Balance           int64
	// Position preserves registration order; splits iterate in this order
	// and the remainder goes to the last active entry.
	Position     int
	RegisteredAt time.Time
}

// DonationRecord is one entry of the append-only donation history, identified
// by a monotonically increasing index starting at 0. Immutable once appended.
type DonationRecord struct {
	Index     int64
	Donor     domain.PrincipalID
	Amount    int64
	Timestamp time.Time
	// Processed is true once the amount has been split into beneficiary
	// balances. Records are only appended after a successful split, so this
	// is always true today; it is persisted for audit parity.
	Processed bool
}

// Totals are the running pool counters. Both are monotonically
// non-decreasing.
type Totals struct {
	TotalReceived int64
	DonationCount int64
}

// Snapshot is a consistent view of the whole pool state, used by queries and
// by store restore paths. No partial-operation state ever appears in one.
type Snapshot struct {
	Beneficiaries []*Beneficiary
	Totals        Totals
}
