// Package store defines the persistence surface of the pool service.
//
// The service serializes all mutations behind its own mutex, so store
// implementations do not need cross-operation coordination; they need every
// individual method to be atomic and, for the postgres store, every
// multi-write operation to run inside one transaction via TxRunner.
//
// Stores report infrastructure facts with pkg/platform/sentinel errors; the
// service translates those into coded domain errors.
package store

import (
	"context"

	"givepool/internal/pool/models"
	"givepool/pkg/domain"
)

// Store persists the beneficiary registry, the balance ledger, the donation
// history, and the running totals as one consistent unit.
type Store interface {
	// InsertBeneficiary adds a new beneficiary at the end of the
	// registration order. Returns sentinel.ErrConflict when the id is
	// already registered.
	InsertBeneficiary(ctx context.Context, b *models.Beneficiary) error
	// UpdateBeneficiary persists allocation or status changes. Returns
	// sentinel.ErrNotFound for unknown ids. Balance is not written by this
	// method; use Credit and DebitAll.
	UpdateBeneficiary(ctx context.Context, b *models.Beneficiary) error
	// GetBeneficiary returns sentinel.ErrNotFound for unknown ids.
	GetBeneficiary(ctx context.Context, id domain.PrincipalID) (*models.Beneficiary, error)
	// ListBeneficiaries returns all beneficiaries in registration order.
	ListBeneficiaries(ctx context.Context) ([]*models.Beneficiary, error)
	CountBeneficiaries(ctx context.Context) (int, error)

	// Credit adds amount to the beneficiary's balance. Returns
	// sentinel.ErrNotFound for unknown ids.
	Credit(ctx context.Context, id domain.PrincipalID, amount int64) error
	// DebitAll zeroes the balance and returns the prior value. Returns
	// sentinel.ErrNotFound for unknown ids.
	DebitAll(ctx context.Context, id domain.PrincipalID) (int64, error)
	// Balance returns 0 for ids that were never credited or were fully
	// withdrawn; unknown ids also read as 0.
	Balance(ctx context.Context, id domain.PrincipalID) (int64, error)

	// AppendDonation assigns the next index (donation count before the
	// append), persists the record, and bumps the totals by the record
	// amount and by one donation. Returns the assigned index.
	AppendDonation(ctx context.Context, record models.DonationRecord) (int64, error)
	// GetDonation returns sentinel.ErrNotFound when index >= length.
	GetDonation(ctx context.Context, index int64) (models.DonationRecord, error)
	Totals(ctx context.Context) (models.Totals, error)
}

// TxRunner executes fn atomically. The postgres implementation wraps fn in a
// database transaction carried through the context; the memory store's
// implementation just runs fn, since the service mutex already serializes and
// memory writes cannot partially fail (all validation precedes all writes).
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
