package service

import (
	"context"
	"math/big"
	"time"

	"givepool/internal/pool/events"
	"givepool/internal/pool/models"
	"givepool/pkg/domain"
	dErrors "givepool/pkg/domain-errors"
)

// Donate splits amount across the active beneficiaries in registration
// order. Each beneficiary except the last receives floor(amount*percent/D)
// where D is the sum of ACTIVE allocation percents; the last active
// beneficiary receives the exact remainder, so the credited shares always sum
// to amount and deactivating members rescales the remaining shares toward
// 100%. Returns the index of the appended history record.
func (s *Service) Donate(ctx context.Context, donor domain.PrincipalID, amount int64) (index int64, err error) {
	ctx, span := s.tracer.Start(ctx, "pool.Donate")
	defer func() { endSpan(span, err) }()

	if donor.IsNil() {
		return 0, dErrors.New(dErrors.CodeValidation, "donor id cannot be empty")
	}
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "donation amount must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.ListBeneficiaries(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list beneficiaries")
	}
	if len(list) == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidState, "no beneficiaries registered")
	}

	var active []*models.Beneficiary
	denominator := 0
	for _, b := range list {
		if b.Active {
			active = append(active, b)
			denominator += b.AllocationPercent
		}
	}
	if len(active) == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidState, "no active beneficiaries")
	}

	shares := splitShares(amount, active, denominator)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for i, b := range active {
			if shares[i] == 0 {
				continue
			}
			if err := s.store.Credit(ctx, b.ID, shares[i]); err != nil {
				return err
			}
		}
		var txErr error
		index, txErr = s.store.AppendDonation(ctx, models.DonationRecord{
			Donor:     donor,
			Amount:    amount,
			Timestamp: time.Now(),
			Processed: true,
		})
		return txErr
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record donation")
	}

	// Cannot fail for a validated positive amount; a failure here means the
	// treasury is broken, not the donation.
	if err := s.treasury.Deposit(ctx, donor, amount); err != nil {
		s.logger.ErrorContext(ctx, "CRITICAL: treasury deposit failed after ledger commit",
			"error", err,
			"donor", donor.String(),
			"amount", amount,
		)
	}

	if s.metrics != nil {
		s.metrics.RecordDonation(amount)
	}
	event := events.New(events.KindDonationReceived, donor)
	event.Amount = amount
	event.Index = index
	s.notify(ctx, event)
	return index, nil
}

// Fund adds value to the pool without splitting, mirroring a plain transfer
// into the pool. The ledger, history, and totals are untouched.
func (s *Service) Fund(ctx context.Context, from domain.PrincipalID, amount int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "pool.Fund")
	defer func() { endSpan(span, err) }()

	if from.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "funder id cannot be empty")
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "funding amount must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.treasury.Deposit(ctx, from, amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to fund pool")
	}

	event := events.New(events.KindFunded, from)
	event.Amount = amount
	s.notify(ctx, event)
	return nil
}

// splitShares computes each active beneficiary's share. All but the last get
// the floored proportional share; the last gets the exact remainder so no
// dust is ever lost.
func splitShares(amount int64, active []*models.Beneficiary, denominator int) []int64 {
	shares := make([]int64, len(active))
	var allocated int64
	for i, b := range active[:len(active)-1] {
		shares[i] = shareOf(amount, b.AllocationPercent, denominator)
		allocated += shares[i]
	}
	shares[len(active)-1] = amount - allocated
	return shares
}

// shareOf computes floor(amount*percent/denominator) without overflowing on
// amounts near the int64 ceiling.
func shareOf(amount int64, percent, denominator int) int64 {
	product := new(big.Int).Mul(big.NewInt(amount), big.NewInt(int64(percent)))
	return product.Div(product, big.NewInt(int64(denominator))).Int64()
}
