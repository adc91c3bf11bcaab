package service

import (
	"context"
	"errors"

	"givepool/internal/pool/models"
	"givepool/pkg/domain"
	dErrors "givepool/pkg/domain-errors"
	"givepool/pkg/platform/sentinel"
)

// Read accessors. All take the service mutex so callers observe a consistent
// snapshot, never mid-mutation state.

// BeneficiaryCount returns the number of registered beneficiaries.
func (s *Service) BeneficiaryCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, err := s.store.CountBeneficiaries(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count beneficiaries")
	}
	return count, nil
}

// BeneficiaryIDs returns all registered ids in registration order.
func (s *Service) BeneficiaryIDs(ctx context.Context) ([]domain.PrincipalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.store.ListBeneficiaries(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list beneficiaries")
	}
	ids := make([]domain.PrincipalID, len(list))
	for i, b := range list {
		ids[i] = b.ID
	}
	return ids, nil
}

// Beneficiaries returns all records in registration order.
func (s *Service) Beneficiaries(ctx context.Context) ([]*models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.store.ListBeneficiaries(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list beneficiaries")
	}
	return list, nil
}

// Beneficiary returns the full record for id, including the current balance.
func (s *Service) Beneficiary(ctx context.Context, id domain.PrincipalID) (*models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.store.GetBeneficiary(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "beneficiary not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load beneficiary")
	}
	return b, nil
}

// BalanceOf returns the withdrawable balance for id; 0 for unknown ids.
func (s *Service) BalanceOf(ctx context.Context, id domain.PrincipalID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, err := s.store.Balance(ctx, id)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return balance, nil
}

// IsRegistered reports registry membership.
func (s *Service) IsRegistered(ctx context.Context, id domain.PrincipalID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.store.GetBeneficiary(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
}

// IsActive reports whether a registered beneficiary participates in splits.
func (s *Service) IsActive(ctx context.Context, id domain.PrincipalID) (bool, error) {
	b, err := s.Beneficiary(ctx, id)
	if err != nil {
		return false, err
	}
	return b.Active, nil
}

// ActiveAllocation is the splitter denominator: the allocation sum over
// currently active beneficiaries only.
func (s *Service) ActiveAllocation(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.store.ListBeneficiaries(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list beneficiaries")
	}
	sum := 0
	for _, b := range list {
		if b.Active {
			sum += b.AllocationPercent
		}
	}
	return sum, nil
}

// Totals returns the running counters.
func (s *Service) Totals(ctx context.Context) (models.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return models.Totals{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read totals")
	}
	return totals, nil
}

// PoolBalance is the value currently held by the treasury.
func (s *Service) PoolBalance(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, err := s.treasury.Balance(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pool balance")
	}
	return balance, nil
}

// Donation returns the history record at index.
func (s *Service) Donation(ctx context.Context, index int64) (models.DonationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.store.GetDonation(ctx, index)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.DonationRecord{}, dErrors.New(dErrors.CodeValidation, "donation index out of range")
		}
		return models.DonationRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read donation")
	}
	return record, nil
}
