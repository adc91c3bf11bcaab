package service

import (
	"context"
	"errors"
	"time"

	"givepool/internal/pool/events"
	"givepool/internal/pool/models"
	"givepool/pkg/domain"
	dErrors "givepool/pkg/domain-errors"
	"givepool/pkg/platform/sentinel"
)

// Register adds a beneficiary with the given allocation percent. The
// allocation-sum invariant is checked over ALL registered beneficiaries
// regardless of active status, so deactivation never frees allocation budget.
func (s *Service) Register(ctx context.Context, caller, id domain.PrincipalID, percent int) (err error) {
	ctx, span := s.tracer.Start(ctx, "pool.Register")
	defer func() { endSpan(span, err) }()

	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if id.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "beneficiary id cannot be empty")
	}
	if percent < 1 || percent > 100 {
		return dErrors.New(dErrors.CodeValidation, "allocation percent must be between 1 and 100")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetBeneficiary(ctx, id); err == nil {
		return dErrors.New(dErrors.CodeValidation, "beneficiary already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
	}

	sum, err := s.allocationSum(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allocation sum")
	}
	if sum+percent > 100 {
		return dErrors.New(dErrors.CodeAllocationExceeded, "total allocation would exceed 100%")
	}

	b := &models.Beneficiary{
		ID:                id,
		AllocationPercent: percent,
		Active:            true,
		RegisteredAt:      time.Now(),
	}
	if err := s.store.InsertBeneficiary(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeValidation, "beneficiary already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register beneficiary")
	}

	s.refreshGauges(ctx)
	event := events.New(events.KindBeneficiaryRegistered, id)
	event.Percent = percent
	event.Active = true
	s.notify(ctx, event)
	return nil
}

// UpdateAllocation replaces a beneficiary's allocation percent, subject to
// the same sum invariant as registration.
func (s *Service) UpdateAllocation(ctx context.Context, caller, id domain.PrincipalID, percent int) (err error) {
	ctx, span := s.tracer.Start(ctx, "pool.UpdateAllocation")
	defer func() { endSpan(span, err) }()

	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if percent <= 0 {
		return dErrors.New(dErrors.CodeValidation, "allocation percent must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.GetBeneficiary(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "beneficiary not registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load beneficiary")
	}

	sum, err := s.allocationSum(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allocation sum")
	}
	if sum-b.AllocationPercent+percent > 100 {
		return dErrors.New(dErrors.CodeAllocationExceeded, "total allocation would exceed 100%")
	}

	b.AllocationPercent = percent
	if err := s.store.UpdateBeneficiary(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update allocation")
	}

	event := events.New(events.KindAllocationUpdated, id)
	event.Percent = percent
	event.Active = b.Active
	s.notify(ctx, event)
	return nil
}

// Deactivate removes a beneficiary from future splits. Its registered
// allocation and accrued balance are untouched.
func (s *Service) Deactivate(ctx context.Context, caller, id domain.PrincipalID) error {
	return s.setActive(ctx, caller, id, false)
}

// Reactivate returns a beneficiary to future splits.
func (s *Service) Reactivate(ctx context.Context, caller, id domain.PrincipalID) error {
	return s.setActive(ctx, caller, id, true)
}

func (s *Service) setActive(ctx context.Context, caller, id domain.PrincipalID, active bool) (err error) {
	ctx, span := s.tracer.Start(ctx, "pool.SetActive")
	defer func() { endSpan(span, err) }()

	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.GetBeneficiary(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "beneficiary not registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load beneficiary")
	}
	if b.Active == active {
		if active {
			return dErrors.New(dErrors.CodeInvalidState, "beneficiary already active")
		}
		return dErrors.New(dErrors.CodeInvalidState, "beneficiary already inactive")
	}

	b.Active = active
	if err := s.store.UpdateBeneficiary(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update status")
	}

	s.refreshGauges(ctx)
	event := events.New(events.KindStatusChanged, id)
	event.Percent = b.AllocationPercent
	event.Active = active
	s.notify(ctx, event)
	return nil
}

// allocationSum is the invariant denominator: allocation over all registered
// beneficiaries, active or not. Callers hold the mutex.
func (s *Service) allocationSum(ctx context.Context) (int, error) {
	list, err := s.store.ListBeneficiaries(ctx)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, b := range list {
		sum += b.AllocationPercent
	}
	return sum, nil
}
