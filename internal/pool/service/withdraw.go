package service

import (
	"context"
	"errors"

	"givepool/internal/pool/events"
	"givepool/pkg/domain"
	dErrors "givepool/pkg/domain-errors"
	"givepool/pkg/platform/sentinel"
)

// Withdraw drains the caller's accrued balance through the treasury and
// returns the transferred amount.
//
// Ordering is checks-effects-interactions: the balance is zeroed and
// committed BEFORE the treasury transfer is attempted, and the service mutex
// is held across the transfer, so a re-entrant invocation observes a zero
// balance and fails with "no funds available". If the transfer itself fails
// the debit is restored and the whole withdrawal reports a transfer error —
// no duplicate payout, no lost funds.
func (s *Service) Withdraw(ctx context.Context, caller domain.PrincipalID) (amount int64, err error) {
	ctx, span := s.tracer.Start(ctx, "pool.Withdraw")
	defer func() { endSpan(span, err) }()

	if caller.IsNil() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "not a registered beneficiary")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetBeneficiary(ctx, caller); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeUnauthorized, "not a registered beneficiary")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load beneficiary")
	}

	balance, err := s.store.Balance(ctx, caller)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	if balance == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidState, "no funds available")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		amount, txErr = s.store.DebitAll(ctx, caller)
		return txErr
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit balance")
	}

	if err := s.treasury.Transfer(ctx, caller, amount); err != nil {
		s.restoreBalance(ctx, caller, amount)
		if s.metrics != nil {
			s.metrics.RecordTransferFailure()
		}
		return 0, dErrors.Wrap(err, dErrors.CodeTransferFailed, "value transfer failed")
	}

	if s.metrics != nil {
		s.metrics.RecordWithdrawal(amount)
	}
	event := events.New(events.KindWithdrawalCompleted, caller)
	event.Amount = amount
	s.notify(ctx, event)
	return amount, nil
}

// restoreBalance re-credits a debited balance after a failed transfer. A
// failure here would strand funds, so it is logged at the highest severity.
func (s *Service) restoreBalance(ctx context.Context, caller domain.PrincipalID, amount int64) {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Credit(ctx, caller, amount)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "CRITICAL: failed to restore balance after transfer failure",
			"error", err,
			"beneficiary", caller.String(),
			"amount", amount,
		)
	}
}
