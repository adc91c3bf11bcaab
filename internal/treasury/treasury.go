// Package treasury is the value-transfer primitive the pool consumes. The
// pool only ever deposits into it (donations, direct funding) and asks it to
// move value out to a beneficiary (withdrawals); how value actually reaches
// the recipient is this package's concern, not the ledger's.
package treasury

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"givepool/pkg/domain"
	"givepool/pkg/platform/sentinel"
)

// Treasury moves pooled value. Implementations must be safe for concurrent
// use; Transfer must either move the full amount or fail without effect.
type Treasury interface {
	Deposit(ctx context.Context, from domain.PrincipalID, amount int64) error
	Transfer(ctx context.Context, to domain.PrincipalID, amount int64) error
	Balance(ctx context.Context) (int64, error)
}

// Memory is the in-process treasury: a pool counter plus an outbound log.
// It backs the default deployment and the test suites.
type Memory struct {
	mu      sync.Mutex
	balance int64
	logger  *slog.Logger
}

func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{logger: logger}
}

func (t *Memory) Deposit(_ context.Context, _ domain.PrincipalID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balance += amount
	return nil
}

func (t *Memory) Transfer(ctx context.Context, to domain.PrincipalID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balance < amount {
		return fmt.Errorf("pool holds %d, need %d: %w", t.balance, amount, sentinel.ErrInsufficient)
	}
	t.balance -= amount
	if t.logger != nil {
		t.logger.InfoContext(ctx, "treasury transfer",
			"to", to.String(),
			"amount", amount,
			"pool_balance", t.balance,
		)
	}
	return nil
}

func (t *Memory) Balance(_ context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance, nil
}

// Failing wraps a Treasury and fails every transfer. Test-only hook for the
// withdrawal rollback path.
type Failing struct {
	Treasury
	Err error
}

func (f *Failing) Transfer(context.Context, domain.PrincipalID, int64) error {
	return f.Err
}
