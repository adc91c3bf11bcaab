package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"givepool/internal/pool/events"
	"givepool/internal/pool/store/memory"
	"givepool/internal/treasury"
	"givepool/pkg/domain"
	dErrors "givepool/pkg/domain-errors"
	"givepool/pkg/platform/sentinel"
)

const admin = domain.PrincipalID("admin")

// captureNotifier records emitted events so tests can assert the
// exactly-once-after-commit contract.
type captureNotifier struct {
	events []events.Event
}

func (n *captureNotifier) Notify(_ context.Context, event events.Event) {
	n.events = append(n.events, event)
}

func (n *captureNotifier) ofKind(kind events.Kind) []events.Event {
	var out []events.Event
	for _, e := range n.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type PoolServiceSuite struct {
	suite.Suite
	store    *memory.Store
	treasury *treasury.Memory
	notifier *captureNotifier
	service  *Service
	ctx      context.Context
}

func TestPoolServiceSuite(t *testing.T) {
	suite.Run(t, new(PoolServiceSuite))
}

func (s *PoolServiceSuite) SetupTest() {
	s.store = memory.New()
	s.treasury = treasury.NewMemory(nil)
	s.notifier = &captureNotifier{}
	s.ctx = context.Background()

	var err error
	s.service, err = New(s.store, s.store, s.treasury, admin, WithNotifier(s.notifier))
	s.Require().NoError(err)
}

func (s *PoolServiceSuite) register(id string, percent int) {
	s.Require().NoError(s.service.Register(s.ctx, admin, domain.PrincipalID(id), percent))
}

func (s *PoolServiceSuite) donate(donor string, amount int64) int64 {
	index, err := s.service.Donate(s.ctx, domain.PrincipalID(donor), amount)
	s.Require().NoError(err)
	return index
}

func (s *PoolServiceSuite) balance(id string) int64 {
	balance, err := s.service.BalanceOf(s.ctx, domain.PrincipalID(id))
	s.Require().NoError(err)
	return balance
}

func (s *PoolServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.store, s.treasury, admin)
		s.Error(err)
		s.Contains(err.Error(), "pool store is required")
	})

	s.Run("nil treasury returns error", func() {
		_, err := New(s.store, s.store, nil, admin)
		s.Error(err)
	})

	s.Run("empty admin returns error", func() {
		_, err := New(s.store, s.store, s.treasury, "")
		s.Error(err)
	})
}

func (s *PoolServiceSuite) TestRegister() {
	s.Run("registers a single beneficiary", func() {
		s.register("ngo-1", 100)

		count, err := s.service.BeneficiaryCount(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, count)

		b, err := s.service.Beneficiary(s.ctx, "ngo-1")
		s.Require().NoError(err)
		s.Equal(100, b.AllocationPercent)
		s.True(b.Active)
		s.Zero(b.Balance)
	})

	s.Run("rejects non-admin caller before any state change", func() {
		err := s.service.Register(s.ctx, "stranger", "ngo-2", 10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects empty id", func() {
		err := s.service.Register(s.ctx, admin, "", 10)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects percent outside 1..100", func() {
		s.True(dErrors.HasCode(s.service.Register(s.ctx, admin, "ngo-2", 0), dErrors.CodeValidation))
		s.True(dErrors.HasCode(s.service.Register(s.ctx, admin, "ngo-2", 101), dErrors.CodeValidation))
	})

	s.Run("rejects duplicate registration", func() {
		err := s.service.Register(s.ctx, admin, "ngo-1", 50)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("beneficiary already registered", dErrors.MessageOf(err))
	})

	s.Run("emits a registration event", func() {
		registered := s.notifier.ofKind(events.KindBeneficiaryRegistered)
		s.Require().Len(registered, 1)
		s.Equal(domain.PrincipalID("ngo-1"), registered[0].Principal)
		s.Equal(100, registered[0].Percent)
	})
}

func (s *PoolServiceSuite) TestAllocationInvariant() {
	s.register("a", 60)
	s.register("b", 40)

	s.Run("rejects registration that would exceed 100 and leaves state unchanged", func() {
		err := s.service.Register(s.ctx, admin, "c", 50)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAllocationExceeded))

		count, countErr := s.service.BeneficiaryCount(s.ctx)
		s.Require().NoError(countErr)
		s.Equal(2, count)
		s.Len(s.notifier.ofKind(events.KindBeneficiaryRegistered), 2)
	})

	s.Run("rejects allocation update that would exceed 100", func() {
		err := s.service.UpdateAllocation(s.ctx, admin, "a", 70)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAllocationExceeded))

		b, getErr := s.service.Beneficiary(s.ctx, "a")
		s.Require().NoError(getErr)
		s.Equal(60, b.AllocationPercent)
	})

	s.Run("deactivation does not free allocation budget", func() {
		s.Require().NoError(s.service.Deactivate(s.ctx, admin, "a"))
		err := s.service.Register(s.ctx, admin, "c", 10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAllocationExceeded))
		s.Require().NoError(s.service.Reactivate(s.ctx, admin, "a"))
	})

	s.Run("accepts update within the budget", func() {
		s.Require().NoError(s.service.UpdateAllocation(s.ctx, admin, "a", 50))
		b, err := s.service.Beneficiary(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal(50, b.AllocationPercent)
		s.Len(s.notifier.ofKind(events.KindAllocationUpdated), 1)
	})

	s.Run("rejects zero allocation update", func() {
		err := s.service.UpdateAllocation(s.ctx, admin, "a", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects update for unknown id", func() {
		err := s.service.UpdateAllocation(s.ctx, admin, "ghost", 10)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *PoolServiceSuite) TestStatusTransitions() {
	s.register("ngo-1", 50)
	s.register("ngo-2", 50)

	s.Run("deactivates and reactivates", func() {
		s.Require().NoError(s.service.Deactivate(s.ctx, admin, "ngo-1"))
		active, err := s.service.IsActive(s.ctx, "ngo-1")
		s.Require().NoError(err)
		s.False(active)

		s.Require().NoError(s.service.Reactivate(s.ctx, admin, "ngo-1"))
		active, err = s.service.IsActive(s.ctx, "ngo-1")
		s.Require().NoError(err)
		s.True(active)

		s.Len(s.notifier.ofKind(events.KindStatusChanged), 2)
	})

	s.Run("rejects deactivating an already inactive beneficiary", func() {
		s.Require().NoError(s.service.Deactivate(s.ctx, admin, "ngo-1"))
		err := s.service.Deactivate(s.ctx, admin, "ngo-1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal("beneficiary already inactive", dErrors.MessageOf(err))
	})

	s.Run("rejects reactivating an already active beneficiary", func() {
		err := s.service.Reactivate(s.ctx, admin, "ngo-2")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("rejects status change for unknown id", func() {
		err := s.service.Deactivate(s.ctx, admin, "ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *PoolServiceSuite) TestDonateTwoWaySplit() {
	s.register("a", 50)
	s.register("b", 50)

	s.donate("donor-1", 10)

	s.Equal(int64(5), s.balance("a"))
	s.Equal(int64(5), s.balance("b"))

	pool, err := s.service.PoolBalance(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(10), pool)
}

func (s *PoolServiceSuite) TestDonateThreeWayUnevenSplit() {
	s.register("a", 40)
	s.register("b", 35)
	s.register("c", 25)

	s.donate("donor-1", 100)

	s.Equal(int64(40), s.balance("a"))
	s.Equal(int64(35), s.balance("b"))
	s.Equal(int64(25), s.balance("c"))
}

func (s *PoolServiceSuite) TestDonateConservation() {
	// 1 unit across 33/33/34 must be assigned in full: the remainder goes to
	// the last beneficiary in registration order.
	s.register("a", 33)
	s.register("b", 33)
	s.register("c", 34)

	s.donate("donor-1", 1)

	total := s.balance("a") + s.balance("b") + s.balance("c")
	s.Equal(int64(1), total)
	s.Equal(int64(1), s.balance("c"))
}

func (s *PoolServiceSuite) TestDonateAccumulatesAcrossDonors() {
	s.register("a", 40)
	s.register("b", 35)
	s.register("c", 25)

	s.donate("donor-1", 1000)
	s.donate("donor-2", 500)

	s.Equal(int64(600), s.balance("a"))
	s.Equal(int64(525), s.balance("b"))
	s.Equal(int64(375), s.balance("c"))
}

func (s *PoolServiceSuite) TestDeactivationNarrowsDenominator() {
	s.register("a", 40)
	s.register("b", 60)

	total, err := s.service.ActiveAllocation(s.ctx)
	s.Require().NoError(err)
	s.Equal(100, total)

	s.Require().NoError(s.service.Deactivate(s.ctx, admin, "a"))

	total, err = s.service.ActiveAllocation(s.ctx)
	s.Require().NoError(err)
	s.Equal(60, total)

	// The remaining active beneficiary absorbs the full amount.
	s.donate("donor-1", 100)
	s.Zero(s.balance("a"))
	s.Equal(int64(100), s.balance("b"))
}

func (s *PoolServiceSuite) TestDonateRejections() {
	s.Run("rejects donation with no beneficiaries registered", func() {
		_, err := s.service.Donate(s.ctx, "donor-1", 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal("no beneficiaries registered", dErrors.MessageOf(err))
	})

	s.Run("rejects zero and negative amounts", func() {
		s.register("a", 100)
		_, err := s.service.Donate(s.ctx, "donor-1", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.Donate(s.ctx, "donor-1", -5)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects donation when no beneficiary is active", func() {
		s.Require().NoError(s.service.Deactivate(s.ctx, admin, "a"))
		_, err := s.service.Donate(s.ctx, "donor-1", 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal("no active beneficiaries", dErrors.MessageOf(err))
	})

	s.Run("failed donations emit no events and leave totals untouched", func() {
		s.Empty(s.notifier.ofKind(events.KindDonationReceived))
		totals, err := s.service.Totals(s.ctx)
		s.Require().NoError(err)
		s.Zero(totals.DonationCount)
		s.Zero(totals.TotalReceived)
	})
}

func (s *PoolServiceSuite) TestTotalsAndHistory() {
	s.register("a", 100)

	s.Equal(int64(0), s.donate("donor-1", 100))
	s.Equal(int64(1), s.donate("donor-2", 200))

	totals, err := s.service.Totals(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(300), totals.TotalReceived)
	s.Equal(int64(2), totals.DonationCount)

	record, err := s.service.Donation(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(domain.PrincipalID("donor-1"), record.Donor)
	s.Equal(int64(100), record.Amount)
	s.True(record.Processed)
	s.Zero(record.Index)

	record, err = s.service.Donation(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(domain.PrincipalID("donor-2"), record.Donor)
	s.Equal(int64(1), record.Index)

	_, err = s.service.Donation(s.ctx, 2)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("donation index out of range", dErrors.MessageOf(err))

	received := s.notifier.ofKind(events.KindDonationReceived)
	s.Require().Len(received, 2)
	s.Equal(int64(100), received[0].Amount)
	s.Zero(received[0].Index)
	s.Equal(int64(1), received[1].Index)
}

func (s *PoolServiceSuite) TestWithdraw() {
	s.register("a", 50)
	s.register("b", 50)
	s.donate("donor-1", 200)

	s.Run("drains the caller's balance through the treasury", func() {
		amount, err := s.service.Withdraw(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal(int64(100), amount)
		s.Zero(s.balance("a"))

		pool, err := s.service.PoolBalance(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(100), pool)

		completed := s.notifier.ofKind(events.KindWithdrawalCompleted)
		s.Require().Len(completed, 1)
		s.Equal(int64(100), completed[0].Amount)
	})

	s.Run("second immediate withdrawal fails with no funds available", func() {
		_, err := s.service.Withdraw(s.ctx, "a")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal("no funds available", dErrors.MessageOf(err))
	})

	s.Run("non-registered caller is rejected and state is unaffected", func() {
		_, err := s.service.Withdraw(s.ctx, "stranger")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("not a registered beneficiary", dErrors.MessageOf(err))

		totals, totalsErr := s.service.Totals(s.ctx)
		s.Require().NoError(totalsErr)
		s.Equal(int64(1), totals.DonationCount)
		s.Equal(int64(100), s.balance("b"))
	})

	s.Run("repeat cycle: donate again then withdraw again", func() {
		s.donate("donor-2", 200)
		s.Equal(int64(100), s.balance("a"))

		amount, err := s.service.Withdraw(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal(int64(100), amount)
		s.Zero(s.balance("a"))
	})
}

func (s *PoolServiceSuite) TestWithdrawTransferFailureRollsBack() {
	s.register("a", 100)
	s.donate("donor-1", 100)

	failing := &treasury.Failing{Treasury: s.treasury, Err: sentinel.ErrInsufficient}
	svc, err := New(s.store, s.store, failing, admin, WithNotifier(s.notifier))
	s.Require().NoError(err)

	_, err = svc.Withdraw(s.ctx, "a")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransferFailed))

	// Debit rolled back: the balance is withdrawable again.
	s.Equal(int64(100), s.balance("a"))
	s.Empty(s.notifier.ofKind(events.KindWithdrawalCompleted))
}

func (s *PoolServiceSuite) TestFund() {
	s.Run("increases the pool without splitting", func() {
		s.Require().NoError(s.service.Fund(s.ctx, "patron", 500))

		pool, err := s.service.PoolBalance(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(500), pool)

		totals, err := s.service.Totals(s.ctx)
		s.Require().NoError(err)
		s.Zero(totals.DonationCount)
		s.Zero(totals.TotalReceived)

		funded := s.notifier.ofKind(events.KindFunded)
		s.Require().Len(funded, 1)
		s.Equal(int64(500), funded[0].Amount)
	})

	s.Run("rejects non-positive amounts", func() {
		s.True(dErrors.HasCode(s.service.Fund(s.ctx, "patron", 0), dErrors.CodeValidation))
	})
}

func (s *PoolServiceSuite) TestReadAccessors() {
	s.register("a", 40)
	s.register("b", 60)

	ids, err := s.service.BeneficiaryIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.PrincipalID{"a", "b"}, ids)

	registered, err := s.service.IsRegistered(s.ctx, "a")
	s.Require().NoError(err)
	s.True(registered)

	registered, err = s.service.IsRegistered(s.ctx, "stranger")
	s.Require().NoError(err)
	s.False(registered)

	_, err = s.service.Beneficiary(s.ctx, "stranger")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Zero(s.balance("stranger"))
}

func (s *PoolServiceSuite) TestLargeAmountSplitDoesNotOverflow() {
	s.register("a", 33)
	s.register("b", 67)

	const huge = int64(1) << 62
	s.donate("donor-1", huge)

	s.Equal(huge, s.balance("a")+s.balance("b"))
}
