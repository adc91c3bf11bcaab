//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"givepool/internal/pool/models"
	"givepool/internal/pool/store/postgres"
	"givepool/pkg/platform/sentinel"
	"givepool/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	_, err := s.pg.DB.ExecContext(context.Background(), postgres.Schema)
	s.Require().NoError(err)
	s.store = postgres.New(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.pg.DB.ExecContext(ctx, `TRUNCATE beneficiaries, donations`)
	s.Require().NoError(err)
	_, err = s.pg.DB.ExecContext(ctx, `UPDATE pool_totals SET total_received = 0, donation_count = 0 WHERE id = 1`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestBeneficiaryLifecycle() {
	ctx := context.Background()

	b := &models.Beneficiary{ID: "ngo-1", AllocationPercent: 60, Active: true, Position: 0, RegisteredAt: time.Now()}
	s.Require().NoError(s.store.InsertBeneficiary(ctx, b))

	s.Run("duplicate insert maps to conflict", func() {
		err := s.store.InsertBeneficiary(ctx, b)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("get returns the stored record", func() {
		got, err := s.store.GetBeneficiary(ctx, "ngo-1")
		s.Require().NoError(err)
		s.Equal(60, got.AllocationPercent)
		s.True(got.Active)
		s.Zero(got.Balance)
	})

	s.Run("update changes allocation and status", func() {
		b.AllocationPercent = 40
		b.Active = false
		s.Require().NoError(s.store.UpdateBeneficiary(ctx, b))

		got, err := s.store.GetBeneficiary(ctx, "ngo-1")
		s.Require().NoError(err)
		s.Equal(40, got.AllocationPercent)
		s.False(got.Active)
	})

	s.Run("unknown id maps to not found", func() {
		_, err := s.store.GetBeneficiary(ctx, "ghost")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("list preserves registration order", func() {
		b2 := &models.Beneficiary{ID: "ngo-2", AllocationPercent: 30, Active: true, Position: 1, RegisteredAt: time.Now()}
		s.Require().NoError(s.store.InsertBeneficiary(ctx, b2))

		list, err := s.store.ListBeneficiaries(ctx)
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal("ngo-1", list[0].ID.String())
		s.Equal("ngo-2", list[1].ID.String())

		count, err := s.store.CountBeneficiaries(ctx)
		s.Require().NoError(err)
		s.Equal(2, count)
	})
}

func (s *PostgresStoreSuite) TestCreditAndDebit() {
	ctx := context.Background()
	b := &models.Beneficiary{ID: "ngo-1", AllocationPercent: 100, Active: true, Position: 0, RegisteredAt: time.Now()}
	s.Require().NoError(s.store.InsertBeneficiary(ctx, b))

	s.Require().NoError(s.store.Credit(ctx, "ngo-1", 70))
	s.Require().NoError(s.store.Credit(ctx, "ngo-1", 30))

	balance, err := s.store.Balance(ctx, "ngo-1")
	s.Require().NoError(err)
	s.Equal(int64(100), balance)

	prior, err := s.store.DebitAll(ctx, "ngo-1")
	s.Require().NoError(err)
	s.Equal(int64(100), prior)

	balance, err = s.store.Balance(ctx, "ngo-1")
	s.Require().NoError(err)
	s.Zero(balance)

	// Unknown ids read as zero balance.
	balance, err = s.store.Balance(ctx, "ghost")
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *PostgresStoreSuite) TestDonationHistoryAndTotals() {
	ctx := context.Background()

	index, err := s.store.AppendDonation(ctx, models.DonationRecord{
		Donor: "donor-1", Amount: 100, Timestamp: time.Now(), Processed: true,
	})
	s.Require().NoError(err)
	s.Zero(index)

	index, err = s.store.AppendDonation(ctx, models.DonationRecord{
		Donor: "donor-2", Amount: 50, Timestamp: time.Now(), Processed: true,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), index)

	record, err := s.store.GetDonation(ctx, 0)
	s.Require().NoError(err)
	s.Equal("donor-1", record.Donor.String())
	s.Equal(int64(100), record.Amount)
	s.True(record.Processed)

	_, err = s.store.GetDonation(ctx, 2)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	totals, err := s.store.Totals(ctx)
	s.Require().NoError(err)
	s.Equal(int64(150), totals.TotalReceived)
	s.Equal(int64(2), totals.DonationCount)
}

func (s *PostgresStoreSuite) TestConcurrentAppendsAllocateUniqueIndexes() {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	indexes := make(chan int64, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index, err := s.store.AppendDonation(ctx, models.DonationRecord{
				Donor: "donor-1", Amount: 1, Timestamp: time.Now(), Processed: true,
			})
			if err == nil {
				indexes <- index
			}
		}()
	}
	wg.Wait()
	close(indexes)

	seen := make(map[int64]bool)
	for index := range indexes {
		s.False(seen[index], "index %d allocated twice", index)
		seen[index] = true
	}
	s.Len(seen, writers)
}

func (s *PostgresStoreSuite) TestTxRunnerRollsBackOnError() {
	ctx := context.Background()
	b := &models.Beneficiary{ID: "ngo-1", AllocationPercent: 100, Active: true, Position: 0, RegisteredAt: time.Now()}
	s.Require().NoError(s.store.InsertBeneficiary(ctx, b))

	runner := postgres.NewTxRunner(s.pg.DB)
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Credit(ctx, "ngo-1", 100); err != nil {
			return err
		}
		return sentinel.ErrUnavailable
	})
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)

	balance, err := s.store.Balance(ctx, "ngo-1")
	s.Require().NoError(err)
	s.Zero(balance, "credit inside a failed transaction must not persist")
}
