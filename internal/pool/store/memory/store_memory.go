package memory

import (
	"context"
	"sync"

	"givepool/internal/pool/models"
	"givepool/pkg/domain"
	"givepool/pkg/platform/sentinel"
)

// Store is the in-memory implementation used by default and as the test
// fake. Registration order is kept in a separate slice; the map gives O(1)
// lookups.
type Store struct {
	mu            sync.RWMutex
	beneficiaries map[domain.PrincipalID]*models.Beneficiary
	order         []domain.PrincipalID
	donations     []models.DonationRecord
	totals        models.Totals
}

func New() *Store {
	return &Store{
		beneficiaries: make(map[domain.PrincipalID]*models.Beneficiary),
	}
}

func (s *Store) InsertBeneficiary(_ context.Context, b *models.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.beneficiaries[b.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *b
	clone.Position = len(s.order)
	s.beneficiaries[b.ID] = &clone
	s.order = append(s.order, b.ID)
	return nil
}

func (s *Store) UpdateBeneficiary(_ context.Context, b *models.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.beneficiaries[b.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	existing.AllocationPercent = b.AllocationPercent
	existing.Active = b.Active
	return nil
}

func (s *Store) GetBeneficiary(_ context.Context, id domain.PrincipalID) (*models.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.beneficiaries[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (s *Store) ListBeneficiaries(_ context.Context) ([]*models.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Beneficiary, 0, len(s.order))
	for _, id := range s.order {
		clone := *s.beneficiaries[id]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *Store) CountBeneficiaries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *Store) Credit(_ context.Context, id domain.PrincipalID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.beneficiaries[id]
	if !exists {
		return sentinel.ErrNotFound
	}
	b.Balance += amount
	return nil
}

func (s *Store) DebitAll(_ context.Context, id domain.PrincipalID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.beneficiaries[id]
	if !exists {
		return 0, sentinel.ErrNotFound
	}
	prior := b.Balance
	b.Balance = 0
	return prior, nil
}

func (s *Store) Balance(_ context.Context, id domain.PrincipalID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.beneficiaries[id]
	if !exists {
		return 0, nil
	}
	return b.Balance, nil
}

func (s *Store) AppendDonation(_ context.Context, record models.DonationRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.Index = int64(len(s.donations))
	s.donations = append(s.donations, record)
	s.totals.TotalReceived += record.Amount
	s.totals.DonationCount++
	return record.Index, nil
}

func (s *Store) GetDonation(_ context.Context, index int64) (models.DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= int64(len(s.donations)) {
		return models.DonationRecord{}, sentinel.ErrNotFound
	}
	return s.donations[index], nil
}

func (s *Store) Totals(_ context.Context) (models.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals, nil
}

// RunInTx satisfies store.TxRunner. The service mutex already serializes
// mutations and all validation precedes all writes, so there is nothing to
// roll back here.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
