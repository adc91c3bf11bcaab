package models

import "time"

// BeneficiaryResponse is the wire shape of one registry entry.
type BeneficiaryResponse struct {
	ID                string    `json:"id"`
	AllocationPercent int       `json:"allocation_percent"`
	Active            bool      `json:"active"`
	Balance           int64     `json:"balance"`
	RegisteredAt      time.Time `json:"registered_at"`
}

// NewBeneficiaryResponse converts a registry record for the wire.
func NewBeneficiaryResponse(b *Beneficiary) BeneficiaryResponse {
	return BeneficiaryResponse{
		ID:                b.ID.String(),
		AllocationPercent: b.AllocationPercent,
		Active:            b.Active,
		Balance:           b.Balance,
		RegisteredAt:      b.RegisteredAt,
	}
}

// BeneficiaryListResponse lists the registry in registration order.
type BeneficiaryListResponse struct {
	Beneficiaries    []BeneficiaryResponse `json:"beneficiaries"`
	TotalAllocation  int                   `json:"total_allocation"`
	ActiveAllocation int                   `json:"active_allocation"`
}

// DonationResponse is one history record on the wire.
type DonationResponse struct {
	Index     int64     `json:"index"`
	Donor     string    `json:"donor"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Processed bool      `json:"processed"`
}

// DonationAcceptedResponse acknowledges a processed donation.
type DonationAcceptedResponse struct {
	Index  int64 `json:"index"`
	Amount int64 `json:"amount"`
}

// WithdrawalResponse reports the amount moved out by a withdrawal.
type WithdrawalResponse struct {
	Amount int64 `json:"amount"`
}

// StatsResponse is the aggregate pool view.
type StatsResponse struct {
	PoolBalance         int64 `json:"pool_balance"`
	TotalReceived       int64 `json:"total_received"`
	DonationCount       int64 `json:"donation_count"`
	Beneficiaries       int   `json:"beneficiaries"`
	ActiveBeneficiaries int   `json:"active_beneficiaries"`
	ActiveAllocation    int   `json:"active_allocation"`
}
