package models

// RegisterBeneficiaryRequest is the admin payload for adding a beneficiary.
type RegisterBeneficiaryRequest struct {
	ID                string `json:"id"`
	AllocationPercent int    `json:"allocation_percent"`
}

// UpdateAllocationRequest changes an existing beneficiary's share.
type UpdateAllocationRequest struct {
	AllocationPercent int `json:"allocation_percent"`
}

// DonationRequest carries one donation amount in base units. The donor is the
// authenticated caller, never part of the payload.
type DonationRequest struct {
	Amount int64 `json:"amount"`
}

// FundRequest adds to the pool without splitting.
type FundRequest struct {
	Amount int64 `json:"amount"`
}
