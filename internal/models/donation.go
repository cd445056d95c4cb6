package models

import (
	"fmt"
	"time"
)

// DonationStatus is the lifecycle status of a donation.
type DonationStatus string

const (
	DonationValid   DonationStatus = "valid"
	DonationExpired DonationStatus = "expired"
	DonationUsed    DonationStatus = "used"
)

// IsValid reports whether the value is a known donation status.
func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationValid, DonationExpired, DonationUsed:
		return true
	}
	return false
}

// donationTransitions maps the four permitted status transitions to the
// sign of the inventory delta they apply. A donation's units count toward
// available_units exactly while its status is valid, so leaving valid
// subtracts them and returning to valid adds them back.
var donationTransitions = map[[2]DonationStatus]int{
	{DonationValid, DonationExpired}: -1,
	{DonationValid, DonationUsed}:    -1,
	{DonationExpired, DonationValid}: +1,
	{DonationUsed, DonationValid}:    +1,
}

// DonationTransitionSign returns the inventory delta sign for a status
// transition. Same-status submissions and expired<->used cross transitions
// are rejected.
func DonationTransitionSign(from, to DonationStatus) (int, error) {
	if from == to {
		return 0, fmt.Errorf("donation already has status %q", from)
	}
	sign, ok := donationTransitions[[2]DonationStatus{from, to}]
	if !ok {
		return 0, fmt.Errorf("invalid donation status transition %q -> %q", from, to)
	}
	return sign, nil
}

// Donation represents one unit-batch contributed by a donor to a bank.
type Donation struct {
	ID           string         `db:"id" json:"id"`
	DonorID      string         `db:"donor_id" json:"donor_id"`
	BankID       string         `db:"bank_id" json:"bank_id"`
	BloodGroup   BloodGroup     `db:"blood_group" json:"blood_group"`
	Units        int            `db:"units" json:"units"`
	DonationDate time.Time      `db:"donation_date" json:"donation_date"`
	ExpiryDate   time.Time      `db:"expiry_date" json:"expiry_date"`
	Status       DonationStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`

	DonorName string `db:"donor_name" json:"donor_name,omitempty"`
	BankName  string `db:"bank_name" json:"bank_name,omitempty"`
}

// DonationFilter captures filtering criteria for listing donations.
type DonationFilter struct {
	DonorID    string
	BankID     string
	Status     string
	BloodGroup string
}
