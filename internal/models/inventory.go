package models

import "time"

// InventoryOperation is the direction of a manual inventory adjustment.
type InventoryOperation string

const (
	InventoryAdd      InventoryOperation = "add"
	InventorySubtract InventoryOperation = "subtract"
)

// IsValid reports whether the operation is known.
func (op InventoryOperation) IsValid() bool {
	return op == InventoryAdd || op == InventorySubtract
}

// InventoryRecord holds the derived available_units counter for one
// (bank, blood group) pair. The counter is maintained incrementally by
// donation transitions, request transitions and manual adjustments, and
// must never go negative.
type InventoryRecord struct {
	ID             string     `db:"id" json:"id"`
	BankID         string     `db:"bank_id" json:"bank_id"`
	BloodGroup     BloodGroup `db:"blood_group" json:"blood_group"`
	AvailableUnits int        `db:"available_units" json:"available_units"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	BankName string `db:"bank_name" json:"bank_name,omitempty"`
}

// ExpiringDonation is a read model for stock approaching its expiry date.
type ExpiringDonation struct {
	DonationID string     `db:"donation_id" json:"donation_id"`
	BankID     string     `db:"bank_id" json:"bank_id"`
	BankName   string     `db:"bank_name" json:"bank_name"`
	BloodGroup BloodGroup `db:"blood_group" json:"blood_group"`
	Units      int        `db:"units" json:"units"`
	ExpiryDate time.Time  `db:"expiry_date" json:"expiry_date"`
}
