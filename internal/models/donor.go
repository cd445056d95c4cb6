package models

import "time"

// Donor health status values.
const (
	HealthStatusEligible    = "Eligible"
	HealthStatusNotEligible = "Not Eligible"
)

// Donor represents a registered blood donor.
type Donor struct {
	ID               string     `db:"id" json:"id"`
	FullName         string     `db:"full_name" json:"name"`
	Email            string     `db:"email" json:"email"`
	Phone            string     `db:"phone" json:"phone"`
	BloodGroup       BloodGroup `db:"blood_group" json:"blood_group"`
	HealthStatus     string     `db:"health_status" json:"health_status"`
	LastDonationDate *time.Time `db:"last_donation_date" json:"last_donation_date,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// DonorFilter captures filtering criteria for listing donors.
type DonorFilter struct {
	BloodGroup string
	Search     string
}
