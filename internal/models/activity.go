package models

import "time"

// Activity type constants tag state-changing operations in the audit trail.
const (
	ActivityDonationCreate  = "donation_create"
	ActivityDonationStatus  = "donation_status"
	ActivityRequestCreate   = "request_create"
	ActivityRequestStatus   = "request_status"
	ActivityInventoryUpdate = "inventory_update"
	ActivityDonationExpired = "donation_expired"
	ActivityUserRegister    = "user_register"
	ActivityUserLogin       = "user_login"
)

// ActivityLog is an append-only audit record of a state-changing operation.
type ActivityLog struct {
	ID          string    `db:"id" json:"id"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	ActorName   string    `db:"actor_name" json:"actor_name"`
	Type        string    `db:"activity_type" json:"type"`
	Description string    `db:"description" json:"description"`
	Details     []byte    `db:"details" json:"details,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ActivityFilter captures filtering criteria for listing activity logs.
type ActivityFilter struct {
	Type  string
	Actor string
	Limit int
}
