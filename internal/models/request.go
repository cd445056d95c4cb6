package models

import "time"

// RequestStatus is the lifecycle status of a blood request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestFulfilled RequestStatus = "fulfilled"
)

// IsValid reports whether the value is a known request status.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestFulfilled:
		return true
	}
	return false
}

// IsTerminal reports whether the status may not be reopened into an active
// state. Rejected and fulfilled requests cannot go back to approved or
// pending.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestRejected || s == RequestFulfilled
}

// IsActive reports whether the status represents an open request.
func (s RequestStatus) IsActive() bool {
	return s == RequestPending || s == RequestApproved
}

// BloodRequest represents one hospital's ask for units.
type BloodRequest struct {
	ID              string        `db:"id" json:"id"`
	RecipientID     string        `db:"recipient_id" json:"recipient_id"`
	BankID          string        `db:"bank_id" json:"bank_id"`
	BloodGroup      BloodGroup    `db:"blood_group" json:"blood_group"`
	UnitsRequested  int           `db:"units_requested" json:"units_requested"`
	RequiredBy      time.Time     `db:"required_by" json:"required_by"`
	Purpose         string        `db:"purpose" json:"purpose"`
	Notes           string        `db:"notes" json:"notes"`
	Status          RequestStatus `db:"status" json:"status"`
	ApprovedBy      *string       `db:"approved_by" json:"approved_by,omitempty"`
	FulfillmentDate *time.Time    `db:"fulfillment_date" json:"fulfillment_date,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`

	RecipientName string `db:"recipient_name" json:"recipient_name,omitempty"`
	BankName      string `db:"bank_name" json:"bank_name,omitempty"`
}

// RequestFilter captures filtering criteria for listing requests.
type RequestFilter struct {
	Status      string
	RecipientID string
	BankID      string
	IncludeAll  bool
}
