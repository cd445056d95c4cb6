package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

// RequestRepository handles blood request persistence.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `r.id, r.recipient_id, r.bank_id, r.blood_group, r.units_requested, r.required_by, r.purpose, r.notes, r.status, r.approved_by, r.fulfillment_date, r.created_at, r.updated_at`

// List returns requests matching the filter with recipient and bank names.
// Unless IncludeAll is set, only active (pending/approved) requests are
// returned.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + `, rc.name AS recipient_name, b.name AS bank_name
        FROM blood_requests r
        JOIN recipients rc ON rc.id = r.recipient_id
        JOIN blood_banks b ON b.id = r.bank_id
        WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND r.status = $%d", len(args))
	} else if !filter.IncludeAll {
		query += " AND r.status IN ('pending', 'approved')"
	}
	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		query += fmt.Sprintf(" AND r.recipient_id = $%d", len(args))
	}
	if filter.BankID != "" {
		args = append(args, filter.BankID)
		query += fmt.Sprintf(" AND r.bank_id = $%d", len(args))
	}
	query += " ORDER BY r.created_at DESC"

	var requests []models.BloodRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// FindByID returns a request by identifier with recipient and bank names.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	const query = `SELECT ` + requestColumns + `, rc.name AS recipient_name, b.name AS bank_name
        FROM blood_requests r
        JOIN recipients rc ON rc.id = r.recipient_id
        JOIN blood_banks b ON b.id = r.bank_id
        WHERE r.id = $1 LIMIT 1`
	var request models.BloodRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return &request, nil
}

// Lock loads a request row inside a transaction, holding a row lock so a
// status transition and its inventory delta commit together.
func (r *RequestRepository) Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.BloodRequest, error) {
	const query = `SELECT id, recipient_id, bank_id, blood_group, units_requested, required_by, purpose, notes, status, approved_by, fulfillment_date, created_at, updated_at FROM blood_requests WHERE id = $1 FOR UPDATE`
	var request models.BloodRequest
	if err := sqlx.GetContext(ctx, q, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	return &request, nil
}

// Create inserts a request row with status pending inside the caller's
// transaction.
func (r *RequestRepository) Create(ctx context.Context, q sqlx.ExtContext, request *models.BloodRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.RequestPending
	}

	const query = `INSERT INTO blood_requests (id, recipient_id, bank_id, blood_group, units_requested, required_by, purpose, notes, status, approved_by, fulfillment_date, created_at, updated_at) VALUES (:id, :recipient_id, :bank_id, :blood_group, :units_requested, :required_by, :purpose, :notes, :status, :approved_by, :fulfillment_date, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// SetStatus updates status, notes, approver and fulfillment date inside the
// caller's transaction.
func (r *RequestRepository) SetStatus(ctx context.Context, q sqlx.ExtContext, request *models.BloodRequest) error {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blood_requests SET status = :status, notes = :notes, approved_by = :approved_by, fulfillment_date = :fulfillment_date, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, q, query, request); err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	return nil
}
