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

// DonationRepository handles donation persistence.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository creates a new donation repository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

const donationColumns = `d.id, d.donor_id, d.bank_id, d.blood_group, d.units, d.donation_date, d.expiry_date, d.status, d.created_at, d.updated_at`

// List returns donations matching the filter with donor and bank names.
func (r *DonationRepository) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	query := `SELECT ` + donationColumns + `, dn.full_name AS donor_name, b.name AS bank_name
        FROM donations d
        JOIN donors dn ON dn.id = d.donor_id
        JOIN blood_banks b ON b.id = d.bank_id
        WHERE 1=1`
	var args []interface{}
	if filter.DonorID != "" {
		args = append(args, filter.DonorID)
		query += fmt.Sprintf(" AND d.donor_id = $%d", len(args))
	}
	if filter.BankID != "" {
		args = append(args, filter.BankID)
		query += fmt.Sprintf(" AND d.bank_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND d.status = $%d", len(args))
	}
	if filter.BloodGroup != "" {
		args = append(args, string(models.NormalizeBloodGroup(filter.BloodGroup)))
		query += fmt.Sprintf(" AND UPPER(TRIM(d.blood_group)) = $%d", len(args))
	}
	query += " ORDER BY d.donation_date DESC"

	var donations []models.Donation
	if err := r.db.SelectContext(ctx, &donations, query, args...); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

// FindByID returns a donation by identifier with donor and bank names.
func (r *DonationRepository) FindByID(ctx context.Context, id string) (*models.Donation, error) {
	const query = `SELECT ` + donationColumns + `, dn.full_name AS donor_name, b.name AS bank_name
        FROM donations d
        JOIN donors dn ON dn.id = d.donor_id
        JOIN blood_banks b ON b.id = d.bank_id
        WHERE d.id = $1 LIMIT 1`
	var donation models.Donation
	if err := r.db.GetContext(ctx, &donation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find donation by id: %w", err)
	}
	return &donation, nil
}

// Lock loads a donation row inside a transaction, holding a row lock so a
// status transition and its inventory delta commit together.
func (r *DonationRepository) Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.Donation, error) {
	const query = `SELECT id, donor_id, bank_id, blood_group, units, donation_date, expiry_date, status, created_at, updated_at FROM donations WHERE id = $1 FOR UPDATE`
	var donation models.Donation
	if err := sqlx.GetContext(ctx, q, &donation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock donation: %w", err)
	}
	return &donation, nil
}

// Create inserts a donation row inside the caller's transaction.
func (r *DonationRepository) Create(ctx context.Context, q sqlx.ExtContext, donation *models.Donation) error {
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = now
	}
	donation.UpdatedAt = now
	if donation.Status == "" {
		donation.Status = models.DonationValid
	}

	const query = `INSERT INTO donations (id, donor_id, bank_id, blood_group, units, donation_date, expiry_date, status, created_at, updated_at) VALUES (:id, :donor_id, :bank_id, :blood_group, :units, :donation_date, :expiry_date, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, donation); err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

// SetStatus updates the donation status inside the caller's transaction.
func (r *DonationRepository) SetStatus(ctx context.Context, q sqlx.ExtContext, id string, status models.DonationStatus) error {
	const query = `UPDATE donations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set donation status: %w", err)
	}
	return nil
}

// ListDue returns valid donations whose expiry date has passed, locking the
// rows for the enclosing sweep transaction.
func (r *DonationRepository) ListDue(ctx context.Context, q sqlx.ExtContext, asOf time.Time) ([]models.Donation, error) {
	const query = `SELECT id, donor_id, bank_id, blood_group, units, donation_date, expiry_date, status, created_at, updated_at FROM donations WHERE status = 'valid' AND expiry_date < $1 ORDER BY expiry_date ASC FOR UPDATE`
	var donations []models.Donation
	if err := sqlx.SelectContext(ctx, q, &donations, query, asOf); err != nil {
		return nil, fmt.Errorf("list due donations: %w", err)
	}
	return donations, nil
}
