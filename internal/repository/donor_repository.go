package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

// DonorRepository handles donor persistence.
type DonorRepository struct {
	db *sqlx.DB
}

// NewDonorRepository creates a new donor repository.
func NewDonorRepository(db *sqlx.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

const donorColumns = `id, full_name, email, phone, blood_group, health_status, last_donation_date, created_at, updated_at`

// List returns donors matching the filter.
func (r *DonorRepository) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE 1=1`
	var args []interface{}
	if filter.BloodGroup != "" {
		args = append(args, string(models.NormalizeBloodGroup(filter.BloodGroup)))
		query += fmt.Sprintf(" AND UPPER(TRIM(blood_group)) = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY full_name ASC"

	var donors []models.Donor
	if err := r.db.SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	return donors, nil
}

// FindByID returns a donor by identifier.
func (r *DonorRepository) FindByID(ctx context.Context, id string) (*models.Donor, error) {
	const query = `SELECT ` + donorColumns + ` FROM donors WHERE id = $1 LIMIT 1`
	var donor models.Donor
	if err := r.db.GetContext(ctx, &donor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find donor by id: %w", err)
	}
	return &donor, nil
}

// Lock loads a donor row inside a transaction and holds a row lock for the
// duration of that transaction.
func (r *DonorRepository) Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.Donor, error) {
	const query = `SELECT ` + donorColumns + ` FROM donors WHERE id = $1 FOR UPDATE`
	var donor models.Donor
	if err := sqlx.GetContext(ctx, q, &donor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock donor: %w", err)
	}
	return &donor, nil
}

// Create inserts a new donor.
func (r *DonorRepository) Create(ctx context.Context, donor *models.Donor) error {
	if donor.ID == "" {
		donor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	donor.UpdatedAt = now

	const query = `INSERT INTO donors (id, full_name, email, phone, blood_group, health_status, last_donation_date, created_at, updated_at) VALUES (:id, :full_name, :email, :phone, :blood_group, :health_status, :last_donation_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, donor); err != nil {
		return fmt.Errorf("create donor: %w", err)
	}
	return nil
}

// Update updates mutable fields of a donor.
func (r *DonorRepository) Update(ctx context.Context, donor *models.Donor) error {
	donor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE donors SET full_name = :full_name, email = :email, phone = :phone, blood_group = :blood_group, health_status = :health_status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, donor); err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	return nil
}

// Delete removes a donor record.
func (r *DonorRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM donors WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete donor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetLastDonationDate records the donor's most recent donation date.
func (r *DonorRepository) SetLastDonationDate(ctx context.Context, q sqlx.ExtContext, id string, date time.Time) error {
	const query = `UPDATE donors SET last_donation_date = $2, updated_at = $3 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, date, time.Now().UTC()); err != nil {
		return fmt.Errorf("set last donation date: %w", err)
	}
	return nil
}
