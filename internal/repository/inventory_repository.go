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

// InventoryRepository maintains the derived available_units counter per
// (bank, blood group). Blood group matching is case-insensitive and
// whitespace-trimmed because stored values may have inconsistent casing.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// List returns all inventory rows with bank names.
func (r *InventoryRepository) List(ctx context.Context) ([]models.InventoryRecord, error) {
	const query = `SELECT i.id, i.bank_id, i.blood_group, i.available_units, i.created_at, i.updated_at, b.name AS bank_name
        FROM blood_inventory i
        JOIN blood_banks b ON b.id = i.bank_id
        ORDER BY b.name ASC, i.blood_group ASC`
	var records []models.InventoryRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return records, nil
}

// ListByGroup returns inventory rows for one blood group across banks.
func (r *InventoryRepository) ListByGroup(ctx context.Context, group models.BloodGroup) ([]models.InventoryRecord, error) {
	const query = `SELECT i.id, i.bank_id, i.blood_group, i.available_units, i.created_at, i.updated_at, b.name AS bank_name
        FROM blood_inventory i
        JOIN blood_banks b ON b.id = i.bank_id
        WHERE UPPER(TRIM(i.blood_group)) = UPPER(TRIM($1))
        ORDER BY b.name ASC`
	var records []models.InventoryRecord
	if err := r.db.SelectContext(ctx, &records, query, string(group)); err != nil {
		return nil, fmt.Errorf("list inventory by group: %w", err)
	}
	return records, nil
}

// Available returns the current counter for a (bank, blood group) pair.
// Missing rows surface as sql.ErrNoRows.
func (r *InventoryRepository) Available(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup) (int, error) {
	const query = `SELECT available_units FROM blood_inventory WHERE bank_id = $1 AND UPPER(TRIM(blood_group)) = UPPER(TRIM($2)) LIMIT 1`
	var units int
	if err := sqlx.GetContext(ctx, q, &units, query, bankID, string(group)); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("read available units: %w", err)
	}
	return units, nil
}

// Add increments the counter, creating the row when missing.
func (r *InventoryRepository) Add(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) error {
	const query = `INSERT INTO blood_inventory (id, bank_id, blood_group, available_units, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (bank_id, blood_group)
        DO UPDATE SET available_units = blood_inventory.available_units + EXCLUDED.available_units, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	if _, err := q.ExecContext(ctx, query, uuid.NewString(), bankID, string(models.NormalizeBloodGroup(string(group))), units, now); err != nil {
		return fmt.Errorf("add inventory units: %w", err)
	}
	return nil
}

// Deduct atomically decrements the counter, guarded so it can never go
// negative: the UPDATE only matches when enough units are available, and the
// affected-row count tells the caller whether the deduction happened. This
// closes the read-then-write race between concurrent approvals.
func (r *InventoryRepository) Deduct(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) (bool, error) {
	const query = `UPDATE blood_inventory SET available_units = available_units - $3, updated_at = $4
        WHERE bank_id = $1 AND UPPER(TRIM(blood_group)) = UPPER(TRIM($2)) AND available_units >= $3`
	res, err := q.ExecContext(ctx, query, bankID, string(group), units, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("deduct inventory units: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deduct inventory units: %w", err)
	}
	return n == 1, nil
}

// ExpiringDonations returns valid donation stock expiring within the window.
func (r *InventoryRepository) ExpiringDonations(ctx context.Context, within time.Duration) ([]models.ExpiringDonation, error) {
	const query = `SELECT d.id AS donation_id, d.bank_id, b.name AS bank_name, d.blood_group, d.units, d.expiry_date
        FROM donations d
        JOIN blood_banks b ON b.id = d.bank_id
        WHERE d.status = 'valid' AND d.expiry_date BETWEEN $1 AND $2
        ORDER BY d.expiry_date ASC`
	now := time.Now().UTC()
	var expiring []models.ExpiringDonation
	if err := r.db.SelectContext(ctx, &expiring, query, now, now.Add(within)); err != nil {
		return nil, fmt.Errorf("list expiring donations: %w", err)
	}
	return expiring, nil
}
