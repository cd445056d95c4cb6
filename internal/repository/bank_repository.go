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

// BankRepository handles blood bank persistence.
type BankRepository struct {
	db *sqlx.DB
}

// NewBankRepository creates a new bank repository.
func NewBankRepository(db *sqlx.DB) *BankRepository {
	return &BankRepository{db: db}
}

const bankColumns = `id, name, location, phone, created_at, updated_at`

// List returns all blood banks.
func (r *BankRepository) List(ctx context.Context) ([]models.BloodBank, error) {
	const query = `SELECT ` + bankColumns + ` FROM blood_banks ORDER BY name ASC`
	var banks []models.BloodBank
	if err := r.db.SelectContext(ctx, &banks, query); err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return banks, nil
}

// FindByID returns a bank by identifier.
func (r *BankRepository) FindByID(ctx context.Context, id string) (*models.BloodBank, error) {
	const query = `SELECT ` + bankColumns + ` FROM blood_banks WHERE id = $1 LIMIT 1`
	var bank models.BloodBank
	if err := r.db.GetContext(ctx, &bank, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find bank by id: %w", err)
	}
	return &bank, nil
}

// Exists reports whether a bank row exists, usable inside a transaction.
func (r *BankRepository) Exists(ctx context.Context, q sqlx.ExtContext, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blood_banks WHERE id = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, query, id); err != nil {
		return false, fmt.Errorf("check bank exists: %w", err)
	}
	return exists, nil
}

// ExistsByName reports whether another bank already uses the name.
func (r *BankRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blood_banks WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check bank name: %w", err)
	}
	return exists, nil
}

// Create inserts a new bank.
func (r *BankRepository) Create(ctx context.Context, bank *models.BloodBank) error {
	if bank.ID == "" {
		bank.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if bank.CreatedAt.IsZero() {
		bank.CreatedAt = now
	}
	bank.UpdatedAt = now

	const query = `INSERT INTO blood_banks (id, name, location, phone, created_at, updated_at) VALUES (:id, :name, :location, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, bank); err != nil {
		return fmt.Errorf("create bank: %w", err)
	}
	return nil
}

// Update updates mutable fields of a bank.
func (r *BankRepository) Update(ctx context.Context, bank *models.BloodBank) error {
	bank.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blood_banks SET name = :name, location = :location, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, bank); err != nil {
		return fmt.Errorf("update bank: %w", err)
	}
	return nil
}

// Delete removes a bank record.
func (r *BankRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM blood_banks WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete bank: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
