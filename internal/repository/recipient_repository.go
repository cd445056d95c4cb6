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

// RecipientRepository handles recipient persistence.
type RecipientRepository struct {
	db *sqlx.DB
}

// NewRecipientRepository creates a new recipient repository.
func NewRecipientRepository(db *sqlx.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

const recipientColumns = `id, name, email, phone, address, created_at, updated_at`

// List returns all recipients.
func (r *RecipientRepository) List(ctx context.Context) ([]models.Recipient, error) {
	const query = `SELECT ` + recipientColumns + ` FROM recipients ORDER BY name ASC`
	var recipients []models.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return recipients, nil
}

// FindByID returns a recipient by identifier.
func (r *RecipientRepository) FindByID(ctx context.Context, id string) (*models.Recipient, error) {
	const query = `SELECT ` + recipientColumns + ` FROM recipients WHERE id = $1 LIMIT 1`
	var recipient models.Recipient
	if err := r.db.GetContext(ctx, &recipient, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find recipient by id: %w", err)
	}
	return &recipient, nil
}

// FindByEmail returns the recipient record matching a hospital account email.
func (r *RecipientRepository) FindByEmail(ctx context.Context, email string) (*models.Recipient, error) {
	const query = `SELECT ` + recipientColumns + ` FROM recipients WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var recipient models.Recipient
	if err := r.db.GetContext(ctx, &recipient, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find recipient by email: %w", err)
	}
	return &recipient, nil
}

// Create inserts a new recipient.
func (r *RecipientRepository) Create(ctx context.Context, recipient *models.Recipient) error {
	if recipient.ID == "" {
		recipient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if recipient.CreatedAt.IsZero() {
		recipient.CreatedAt = now
	}
	recipient.UpdatedAt = now

	const query = `INSERT INTO recipients (id, name, email, phone, address, created_at, updated_at) VALUES (:id, :name, :email, :phone, :address, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, recipient); err != nil {
		return fmt.Errorf("create recipient: %w", err)
	}
	return nil
}

// Update updates mutable fields of a recipient.
func (r *RecipientRepository) Update(ctx context.Context, recipient *models.Recipient) error {
	recipient.UpdatedAt = time.Now().UTC()
	const query = `UPDATE recipients SET name = :name, email = :email, phone = :phone, address = :address, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, recipient); err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	return nil
}

// Delete removes a recipient record.
func (r *RecipientRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM recipients WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
