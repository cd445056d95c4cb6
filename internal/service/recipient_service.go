package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type recipientRepository interface {
	List(ctx context.Context) ([]models.Recipient, error)
	FindByID(ctx context.Context, id string) (*models.Recipient, error)
	FindByEmail(ctx context.Context, email string) (*models.Recipient, error)
	Create(ctx context.Context, recipient *models.Recipient) error
	Update(ctx context.Context, recipient *models.Recipient) error
	Delete(ctx context.Context, id string) error
}

// RecipientRequest holds payload for creating and updating recipients.
type RecipientRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// RecipientService handles recipient use-cases.
type RecipientService struct {
	repo      recipientRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecipientService constructs the recipient service.
func NewRecipientService(repo recipientRepository, validate *validator.Validate, logger *zap.Logger) *RecipientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipientService{repo: repo, validator: validate, logger: logger}
}

// List returns all recipients.
func (s *RecipientService) List(ctx context.Context) ([]models.Recipient, error) {
	recipients, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recipients")
	}
	return recipients, nil
}

// Get returns a recipient by ID.
func (s *RecipientService) Get(ctx context.Context, id string) (*models.Recipient, error) {
	recipient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}
	return recipient, nil
}

// Create registers a new recipient. Emails are unique across recipients
// because hospital accounts are matched to recipients by email.
func (s *RecipientService) Create(ctx context.Context, req RecipientRequest) (*models.Recipient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recipient payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "recipient email already used")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	recipient := &models.Recipient{
		Name:    req.Name,
		Email:   email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := s.repo.Create(ctx, recipient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create recipient")
	}
	return recipient, nil
}

// Update modifies an existing recipient.
func (s *RecipientService) Update(ctx context.Context, id string, req RecipientRequest) (*models.Recipient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recipient payload")
	}

	recipient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != recipient.Email {
		if other, err := s.repo.FindByEmail(ctx, email); err == nil && other.ID != recipient.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "recipient email already used")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
	}

	recipient.Name = req.Name
	recipient.Email = email
	recipient.Phone = req.Phone
	recipient.Address = req.Address

	if err := s.repo.Update(ctx, recipient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update recipient")
	}
	return recipient, nil
}

// Delete removes a recipient.
func (s *RecipientService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete recipient")
	}
	return nil
}
