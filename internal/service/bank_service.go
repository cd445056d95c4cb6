package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type bankRepository interface {
	List(ctx context.Context) ([]models.BloodBank, error)
	FindByID(ctx context.Context, id string) (*models.BloodBank, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, bank *models.BloodBank) error
	Update(ctx context.Context, bank *models.BloodBank) error
	Delete(ctx context.Context, id string) error
}

// BankRequest holds payload for creating and updating blood banks.
type BankRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
	Phone    string `json:"phone"`
}

// BankService handles blood bank use-cases.
type BankService struct {
	repo      bankRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBankService constructs the blood bank service.
func NewBankService(repo bankRepository, validate *validator.Validate, logger *zap.Logger) *BankService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankService{repo: repo, validator: validate, logger: logger}
}

// List returns all blood banks.
func (s *BankService) List(ctx context.Context) ([]models.BloodBank, error) {
	banks, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blood banks")
	}
	return banks, nil
}

// Get returns a blood bank by ID.
func (s *BankService) Get(ctx context.Context, id string) (*models.BloodBank, error) {
	bank, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blood bank not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blood bank")
	}
	return bank, nil
}

// Create registers a new blood bank.
func (s *BankService) Create(ctx context.Context, req BankRequest) (*models.BloodBank, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bank payload")
	}
	exists, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate bank name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "bank name already used")
	}

	bank := &models.BloodBank{
		Name:     req.Name,
		Location: req.Location,
		Phone:    req.Phone,
	}
	if err := s.repo.Create(ctx, bank); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blood bank")
	}
	return bank, nil
}

// Update modifies an existing blood bank.
func (s *BankService) Update(ctx context.Context, id string, req BankRequest) (*models.BloodBank, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bank payload")
	}

	bank, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blood bank not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blood bank")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, bank.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate bank name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "bank name already used")
	}

	bank.Name = req.Name
	bank.Location = req.Location
	bank.Phone = req.Phone

	if err := s.repo.Update(ctx, bank); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blood bank")
	}
	return bank, nil
}

// Delete removes a blood bank.
func (s *BankService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "blood bank not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete blood bank")
	}
	return nil
}
