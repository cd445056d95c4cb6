package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type donorRepository interface {
	List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, error)
	FindByID(ctx context.Context, id string) (*models.Donor, error)
	Create(ctx context.Context, donor *models.Donor) error
	Update(ctx context.Context, donor *models.Donor) error
	Delete(ctx context.Context, id string) error
}

// CreateDonorRequest holds payload for registering donors.
type CreateDonorRequest struct {
	FullName     string     `json:"name" validate:"required"`
	Email        string     `json:"email" validate:"required,email"`
	Phone        string     `json:"phone"`
	BloodGroup   string     `json:"blood_group" validate:"required"`
	HealthStatus string     `json:"health_status"`
	LastDonation *time.Time `json:"last_donation_date"`
}

// UpdateDonorRequest holds payload for updating donors.
type UpdateDonorRequest struct {
	FullName     string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	BloodGroup   string `json:"blood_group" validate:"required"`
	HealthStatus string `json:"health_status" validate:"required"`
}

// DonorService handles donor use-cases.
type DonorService struct {
	repo      donorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDonorService constructs the donor service.
func NewDonorService(repo donorRepository, validate *validator.Validate, logger *zap.Logger) *DonorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonorService{repo: repo, validator: validate, logger: logger}
}

// List returns donors matching the filter.
func (s *DonorService) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, error) {
	if filter.BloodGroup != "" {
		group := models.NormalizeBloodGroup(filter.BloodGroup)
		if !group.IsValid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid blood group %q", filter.BloodGroup))
		}
		filter.BloodGroup = string(group)
	}
	donors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donors")
	}
	return donors, nil
}

// Get returns a donor by ID.
func (s *DonorService) Get(ctx context.Context, id string) (*models.Donor, error) {
	donor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
	}
	return donor, nil
}

// Create registers a new donor.
func (s *DonorService) Create(ctx context.Context, req CreateDonorRequest) (*models.Donor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid donor payload")
	}
	group := models.NormalizeBloodGroup(req.BloodGroup)
	if !group.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid blood group %q", req.BloodGroup))
	}
	healthStatus := req.HealthStatus
	if healthStatus == "" {
		healthStatus = models.HealthStatusEligible
	}
	if healthStatus != models.HealthStatusEligible && healthStatus != models.HealthStatusNotEligible {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid health status %q", req.HealthStatus))
	}

	donor := &models.Donor{
		FullName:         req.FullName,
		Email:            req.Email,
		Phone:            req.Phone,
		BloodGroup:       group,
		HealthStatus:     healthStatus,
		LastDonationDate: req.LastDonation,
	}
	if err := s.repo.Create(ctx, donor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create donor")
	}
	return donor, nil
}

// Update modifies an existing donor's profile. The last donation date is
// owned by the donation flow and is not updatable here.
func (s *DonorService) Update(ctx context.Context, id string, req UpdateDonorRequest) (*models.Donor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid donor payload")
	}
	group := models.NormalizeBloodGroup(req.BloodGroup)
	if !group.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid blood group %q", req.BloodGroup))
	}
	if req.HealthStatus != models.HealthStatusEligible && req.HealthStatus != models.HealthStatusNotEligible {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid health status %q", req.HealthStatus))
	}

	donor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
	}

	donor.FullName = req.FullName
	donor.Email = req.Email
	donor.Phone = req.Phone
	donor.BloodGroup = group
	donor.HealthStatus = req.HealthStatus

	if err := s.repo.Update(ctx, donor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update donor")
	}
	return donor, nil
}

// Delete removes a donor.
func (s *DonorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "donor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete donor")
	}
	return nil
}
