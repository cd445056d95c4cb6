package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/config"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

// txRunner executes a function inside a database transaction, passing the
// transaction handle explicitly to repository calls.
type txRunner interface {
	RunTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error
}

// activityRecorder appends best-effort audit entries.
type activityRecorder interface {
	Record(actor *models.JWTClaims, activityType, description string, details map[string]interface{})
}

type donationRepository interface {
	List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error)
	FindByID(ctx context.Context, id string) (*models.Donation, error)
	Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.Donation, error)
	Create(ctx context.Context, q sqlx.ExtContext, donation *models.Donation) error
	SetStatus(ctx context.Context, q sqlx.ExtContext, id string, status models.DonationStatus) error
}

type donationDonorRepository interface {
	Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.Donor, error)
	SetLastDonationDate(ctx context.Context, q sqlx.ExtContext, id string, date time.Time) error
}

type donationBankRepository interface {
	Exists(ctx context.Context, q sqlx.ExtContext, id string) (bool, error)
}

type inventoryLedger interface {
	Available(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup) (int, error)
	Add(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) error
	Deduct(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) (bool, error)
}

// CreateDonationRequest describes payload for recording a donation.
type CreateDonationRequest struct {
	DonorID      string    `json:"donor_id" validate:"required"`
	BankID       string    `json:"bank_id" validate:"required"`
	BloodGroup   string    `json:"blood_group" validate:"required"`
	Units        int       `json:"units" validate:"required,gt=0"`
	DonationDate time.Time `json:"donation_date" validate:"required"`
}

// DonationService owns donation creation and the donation status state
// machine together with its inventory side effects.
type DonationService struct {
	tx        txRunner
	donations donationRepository
	donors    donationDonorRepository
	banks     donationBankRepository
	inventory inventoryLedger
	recorder  activityRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.InventoryConfig
}

// NewDonationService creates a new donation service instance.
func NewDonationService(tx txRunner, donations donationRepository, donors donationDonorRepository, banks donationBankRepository, inventory inventoryLedger, recorder activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg config.InventoryConfig) *DonationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShelfLifeDays <= 0 {
		cfg.ShelfLifeDays = 42
	}
	if cfg.DonorCooldownDays <= 0 {
		cfg.DonorCooldownDays = 56
	}
	return &DonationService{
		tx:        tx,
		donations: donations,
		donors:    donors,
		banks:     banks,
		inventory: inventory,
		recorder:  recorder,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns donations matching the filter.
func (s *DonationService) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	donations, err := s.donations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donations")
	}
	return donations, nil
}

// Get returns a donation by ID.
func (s *DonationService) Get(ctx context.Context, id string) (*models.Donation, error) {
	donation, err := s.donations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donation")
	}
	return donation, nil
}

// Create records a donation after donor eligibility checks, incrementing the
// bank's inventory in the same transaction.
func (s *DonationService) Create(ctx context.Context, req CreateDonationRequest, actor *models.JWTClaims) (*models.Donation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid donation payload")
	}
	group := models.NormalizeBloodGroup(req.BloodGroup)
	if !group.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid blood group %q", req.BloodGroup))
	}

	donation := &models.Donation{
		DonorID:      req.DonorID,
		BankID:       req.BankID,
		BloodGroup:   group,
		Units:        req.Units,
		DonationDate: req.DonationDate.UTC(),
		ExpiryDate:   req.DonationDate.UTC().AddDate(0, 0, s.cfg.ShelfLifeDays),
		Status:       models.DonationValid,
	}

	err := s.tx.RunTx(ctx, func(q sqlx.ExtContext) error {
		donor, err := s.donors.Lock(ctx, q, req.DonorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "donor not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
		}

		exists, err := s.banks.Exists(ctx, q, req.BankID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check bank")
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, "blood bank not found")
		}

		if models.NormalizeBloodGroup(string(donor.BloodGroup)) != group {
			return appErrors.Clone(appErrors.ErrBloodGroupMismatch, fmt.Sprintf("donor blood group is %s, not %s", donor.BloodGroup, group))
		}
		if donor.HealthStatus == models.HealthStatusNotEligible {
			return appErrors.Clone(appErrors.ErrDonorIneligible, "donor health status is Not Eligible")
		}
		if donor.LastDonationDate != nil {
			gapDays := int(donation.DonationDate.Sub(donor.LastDonationDate.UTC()).Hours() / 24)
			if gapDays < s.cfg.DonorCooldownDays {
				return appErrors.Clone(appErrors.ErrDonorIneligible, fmt.Sprintf("donor last donated %d days ago; %d days are required between donations", gapDays, s.cfg.DonorCooldownDays))
			}
		}

		if err := s.donations.Create(ctx, q, donation); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create donation")
		}
		if err := s.donors.SetLastDonationDate(ctx, q, donor.ID, donation.DonationDate); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update donor")
		}
		if err := s.inventory.Add(ctx, q, donation.BankID, donation.BloodGroup, donation.Units); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveInventoryChange(donation.BankID, string(donation.BloodGroup), donation.Units, "in")
	}
	if s.recorder != nil {
		s.recorder.Record(actor, models.ActivityDonationCreate,
			fmt.Sprintf("Recorded donation of %d units %s", donation.Units, donation.BloodGroup),
			map[string]interface{}{
				"donation_id": donation.ID,
				"donor_id":    donation.DonorID,
				"bank_id":     donation.BankID,
				"units":       donation.Units,
			})
	}

	return donation, nil
}

// UpdateStatus applies one donation status transition together with its
// signed inventory delta. Status and counter are never updated independently
// of each other.
func (s *DonationService) UpdateStatus(ctx context.Context, id, newStatus string, actor *models.JWTClaims) (*models.Donation, error) {
	status := models.DonationStatus(newStatus)
	if !status.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid donation status %q", newStatus))
	}

	var donation *models.Donation
	var from models.DonationStatus

	err := s.tx.RunTx(ctx, func(q sqlx.ExtContext) error {
		var err error
		donation, err = s.donations.Lock(ctx, q, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "donation not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donation")
		}
		from = donation.Status

		sign, err := models.DonationTransitionSign(from, status)
		if err != nil {
			return appErrors.Clone(appErrors.ErrInvalidTransition, err.Error())
		}

		if sign < 0 {
			ok, err := s.inventory.Deduct(ctx, q, donation.BankID, donation.BloodGroup, donation.Units)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory")
			}
			if !ok {
				current := 0
				if units, err := s.inventory.Available(ctx, q, donation.BankID, donation.BloodGroup); err == nil {
					current = units
				}
				return appErrors.Clone(appErrors.ErrInsufficientInventory, fmt.Sprintf("Insufficient units available: current %d, requested %d", current, donation.Units))
			}
		} else {
			if err := s.inventory.Add(ctx, q, donation.BankID, donation.BloodGroup, donation.Units); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory")
			}
		}

		if err := s.donations.SetStatus(ctx, q, donation.ID, status); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update donation status")
		}
		donation.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		direction := "out"
		if status == models.DonationValid {
			direction = "in"
		}
		s.metrics.ObserveInventoryChange(donation.BankID, string(donation.BloodGroup), donation.Units, direction)
	}
	if s.recorder != nil {
		s.recorder.Record(actor, models.ActivityDonationStatus,
			fmt.Sprintf("Donation status changed from %s to %s", from, status),
			map[string]interface{}{
				"donation_id": donation.ID,
				"old_status":  string(from),
				"new_status":  string(status),
				"units":       donation.Units,
			})
	}

	return donation, nil
}
