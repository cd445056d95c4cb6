package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/config"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/export"
)

type inventoryRepository interface {
	inventoryLedger
	List(ctx context.Context) ([]models.InventoryRecord, error)
	ListByGroup(ctx context.Context, group models.BloodGroup) ([]models.InventoryRecord, error)
	ExpiringDonations(ctx context.Context, within time.Duration) ([]models.ExpiringDonation, error)
}

// AdjustInventoryRequest describes a manual stock correction.
type AdjustInventoryRequest struct {
	BankID     string `json:"bank_id" validate:"required"`
	BloodGroup string `json:"blood_group" validate:"required"`
	Units      int    `json:"units" validate:"required,gt=0"`
	Operation  string `json:"operation" validate:"required"`
}

// InventoryService exposes stock views, manual corrections and report
// exports.
type InventoryService struct {
	tx        txRunner
	inventory inventoryRepository
	banks     donationBankRepository
	recorder  activityRecorder
	metrics   *MetricsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.InventoryConfig
}

// NewInventoryService creates a new inventory service instance.
func NewInventoryService(tx txRunner, inventory inventoryRepository, banks donationBankRepository, recorder activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg config.InventoryConfig) *InventoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExpiringWindowDays <= 0 {
		cfg.ExpiringWindowDays = 7
	}
	return &InventoryService{
		tx:        tx,
		inventory: inventory,
		banks:     banks,
		recorder:  recorder,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns all inventory rows across banks.
func (s *InventoryService) List(ctx context.Context) ([]models.InventoryRecord, error) {
	records, err := s.inventory.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inventory")
	}
	return records, nil
}

// ListByGroup returns inventory rows for one blood group across banks.
func (s *InventoryService) ListByGroup(ctx context.Context, rawGroup string) ([]models.InventoryRecord, error) {
	group := models.NormalizeBloodGroup(rawGroup)
	if !group.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid blood group %q", rawGroup))
	}
	records, err := s.inventory.ListByGroup(ctx, group)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inventory")
	}
	return records, nil
}

// Expiring returns valid donations expiring within the given number of days.
// A non-positive value falls back to the configured default window.
func (s *InventoryService) Expiring(ctx context.Context, days int) ([]models.ExpiringDonation, error) {
	if days <= 0 {
		days = s.cfg.ExpiringWindowDays
	}
	donations, err := s.inventory.ExpiringDonations(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expiring donations")
	}
	return donations, nil
}

// Adjust applies a manual stock correction. Subtractions are refused when
// they would take the counter below zero.
func (s *InventoryService) Adjust(ctx context.Context, req AdjustInventoryRequest, actor *models.JWTClaims) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inventory payload")
	}
	group := models.NormalizeBloodGroup(req.BloodGroup)
	if !group.IsValid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid blood group %q", req.BloodGroup))
	}
	op := models.InventoryOperation(req.Operation)
	if !op.IsValid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid operation %q, expected add or subtract", req.Operation))
	}

	err := s.tx.RunTx(ctx, func(q sqlx.ExtContext) error {
		exists, err := s.banks.Exists(ctx, q, req.BankID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check bank")
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, "blood bank not found")
		}

		if op == models.InventoryAdd {
			if err := s.inventory.Add(ctx, q, req.BankID, group, req.Units); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory")
			}
			return nil
		}

		ok, err := s.inventory.Deduct(ctx, q, req.BankID, group, req.Units)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInsufficientInventory, fmt.Sprintf("Insufficient units available: current 0, requested %d", req.Units))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory")
		}
		if !ok {
			current := 0
			if units, err := s.inventory.Available(ctx, q, req.BankID, group); err == nil {
				current = units
			}
			return appErrors.Clone(appErrors.ErrInsufficientInventory, fmt.Sprintf("Insufficient units available: current %d, requested %d", current, req.Units))
		}
		return nil
	})
	if err != nil {
		return err
	}

	direction := "in"
	if op == models.InventorySubtract {
		direction = "out"
	}
	if s.metrics != nil {
		s.metrics.ObserveInventoryChange(req.BankID, string(group), req.Units, direction)
	}
	if s.recorder != nil {
		s.recorder.Record(actor, models.ActivityInventoryUpdate,
			fmt.Sprintf("Manually adjusted inventory: %s %d units %s", op, req.Units, group),
			map[string]interface{}{
				"bank_id":     req.BankID,
				"blood_group": string(group),
				"units":       req.Units,
				"operation":   string(op),
			})
	}
	return nil
}

// Report renders the current inventory as a downloadable CSV or PDF.
func (s *InventoryService) Report(ctx context.Context, format string) ([]byte, string, error) {
	records, err := s.inventory.List(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inventory")
	}

	data := export.Dataset{
		Headers: []string{"Bank", "Blood Group", "Available Units", "Updated At"},
	}
	for _, record := range records {
		data.Rows = append(data.Rows, map[string]string{
			"Bank":            record.BankName,
			"Blood Group":     string(record.BloodGroup),
			"Available Units": strconv.Itoa(record.AvailableUnits),
			"Updated At":      record.UpdatedAt.Format(time.RFC3339),
		})
	}

	switch format {
	case "", "csv":
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.Render(data, "Blood Inventory Report")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
}
