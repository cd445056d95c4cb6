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
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type requestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, error)
	FindByID(ctx context.Context, id string) (*models.BloodRequest, error)
	Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.BloodRequest, error)
	Create(ctx context.Context, q sqlx.ExtContext, request *models.BloodRequest) error
	SetStatus(ctx context.Context, q sqlx.ExtContext, request *models.BloodRequest) error
}

type requestRecipientRepository interface {
	FindByID(ctx context.Context, id string) (*models.Recipient, error)
	FindByEmail(ctx context.Context, email string) (*models.Recipient, error)
}

// CreateRequestRequest describes payload for raising a blood request.
type CreateRequestRequest struct {
	RecipientID string    `json:"recipient_id"`
	BankID      string    `json:"bank_id" validate:"required"`
	BloodGroup  string    `json:"blood_group" validate:"required"`
	Units       int       `json:"units_requested" validate:"required,gt=0"`
	RequiredBy  time.Time `json:"required_by" validate:"required"`
	Purpose     string    `json:"purpose"`
	Notes       string    `json:"notes"`
}

// UpdateRequestStatusRequest describes a request status change.
type UpdateRequestStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// RequestService owns the blood request lifecycle. Approval reserves
// inventory, rejection and reopening of an approved request release it, and
// fulfillment hands the reserved units out.
type RequestService struct {
	tx         txRunner
	requests   requestRepository
	recipients requestRecipientRepository
	banks      donationBankRepository
	inventory  inventoryLedger
	recorder   activityRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewRequestService creates a new blood request service instance.
func NewRequestService(tx txRunner, requests requestRepository, recipients requestRecipientRepository, banks donationBankRepository, inventory inventoryLedger, recorder activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		tx:         tx,
		requests:   requests,
		recipients: recipients,
		banks:      banks,
		inventory:  inventory,
		recorder:   recorder,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// List returns blood requests matching the filter. Unless the filter names a
// status or asks for everything, only active requests are returned.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, error) {
	if filter.Status != "" && !models.RequestStatus(filter.Status).IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid request status %q", filter.Status))
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blood requests")
	}
	return requests, nil
}

// Get returns a blood request by ID.
func (s *RequestService) Get(ctx context.Context, id string) (*models.BloodRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blood request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blood request")
	}
	return request, nil
}

// resolveRecipient resolves the recipient for a new request. Hospital users
// may omit recipient_id, in which case the recipient registered under their
// account email is used.
func (s *RequestService) resolveRecipient(ctx context.Context, req CreateRequestRequest, actor *models.JWTClaims) (*models.Recipient, error) {
	if req.RecipientID != "" {
		recipient, err := s.recipients.FindByID(ctx, req.RecipientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
		}
		return recipient, nil
	}
	if actor == nil || actor.Email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient_id is required")
	}
	recipient, err := s.recipients.FindByEmail(ctx, actor.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no recipient registered for this account; provide recipient_id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}
	return recipient, nil
}

// Create raises a new blood request in pending status. No inventory is
// touched until the request is approved.
func (s *RequestService) Create(ctx context.Context, req CreateRequestRequest, actor *models.JWTClaims) (*models.BloodRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	group := models.NormalizeBloodGroup(req.BloodGroup)
	if !group.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid blood group %q", req.BloodGroup))
	}
	if !req.RequiredBy.After(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrRequiredDateInPast, "required_by must be in the future")
	}

	recipient, err := s.resolveRecipient(ctx, req, actor)
	if err != nil {
		return nil, err
	}

	request := &models.BloodRequest{
		RecipientID:    recipient.ID,
		BankID:         req.BankID,
		BloodGroup:     group,
		UnitsRequested: req.Units,
		RequiredBy:     req.RequiredBy.UTC(),
		Purpose:        req.Purpose,
		Notes:          req.Notes,
		Status:         models.RequestPending,
	}

	err = s.tx.RunTx(ctx, func(q sqlx.ExtContext) error {
		exists, err := s.banks.Exists(ctx, q, req.BankID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check bank")
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, "blood bank not found")
		}
		if err := s.requests.Create(ctx, q, request); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blood request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.Record(actor, models.ActivityRequestCreate,
			fmt.Sprintf("Requested %d units %s", request.UnitsRequested, request.BloodGroup),
			map[string]interface{}{
				"request_id":   request.ID,
				"recipient_id": request.RecipientID,
				"bank_id":      request.BankID,
				"units":        request.UnitsRequested,
			})
	}

	return request, nil
}

// UpdateStatus moves a blood request through its lifecycle. Approving
// deducts the requested units from inventory, moving an approved request back
// to pending or rejected returns them, and fulfilling stamps the fulfillment
// date. Setting the current status again only refreshes the notes.
func (s *RequestService) UpdateStatus(ctx context.Context, id string, req UpdateRequestStatusRequest, actor *models.JWTClaims) (*models.BloodRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status := models.RequestStatus(req.Status)
	if !status.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid request status %q", req.Status))
	}

	var request *models.BloodRequest
	var from models.RequestStatus
	inventoryDelta := 0

	err := s.tx.RunTx(ctx, func(q sqlx.ExtContext) error {
		var err error
		request, err = s.requests.Lock(ctx, q, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "blood request not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blood request")
		}
		from = request.Status
		inventoryDelta = 0

		if status == from {
			request.Notes = req.Notes
			if err := s.requests.SetStatus(ctx, q, request); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blood request")
			}
			return nil
		}
		if from.IsTerminal() {
			return appErrors.Clone(appErrors.ErrTerminalRequestStatus, fmt.Sprintf("request is already %s and cannot change status", from))
		}

		switch status {
		case models.RequestApproved:
			if from != models.RequestPending {
				return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot approve a %s request", from))
			}
			ok, err := s.inventory.Deduct(ctx, q, request.BankID, request.BloodGroup, request.UnitsRequested)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory")
			}
			if !ok {
				current := 0
				if units, err := s.inventory.Available(ctx, q, request.BankID, request.BloodGroup); err == nil {
					current = units
				}
				return appErrors.Clone(appErrors.ErrInsufficientInventory, fmt.Sprintf("Insufficient units available: current %d, requested %d", current, request.UnitsRequested))
			}
			inventoryDelta = -request.UnitsRequested
			if actor != nil {
				request.ApprovedBy = &actor.UserID
			}
		case models.RequestPending, models.RequestRejected:
			if from == models.RequestApproved {
				if err := s.inventory.Add(ctx, q, request.BankID, request.BloodGroup, request.UnitsRequested); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory")
				}
				inventoryDelta = request.UnitsRequested
			}
			if status == models.RequestPending {
				request.ApprovedBy = nil
			}
		case models.RequestFulfilled:
			if from != models.RequestApproved {
				return appErrors.Clone(appErrors.ErrInvalidTransition, "only an approved request can be fulfilled")
			}
			now := time.Now().UTC()
			request.FulfillmentDate = &now
		}

		request.Status = status
		request.Notes = req.Notes
		if err := s.requests.SetStatus(ctx, q, request); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blood request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil && inventoryDelta != 0 {
		direction := "out"
		units := -inventoryDelta
		if inventoryDelta > 0 {
			direction = "in"
			units = inventoryDelta
		}
		s.metrics.ObserveInventoryChange(request.BankID, string(request.BloodGroup), units, direction)
	}
	if s.recorder != nil && from != status {
		s.recorder.Record(actor, models.ActivityRequestStatus,
			fmt.Sprintf("Request status changed from %s to %s", from, status),
			map[string]interface{}{
				"request_id": request.ID,
				"old_status": string(from),
				"new_status": string(status),
				"units":      request.UnitsRequested,
			})
	}

	return request, nil
}
