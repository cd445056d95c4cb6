package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type mockRequestRepo struct {
	requests map[string]models.BloodRequest
	created  *models.BloodRequest
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, error) {
	var list []models.BloodRequest
	for _, r := range m.requests {
		list = append(list, r)
	}
	return list, nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.BloodRequest, error) {
	return m.FindByID(ctx, id)
}

func (m *mockRequestRepo) Create(ctx context.Context, q sqlx.ExtContext, request *models.BloodRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]models.BloodRequest)
	}
	if request.ID == "" {
		request.ID = "new-request"
	}
	m.requests[request.ID] = *request
	m.created = request
	return nil
}

func (m *mockRequestRepo) SetStatus(ctx context.Context, q sqlx.ExtContext, request *models.BloodRequest) error {
	m.requests[request.ID] = *request
	return nil
}

type mockRecipientRepo struct {
	recipients map[string]models.Recipient
}

func (m *mockRecipientRepo) FindByID(ctx context.Context, id string) (*models.Recipient, error) {
	if r, ok := m.recipients[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRecipientRepo) FindByEmail(ctx context.Context, email string) (*models.Recipient, error) {
	for _, r := range m.recipients {
		if r.Email == email {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newRequestService(requests *mockRequestRepo, recipients *mockRecipientRepo, banks *mockBankRepo, inventory *mockInventory) *RequestService {
	return NewRequestService(&mockTx{}, requests, recipients, banks, inventory, nil, nil, nil, nil)
}

func pendingRequest(id string, units int) models.BloodRequest {
	return models.BloodRequest{
		ID:             id,
		RecipientID:    "r1",
		BankID:         "b1",
		BloodGroup:     models.BloodGroupONeg,
		UnitsRequested: units,
		Status:         models.RequestPending,
	}
}

func TestCreateRequestStaysOutOfInventory(t *testing.T) {
	requests := &mockRequestRepo{}
	recipients := &mockRecipientRepo{recipients: map[string]models.Recipient{
		"r1": {ID: "r1", Email: "recipient@example.com"},
	}}
	banks := &mockBankRepo{banks: map[string]bool{"b1": true}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupONeg): 4}}
	svc := newRequestService(requests, recipients, banks, inventory)

	request, err := svc.Create(context.Background(), CreateRequestRequest{
		RecipientID: "r1",
		BankID:      "b1",
		BloodGroup:  "o-",
		Units:       2,
		RequiredBy:  time.Now().Add(48 * time.Hour),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, request.Status)
	assert.Equal(t, models.BloodGroupONeg, request.BloodGroup)
	assert.Equal(t, 4, inventory.units[invKey("b1", models.BloodGroupONeg)])
}

func TestCreateRequestRequiredByInPast(t *testing.T) {
	svc := newRequestService(&mockRequestRepo{}, &mockRecipientRepo{}, &mockBankRepo{}, &mockInventory{})

	_, err := svc.Create(context.Background(), CreateRequestRequest{
		RecipientID: "r1",
		BankID:      "b1",
		BloodGroup:  "O-",
		Units:       2,
		RequiredBy:  time.Now().Add(-time.Hour),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRequiredDateInPast.Code, appErrors.FromError(err).Code)
}

func TestCreateRequestResolvesRecipientFromActorEmail(t *testing.T) {
	requests := &mockRequestRepo{}
	recipients := &mockRecipientRepo{recipients: map[string]models.Recipient{
		"r1": {ID: "r1", Email: "hospital@example.com"},
	}}
	banks := &mockBankRepo{banks: map[string]bool{"b1": true}}
	svc := newRequestService(requests, recipients, banks, &mockInventory{})

	actor := &models.JWTClaims{UserID: "u1", Email: "hospital@example.com", Role: models.RoleHospital}
	request, err := svc.Create(context.Background(), CreateRequestRequest{
		BankID:     "b1",
		BloodGroup: "O-",
		Units:      1,
		RequiredBy: time.Now().Add(24 * time.Hour),
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, "r1", request.RecipientID)
}

func TestApproveRequestDeductsInventory(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{
		"req-1": pendingRequest("req-1", 3),
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupONeg): 5}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, inventory)

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	request, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "approved"}, actor)
	require.NoError(t, err)

	assert.Equal(t, models.RequestApproved, request.Status)
	require.NotNil(t, request.ApprovedBy)
	assert.Equal(t, "admin-1", *request.ApprovedBy)
	assert.Equal(t, 2, inventory.units[invKey("b1", models.BloodGroupONeg)])
}

func TestApproveRequestInsufficientInventory(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{
		"req-1": pendingRequest("req-1", 5),
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupONeg): 2}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, inventory)

	_, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "approved"}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInsufficientInventory.Code, appErr.Code)
	assert.Equal(t, "Insufficient units available: current 2, requested 5", appErr.Message)
	assert.Equal(t, models.RequestPending, requests.requests["req-1"].Status)
}

func TestRejectApprovedRequestReturnsUnits(t *testing.T) {
	request := pendingRequest("req-1", 3)
	request.Status = models.RequestApproved
	approver := "admin-1"
	request.ApprovedBy = &approver

	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{"req-1": request}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupONeg): 2}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, inventory)

	updated, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "rejected", Notes: "duplicate request"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RequestRejected, updated.Status)
	assert.Equal(t, "duplicate request", updated.Notes)
	assert.Equal(t, 5, inventory.units[invKey("b1", models.BloodGroupONeg)])
}

func TestReopenApprovedRequestClearsApprover(t *testing.T) {
	request := pendingRequest("req-1", 3)
	request.Status = models.RequestApproved
	approver := "admin-1"
	request.ApprovedBy = &approver

	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{"req-1": request}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupONeg): 0}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, inventory)

	updated, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "pending"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, updated.Status)
	assert.Nil(t, updated.ApprovedBy)
	assert.Equal(t, 3, inventory.units[invKey("b1", models.BloodGroupONeg)])
}

func TestFulfillApprovedRequestStampsDate(t *testing.T) {
	request := pendingRequest("req-1", 3)
	request.Status = models.RequestApproved

	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{"req-1": request}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupONeg): 7}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, inventory)

	updated, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "fulfilled"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RequestFulfilled, updated.Status)
	require.NotNil(t, updated.FulfillmentDate)
	assert.WithinDuration(t, time.Now().UTC(), *updated.FulfillmentDate, time.Minute)
	assert.Equal(t, 7, inventory.units[invKey("b1", models.BloodGroupONeg)])
}

func TestFulfillPendingRequestRejected(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{
		"req-1": pendingRequest("req-1", 3),
	}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, &mockInventory{})

	_, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "fulfilled"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestTerminalRequestCannotChangeStatus(t *testing.T) {
	request := pendingRequest("req-1", 3)
	request.Status = models.RequestRejected

	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{"req-1": request}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, &mockInventory{})

	_, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "approved"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTerminalRequestStatus.Code, appErrors.FromError(err).Code)
}

func TestSameStatusUpdatesNotesOnly(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]models.BloodRequest{
		"req-1": pendingRequest("req-1", 3),
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupONeg): 4}}
	svc := newRequestService(requests, &mockRecipientRepo{}, &mockBankRepo{}, inventory)

	updated, err := svc.UpdateStatus(context.Background(), "req-1", UpdateRequestStatusRequest{Status: "pending", Notes: "awaiting stock"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, updated.Status)
	assert.Equal(t, "awaiting stock", updated.Notes)
	assert.Equal(t, 4, inventory.units[invKey("b1", models.BloodGroupONeg)])
}
