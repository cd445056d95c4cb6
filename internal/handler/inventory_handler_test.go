package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/service"
	"github.com/noah-isme/bloodbank-api/pkg/config"
)

type fakeTx struct{}

func (f *fakeTx) RunTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	return fn(nil)
}

type fakeInventoryRepo struct {
	records []models.InventoryRecord
	units   map[string]int
}

func (f *fakeInventoryRepo) List(ctx context.Context) ([]models.InventoryRecord, error) {
	return f.records, nil
}

func (f *fakeInventoryRepo) ListByGroup(ctx context.Context, group models.BloodGroup) ([]models.InventoryRecord, error) {
	var out []models.InventoryRecord
	for _, r := range f.records {
		if r.BloodGroup == group {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) ExpiringDonations(ctx context.Context, within time.Duration) ([]models.ExpiringDonation, error) {
	return nil, nil
}

func (f *fakeInventoryRepo) Available(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup) (int, error) {
	units, ok := f.units[bankID+"|"+string(group)]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return units, nil
}

func (f *fakeInventoryRepo) Add(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) error {
	if f.units == nil {
		f.units = make(map[string]int)
	}
	f.units[bankID+"|"+string(group)] += units
	return nil
}

func (f *fakeInventoryRepo) Deduct(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) (bool, error) {
	current := f.units[bankID+"|"+string(group)]
	if current < units {
		return false, nil
	}
	f.units[bankID+"|"+string(group)] = current - units
	return true, nil
}

type fakeBankRepo struct {
	banks map[string]bool
}

func (f *fakeBankRepo) Exists(ctx context.Context, q sqlx.ExtContext, id string) (bool, error) {
	return f.banks[id], nil
}

func newInventoryHandler(repo *fakeInventoryRepo, banks *fakeBankRepo) *InventoryHandler {
	svc := service.NewInventoryService(&fakeTx{}, repo, banks, nil, nil, nil, nil, config.InventoryConfig{})
	return NewInventoryHandler(svc)
}

func TestInventoryHandlerExpiringRejectsBadDays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newInventoryHandler(&fakeInventoryRepo{}, &fakeBankRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/inventory/expiring?days=soon", nil)

	handler.Expiring(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryHandlerAdjustRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newInventoryHandler(&fakeInventoryRepo{}, &fakeBankRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/inventory/update", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Adjust(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryHandlerAdjustSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeInventoryRepo{units: map[string]int{"b1|A+": 3}}
	handler := newInventoryHandler(repo, &fakeBankRepo{banks: map[string]bool{"b1": true}})

	body := `{"bank_id":"b1","blood_group":"A+","units":2,"operation":"add"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/inventory/update", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Adjust(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, repo.units["b1|A+"])

	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "inventory updated", envelope.Message)
}

func TestInventoryHandlerListByGroupRejectsUnknownGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newInventoryHandler(&fakeInventoryRepo{}, &fakeBankRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/inventory/blood-group/XY", nil)
	c.Params = gin.Params{{Key: "group", Value: "XY"}}

	handler.ListByGroup(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryHandlerReportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeInventoryRepo{records: []models.InventoryRecord{
		{BankID: "b1", BankName: "Central Bank", BloodGroup: models.BloodGroupAPos, AvailableUnits: 4, UpdatedAt: time.Now().UTC()},
	}}
	handler := newInventoryHandler(repo, &fakeBankRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/inventory/report", nil)

	handler.Report(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Central Bank,A+,4")
}
