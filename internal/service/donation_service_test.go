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
	"github.com/noah-isme/bloodbank-api/pkg/config"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type mockTx struct{}

func (m *mockTx) RunTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	return fn(nil)
}

type mockDonationRepo struct {
	donations map[string]models.Donation
	statuses  map[string]models.DonationStatus
	created   *models.Donation
}

func (m *mockDonationRepo) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	var list []models.Donation
	for _, d := range m.donations {
		list = append(list, d)
	}
	return list, nil
}

func (m *mockDonationRepo) FindByID(ctx context.Context, id string) (*models.Donation, error) {
	if d, ok := m.donations[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDonationRepo) Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.Donation, error) {
	return m.FindByID(ctx, id)
}

func (m *mockDonationRepo) Create(ctx context.Context, q sqlx.ExtContext, donation *models.Donation) error {
	if m.donations == nil {
		m.donations = make(map[string]models.Donation)
	}
	if donation.ID == "" {
		donation.ID = "new-donation"
	}
	m.donations[donation.ID] = *donation
	m.created = donation
	return nil
}

func (m *mockDonationRepo) SetStatus(ctx context.Context, q sqlx.ExtContext, id string, status models.DonationStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.DonationStatus)
	}
	m.statuses[id] = status
	if d, ok := m.donations[id]; ok {
		d.Status = status
		m.donations[id] = d
	}
	return nil
}

type mockDonorRepo struct {
	donors    map[string]models.Donor
	lastDates map[string]time.Time
}

func (m *mockDonorRepo) Lock(ctx context.Context, q sqlx.ExtContext, id string) (*models.Donor, error) {
	if d, ok := m.donors[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDonorRepo) SetLastDonationDate(ctx context.Context, q sqlx.ExtContext, id string, date time.Time) error {
	if m.lastDates == nil {
		m.lastDates = make(map[string]time.Time)
	}
	m.lastDates[id] = date
	return nil
}

type mockBankRepo struct {
	banks map[string]bool
}

func (m *mockBankRepo) Exists(ctx context.Context, q sqlx.ExtContext, id string) (bool, error) {
	return m.banks[id], nil
}

// mockInventory tracks units per bank/group pair and refuses deductions
// below zero, mirroring the guarded UPDATE.
type mockInventory struct {
	units map[string]int
}

func invKey(bankID string, group models.BloodGroup) string {
	return bankID + "|" + string(group)
}

func (m *mockInventory) Available(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup) (int, error) {
	units, ok := m.units[invKey(bankID, group)]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return units, nil
}

func (m *mockInventory) Add(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) error {
	if m.units == nil {
		m.units = make(map[string]int)
	}
	m.units[invKey(bankID, group)] += units
	return nil
}

func (m *mockInventory) Deduct(ctx context.Context, q sqlx.ExtContext, bankID string, group models.BloodGroup, units int) (bool, error) {
	current := m.units[invKey(bankID, group)]
	if current < units {
		return false, nil
	}
	m.units[invKey(bankID, group)] = current - units
	return true, nil
}

func newDonationService(donations *mockDonationRepo, donors *mockDonorRepo, banks *mockBankRepo, inventory *mockInventory) *DonationService {
	return NewDonationService(&mockTx{}, donations, donors, banks, inventory, nil, nil, nil, nil, config.InventoryConfig{
		ShelfLifeDays:     42,
		DonorCooldownDays: 56,
	})
}

func eligibleDonor(id string, group models.BloodGroup) models.Donor {
	return models.Donor{
		ID:           id,
		FullName:     "Jordan Blake",
		Email:        "jordan@example.com",
		BloodGroup:   group,
		HealthStatus: models.HealthStatusEligible,
	}
}

func TestCreateDonationAddsInventory(t *testing.T) {
	donations := &mockDonationRepo{}
	donors := &mockDonorRepo{donors: map[string]models.Donor{"d1": eligibleDonor("d1", models.BloodGroupAPos)}}
	banks := &mockBankRepo{banks: map[string]bool{"b1": true}}
	inventory := &mockInventory{}
	svc := newDonationService(donations, donors, banks, inventory)

	donationDate := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	donation, err := svc.Create(context.Background(), CreateDonationRequest{
		DonorID:      "d1",
		BankID:       "b1",
		BloodGroup:   "a+",
		Units:        3,
		DonationDate: donationDate,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DonationValid, donation.Status)
	assert.Equal(t, models.BloodGroupAPos, donation.BloodGroup)
	assert.Equal(t, donationDate.AddDate(0, 0, 42), donation.ExpiryDate)
	assert.Equal(t, 3, inventory.units[invKey("b1", models.BloodGroupAPos)])
	assert.Equal(t, donationDate, donors.lastDates["d1"])
}

func TestCreateDonationCooldownBoundary(t *testing.T) {
	donationDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		gapDays int
		wantErr bool
	}{
		{name: "one day short", gapDays: 55, wantErr: true},
		{name: "exactly at cooldown", gapDays: 56, wantErr: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			donor := eligibleDonor("d1", models.BloodGroupOPos)
			last := donationDate.AddDate(0, 0, -tc.gapDays)
			donor.LastDonationDate = &last

			donations := &mockDonationRepo{}
			donors := &mockDonorRepo{donors: map[string]models.Donor{"d1": donor}}
			banks := &mockBankRepo{banks: map[string]bool{"b1": true}}
			svc := newDonationService(donations, donors, banks, &mockInventory{})

			_, err := svc.Create(context.Background(), CreateDonationRequest{
				DonorID:      "d1",
				BankID:       "b1",
				BloodGroup:   "O+",
				Units:        1,
				DonationDate: donationDate,
			}, nil)

			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrDonorIneligible.Code, appErrors.FromError(err).Code)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateDonationBloodGroupMismatch(t *testing.T) {
	donations := &mockDonationRepo{}
	donors := &mockDonorRepo{donors: map[string]models.Donor{"d1": eligibleDonor("d1", models.BloodGroupAPos)}}
	banks := &mockBankRepo{banks: map[string]bool{"b1": true}}
	svc := newDonationService(donations, donors, banks, &mockInventory{})

	_, err := svc.Create(context.Background(), CreateDonationRequest{
		DonorID:      "d1",
		BankID:       "b1",
		BloodGroup:   "B+",
		Units:        1,
		DonationDate: time.Now().UTC(),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBloodGroupMismatch.Code, appErrors.FromError(err).Code)
}

func TestCreateDonationHealthNotEligible(t *testing.T) {
	donor := eligibleDonor("d1", models.BloodGroupAPos)
	donor.HealthStatus = models.HealthStatusNotEligible

	donations := &mockDonationRepo{}
	donors := &mockDonorRepo{donors: map[string]models.Donor{"d1": donor}}
	banks := &mockBankRepo{banks: map[string]bool{"b1": true}}
	svc := newDonationService(donations, donors, banks, &mockInventory{})

	_, err := svc.Create(context.Background(), CreateDonationRequest{
		DonorID:      "d1",
		BankID:       "b1",
		BloodGroup:   "A+",
		Units:        1,
		DonationDate: time.Now().UTC(),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDonorIneligible.Code, appErrors.FromError(err).Code)
}

func TestCreateDonationUnknownDonor(t *testing.T) {
	svc := newDonationService(&mockDonationRepo{}, &mockDonorRepo{}, &mockBankRepo{banks: map[string]bool{"b1": true}}, &mockInventory{})

	_, err := svc.Create(context.Background(), CreateDonationRequest{
		DonorID:      "ghost",
		BankID:       "b1",
		BloodGroup:   "A+",
		Units:        1,
		DonationDate: time.Now().UTC(),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateDonationStatusDeductsOnLeavingValid(t *testing.T) {
	donations := &mockDonationRepo{donations: map[string]models.Donation{
		"don-1": {ID: "don-1", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 4, Status: models.DonationValid},
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupAPos): 10}}
	svc := newDonationService(donations, &mockDonorRepo{}, &mockBankRepo{}, inventory)

	donation, err := svc.UpdateStatus(context.Background(), "don-1", "used", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DonationUsed, donation.Status)
	assert.Equal(t, 6, inventory.units[invKey("b1", models.BloodGroupAPos)])
}

func TestUpdateDonationStatusRoundTripRestoresInventory(t *testing.T) {
	donations := &mockDonationRepo{donations: map[string]models.Donation{
		"don-1": {ID: "don-1", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 4, Status: models.DonationValid},
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupAPos): 10}}
	svc := newDonationService(donations, &mockDonorRepo{}, &mockBankRepo{}, inventory)

	_, err := svc.UpdateStatus(context.Background(), "don-1", "used", nil)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), "don-1", "valid", nil)
	require.NoError(t, err)

	assert.Equal(t, 10, inventory.units[invKey("b1", models.BloodGroupAPos)])
}

func TestUpdateDonationStatusInsufficientInventory(t *testing.T) {
	donations := &mockDonationRepo{donations: map[string]models.Donation{
		"don-1": {ID: "don-1", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 5, Status: models.DonationValid},
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupAPos): 2}}
	svc := newDonationService(donations, &mockDonorRepo{}, &mockBankRepo{}, inventory)

	_, err := svc.UpdateStatus(context.Background(), "don-1", "expired", nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInsufficientInventory.Code, appErr.Code)
	assert.Equal(t, "Insufficient units available: current 2, requested 5", appErr.Message)
	assert.Equal(t, 2, inventory.units[invKey("b1", models.BloodGroupAPos)])
	assert.Equal(t, models.DonationValid, donations.donations["don-1"].Status)
}

func TestUpdateDonationStatusRejectsSameStatus(t *testing.T) {
	donations := &mockDonationRepo{donations: map[string]models.Donation{
		"don-1": {ID: "don-1", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 5, Status: models.DonationValid},
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupAPos): 10}}
	svc := newDonationService(donations, &mockDonorRepo{}, &mockBankRepo{}, inventory)

	_, err := svc.UpdateStatus(context.Background(), "don-1", "valid", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 10, inventory.units[invKey("b1", models.BloodGroupAPos)])
}

func TestUpdateDonationStatusRejectsCrossTransition(t *testing.T) {
	donations := &mockDonationRepo{donations: map[string]models.Donation{
		"don-1": {ID: "don-1", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 5, Status: models.DonationExpired},
	}}
	svc := newDonationService(donations, &mockDonorRepo{}, &mockBankRepo{}, &mockInventory{})

	_, err := svc.UpdateStatus(context.Background(), "don-1", "used", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestUpdateDonationStatusUnknownStatus(t *testing.T) {
	svc := newDonationService(&mockDonationRepo{}, &mockDonorRepo{}, &mockBankRepo{}, &mockInventory{})

	_, err := svc.UpdateStatus(context.Background(), "don-1", "completed", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
