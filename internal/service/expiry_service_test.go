package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/config"
)

type mockExpiryRepo struct {
	due      []models.Donation
	statuses map[string]models.DonationStatus
}

func (m *mockExpiryRepo) ListDue(ctx context.Context, q sqlx.ExtContext, asOf time.Time) ([]models.Donation, error) {
	var out []models.Donation
	for _, d := range m.due {
		if d.Status == models.DonationValid && d.ExpiryDate.Before(asOf) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockExpiryRepo) SetStatus(ctx context.Context, q sqlx.ExtContext, id string, status models.DonationStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.DonationStatus)
	}
	m.statuses[id] = status
	return nil
}

func TestRunOnceExpiresDueDonations(t *testing.T) {
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockExpiryRepo{due: []models.Donation{
		{ID: "don-1", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 2, Status: models.DonationValid, ExpiryDate: asOf.AddDate(0, 0, -1)},
		{ID: "don-2", BankID: "b1", BloodGroup: models.BloodGroupOPos, Units: 3, Status: models.DonationValid, ExpiryDate: asOf.AddDate(0, 0, -5)},
		{ID: "don-3", BankID: "b1", BloodGroup: models.BloodGroupOPos, Units: 1, Status: models.DonationValid, ExpiryDate: asOf.AddDate(0, 0, 10)},
	}}
	inventory := &mockInventory{units: map[string]int{
		invKey("b1", models.BloodGroupAPos): 5,
		invKey("b1", models.BloodGroupOPos): 8,
	}}
	svc := NewExpiryService(&mockTx{}, repo, inventory, nil, nil, nil, config.SweepConfig{})

	expired, err := svc.RunOnce(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 2, expired)
	assert.Equal(t, models.DonationExpired, repo.statuses["don-1"])
	assert.Equal(t, models.DonationExpired, repo.statuses["don-2"])
	assert.NotContains(t, repo.statuses, "don-3")
	assert.Equal(t, 3, inventory.units[invKey("b1", models.BloodGroupAPos)])
	assert.Equal(t, 5, inventory.units[invKey("b1", models.BloodGroupOPos)])
}

func TestRunOnceSkipsUncoverableDonation(t *testing.T) {
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockExpiryRepo{due: []models.Donation{
		{ID: "don-1", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 9, Status: models.DonationValid, ExpiryDate: asOf.AddDate(0, 0, -1)},
		{ID: "don-2", BankID: "b1", BloodGroup: models.BloodGroupAPos, Units: 2, Status: models.DonationValid, ExpiryDate: asOf.AddDate(0, 0, -1)},
	}}
	inventory := &mockInventory{units: map[string]int{invKey("b1", models.BloodGroupAPos): 4}}
	svc := NewExpiryService(&mockTx{}, repo, inventory, nil, nil, nil, config.SweepConfig{})

	expired, err := svc.RunOnce(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, expired)
	assert.NotContains(t, repo.statuses, "don-1")
	assert.Equal(t, models.DonationExpired, repo.statuses["don-2"])
	assert.Equal(t, 2, inventory.units[invKey("b1", models.BloodGroupAPos)])
}

func TestStartStopTerminatesLoop(t *testing.T) {
	repo := &mockExpiryRepo{}
	svc := NewExpiryService(&mockTx{}, repo, &mockInventory{}, nil, nil, nil, config.SweepConfig{Interval: time.Hour})

	svc.Start(context.Background())
	svc.Stop()
}
