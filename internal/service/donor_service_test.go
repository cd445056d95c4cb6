package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type mockCrudDonorRepo struct {
	donors map[string]models.Donor
}

func (m *mockCrudDonorRepo) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, error) {
	var out []models.Donor
	for _, d := range m.donors {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockCrudDonorRepo) FindByID(ctx context.Context, id string) (*models.Donor, error) {
	if d, ok := m.donors[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCrudDonorRepo) Create(ctx context.Context, donor *models.Donor) error {
	if m.donors == nil {
		m.donors = make(map[string]models.Donor)
	}
	if donor.ID == "" {
		donor.ID = "new-donor"
	}
	m.donors[donor.ID] = *donor
	return nil
}

func (m *mockCrudDonorRepo) Update(ctx context.Context, donor *models.Donor) error {
	m.donors[donor.ID] = *donor
	return nil
}

func (m *mockCrudDonorRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.donors[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.donors, id)
	return nil
}

func TestCreateDonorDefaultsHealthStatus(t *testing.T) {
	repo := &mockCrudDonorRepo{}
	svc := NewDonorService(repo, nil, nil)

	donor, err := svc.Create(context.Background(), CreateDonorRequest{
		FullName:   "Jordan Blake",
		Email:      "jordan@example.com",
		BloodGroup: "ab-",
	})
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusEligible, donor.HealthStatus)
	assert.Equal(t, models.BloodGroupABNeg, donor.BloodGroup)
	assert.Nil(t, donor.LastDonationDate)
}

func TestCreateDonorRejectsUnknownHealthStatus(t *testing.T) {
	svc := NewDonorService(&mockCrudDonorRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateDonorRequest{
		FullName:     "Jordan Blake",
		Email:        "jordan@example.com",
		BloodGroup:   "A+",
		HealthStatus: "Maybe",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateDonorPreservesLastDonationDate(t *testing.T) {
	existing := eligibleDonor("d1", models.BloodGroupAPos)
	last := existing.CreatedAt
	existing.LastDonationDate = &last

	repo := &mockCrudDonorRepo{donors: map[string]models.Donor{"d1": existing}}
	svc := NewDonorService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), "d1", UpdateDonorRequest{
		FullName:     "Jordan B.",
		Email:        "jordan@example.com",
		BloodGroup:   "A+",
		HealthStatus: models.HealthStatusNotEligible,
	})
	require.NoError(t, err)

	assert.Equal(t, "Jordan B.", updated.FullName)
	assert.Equal(t, models.HealthStatusNotEligible, updated.HealthStatus)
	require.NotNil(t, updated.LastDonationDate)
	assert.Equal(t, last, *updated.LastDonationDate)
}

func TestDeleteDonorNotFound(t *testing.T) {
	svc := NewDonorService(&mockCrudDonorRepo{}, nil, nil)

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
