package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type mockUserRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	revokedAll    []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:         make(map[string]models.User),
		refreshTokens: make(map[string]models.RefreshToken),
	}
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if u, ok := m.users[id]; ok {
		u.LastLogin = &ts
		m.users[id] = u
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	for id, t := range m.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
			m.refreshTokens[id] = t
		}
	}
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.ID] = *token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	for _, t := range m.refreshTokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if t, ok := m.refreshTokens[id]; ok {
		t.Revoked = true
		t.RevokedAt = &revokedAt
		m.refreshTokens[id] = t
	}
	return nil
}

func newAuthService(repo *mockUserRepo) *AuthService {
	return NewAuthService(repo, nil, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "bloodbank-api",
	})
}

func seedUser(repo *mockUserRepo, email, password string, active bool) models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         models.RoleHospital,
		Active:       active,
	}
	repo.users[user.ID] = user
	return user
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "Hospital@Example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "hospital@example.com", resp.User.Email)
	assert.Equal(t, models.RoleHospital, resp.User.Role)
	assert.Len(t, repo.refreshTokens, 1)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "hospital@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "hospital@example.com", "secret123", false)
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "hospital@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRegisterCreatesHospitalAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := newAuthService(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "New.Hospital@Example.com",
		Password: "secret123",
		FullName: "City Hospital",
	})
	require.NoError(t, err)

	assert.Equal(t, "new.hospital@example.com", info.Email)
	assert.Equal(t, models.RoleHospital, info.Role)

	stored, err := repo.FindByEmail(context.Background(), "new.hospital@example.com")
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "hospital@example.com",
		Password: "secret123",
		FullName: "City Hospital",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	repo := newMockUserRepo()
	user := seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "hospital@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleHospital, claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "hospital@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	loginResp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "hospital@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshResp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: loginResp.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, loginResp.RefreshToken, refreshResp.RefreshToken)

	// the used token was rotated out and cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: loginResp.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := newMockUserRepo()
	user := seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	expired := models.RefreshToken{
		ID:        "rt-1",
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		CreatedAt: time.Now().UTC().Add(-25 * time.Hour),
	}
	repo.refreshTokens[expired.ID] = expired

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale-token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesOwnToken(t *testing.T) {
	repo := newMockUserRepo()
	user := seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	loginResp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "hospital@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), loginResp.RefreshToken, user.ID))

	stored, err := repo.FindRefreshToken(context.Background(), loginResp.RefreshToken)
	require.NoError(t, err)
	assert.True(t, stored.Revoked)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "hospital@example.com", "secret123", true)
	svc := newAuthService(repo)

	loginResp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "hospital@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), loginResp.RefreshToken, "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
