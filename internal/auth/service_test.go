package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/auth"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database/dbtest"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/shared/middleware"
	"github.com/fredrickBO/TwendeBus/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{
		Secret:           "auth-test-secret",
		Issuer:           "twendebus",
		JWTExpiresIn:     15 * time.Minute,
		RefreshExpiresIn: time.Hour,
	}}
}

func newService(t *testing.T) (auth.Service, users.Repository, *config.Config) {
	db := dbtest.New(t, &users.User{})
	repo := users.NewRepository(db)
	cfg := testConfig()
	return auth.NewService(repo, cfg), repo, cfg
}

func register(t *testing.T, svc auth.Service, email string) *auth.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &auth.RegisterRequest{
		FirstName: "Achieng",
		LastName:  "Otieno",
		Email:     email,
		Password:  "secret123",
	})
	require.NoError(t, err)
	return resp
}

// callerFromToken runs the token through the real auth middleware
func callerFromToken(t *testing.T, cfg *config.Config, token string) (int, identity.Caller) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	var caller identity.Caller
	engine.GET("/whoami", middleware.JWTAuthWithConfig(cfg), func(c *gin.Context) {
		caller = middleware.CallerFrom(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	engine.ServeHTTP(rec, req)
	return rec.Code, caller
}

func TestRegister_AlwaysPassenger(t *testing.T) {
	svc, repo, cfg := newService(t)

	resp := register(t, svc, "achieng@twende.test")
	assert.Equal(t, string(constants.RolePassenger), resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	stored, err := repo.GetByEmail(context.Background(), "achieng@twende.test")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.Password)

	code, caller := callerFromToken(t, cfg, resp.AccessToken)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, stored.ID, caller.UserID)
	assert.Equal(t, constants.RolePassenger, caller.Role)

	_, err = svc.Register(context.Background(), &auth.RegisterRequest{
		FirstName: "Other", LastName: "Person", Email: "achieng@twende.test", Password: "secret123",
	})
	assert.True(t, apperrors.Is(err, apperrors.KindAlreadyExists))
}

func TestLogin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "login@twende.test")

	resp, err := svc.Login(ctx, &auth.LoginRequest{Email: "login@twende.test", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "login@twende.test", resp.User.Email)

	_, err = svc.Login(ctx, &auth.LoginRequest{Email: "login@twende.test", Password: "wrong-one"})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))

	_, err = svc.Login(ctx, &auth.LoginRequest{Email: "nobody@twende.test", Password: "secret123"})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
}

func TestLogin_ExternalIdentityHasNoPassword(t *testing.T) {
	svc, repo, _ := newService(t)
	require.NoError(t, repo.Create(context.Background(), &users.User{
		FirstName: "Ext", LastName: "User", Email: "ext@twende.test",
	}))

	_, err := svc.Login(context.Background(), &auth.LoginRequest{Email: "ext@twende.test", Password: ""})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
}

func TestRefreshToken(t *testing.T) {
	svc, repo, cfg := newService(t)
	ctx := context.Background()
	resp := register(t, svc, "refresh@twende.test")

	// Role changes are picked up on refresh
	userID := uuid.MustParse(resp.User.ID)
	require.NoError(t, repo.UpdateRole(ctx, userID, constants.RoleSupport))

	pair, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	code, caller := callerFromToken(t, cfg, pair.AccessToken)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, constants.RoleSupport, caller.Role)

	// An access token is not a refresh token, and a refresh token is not an access token
	_, err = svc.RefreshToken(ctx, resp.AccessToken)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
	code, _ = callerFromToken(t, cfg, resp.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, code)

	_, err = svc.RefreshToken(ctx, "not-a-token")
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	resp := register(t, svc, "change@twende.test")
	caller := identity.Caller{UserID: uuid.MustParse(resp.User.ID), Role: constants.RolePassenger}

	err := svc.ChangePassword(ctx, caller, &auth.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newsecret"})
	assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))

	require.NoError(t, svc.ChangePassword(ctx, caller, &auth.ChangePasswordRequest{
		CurrentPassword: "secret123", NewPassword: "newsecret",
	}))

	_, err = svc.Login(ctx, &auth.LoginRequest{Email: "change@twende.test", Password: "secret123"})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
	_, err = svc.Login(ctx, &auth.LoginRequest{Email: "change@twende.test", Password: "newsecret"})
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, identity.Anonymous, &auth.ChangePasswordRequest{CurrentPassword: "x", NewPassword: "yyyyyy"})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
}
