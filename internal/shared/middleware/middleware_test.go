package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newTestEngine(cfg *config.Config, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	chain := append([]gin.HandlerFunc{JWTAuthWithConfig(cfg)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		caller := CallerFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": caller.UserID.String(), "role": string(caller.Role)})
	})
	engine.GET("/me", chain...)
	return engine
}

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
}

func TestJWTAuth_SetsCaller(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    "admin",
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newTestEngine(testConfig()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
}

func TestJWTAuth_UnknownRoleFallsBackToPassenger(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    "root",
		"type":    "access",
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newTestEngine(testConfig()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"passenger"`)
}

func TestJWTAuth_Rejects(t *testing.T) {
	valid := jwt.MapClaims{"user_id": uuid.NewString(), "type": "access"}
	refresh := jwt.MapClaims{"user_id": uuid.NewString(), "type": "refresh"}
	expired := jwt.MapClaims{"user_id": uuid.NewString(), "type": "access", "exp": time.Now().Add(-time.Minute).Unix()}

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token " + signToken(t, valid),
		"refresh token":  "Bearer " + signToken(t, refresh),
		"expired":        "Bearer " + signToken(t, expired),
		"garbage":        "Bearer not-a-jwt",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			newTestEngine(testConfig()).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	for role, want := range map[constants.Role]int{
		constants.RolePassenger:  http.StatusForbidden,
		constants.RoleSupport:    http.StatusForbidden,
		constants.RoleAdmin:      http.StatusOK,
		constants.RoleSuperAdmin: http.StatusOK,
	} {
		token := signToken(t, jwt.MapClaims{
			"user_id": uuid.NewString(),
			"role":    string(role),
			"type":    "access",
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		newTestEngine(testConfig(), RequireAdmin()).ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, string(role))
	}
}
