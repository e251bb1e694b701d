package middleware

import (
	"net/http"
	"strings"

	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(config.Load())
}

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		claims, ok := parseAccessToken(parts[1], cfg.JWT.Secret)
		if !ok {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// parseAccessToken verifies an HS256 access token and returns its claims
func parseAccessToken(tokenString, secret string) (jwt.MapClaims, bool) {
	if secret == "" {
		return nil, false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, false
	}
	if _, err := uuid.Parse(claimString(claims, "user_id")); err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	role := constants.Role(claimString(claims, "role"))
	if !role.IsValid() {
		role = constants.RolePassenger
	}
	c.Set(ctxUserID, claimString(claims, "user_id"))
	c.Set(ctxUserEmail, claimString(claims, "email"))
	c.Set(ctxUserRole, string(role))
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// CallerFrom returns the identity the auth middleware stored on the context.
// Requests that skipped authentication get identity.Anonymous.
func CallerFrom(c *gin.Context) identity.Caller {
	id, err := uuid.Parse(c.GetString(ctxUserID))
	if err != nil {
		return identity.Anonymous
	}
	return identity.Caller{
		UserID: id,
		Email:  c.GetString(ctxUserEmail),
		Role:   constants.Role(c.GetString(ctxUserRole)),
	}
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...constants.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ctxUserRole)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range requiredRoles {
			if userRole.(string) == string(role) {
				hasRole = true
				break
			}
		}

		if !hasRole {
			response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin middleware that requires admin or super admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(constants.RoleAdmin, constants.RoleSuperAdmin)
}

// OptionalAuthWithConfig validates the JWT if present but doesn't require it
func OptionalAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if claims, ok := parseAccessToken(parts[1], cfg.JWT.Secret); ok {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}
