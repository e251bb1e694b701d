package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/users"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, caller identity.Caller, req *ChangePasswordRequest) error
}

type service struct {
	repo   users.Repository
	config *config.Config
	log    *logger.Logger
	now    func() time.Time
}

func NewService(repo users.Repository, cfg *config.Config) Service {
	return &service{
		repo:   repo,
		config: cfg,
		log:    logger.GetDefault(),
		now:    time.Now,
	}
}

func (s *service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to check email")
	}
	if exists {
		return nil, apperrors.AlreadyExists("user with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to hash password")
	}

	user := &users.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       req.Email,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Password:    string(hashedPassword),
		Role:        constants.RolePassenger,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.AlreadyExists("user with this email already exists")
		}
		return nil, apperrors.Internal(err, "failed to create user")
	}

	s.log.LogAuthSuccess(ctx, user.ID.String(), "register")
	return s.respond(user)
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, apperrors.Unauthenticated("invalid email or password")
		}
		return nil, apperrors.Internal(err, "failed to load user")
	}

	// Externally provisioned accounts have no local password
	if user.Password == "" {
		return nil, apperrors.Unauthenticated("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid email or password")
	}

	s.log.LogAuthSuccess(ctx, user.ID.String(), "password")
	return s.respond(user)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.validateToken(refreshToken)
	if err != nil || claims.Type != tokenTypeRefresh {
		return nil, apperrors.Unauthenticated("invalid or expired refresh token")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid or expired refresh token")
	}

	// Role changes since the last login take effect on refresh
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, apperrors.Unauthenticated("user no longer exists")
		}
		return nil, apperrors.Internal(err, "failed to load user")
	}
	return s.generateTokenPair(user)
}

func (s *service) ChangePassword(ctx context.Context, caller identity.Caller, req *ChangePasswordRequest) error {
	if err := caller.Authenticated(); err != nil {
		return err
	}
	user, err := s.repo.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return apperrors.NotFound("user not found")
		}
		return apperrors.Internal(err, "failed to load user")
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		return apperrors.PermissionDenied("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return apperrors.Internal(err, "failed to update password")
	}
	return nil
}

func (s *service) respond(user *users.User) (*AuthResponse, error) {
	tokenPair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User: UserResponse{
			ID:          user.ID.String(),
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Email:       user.Email,
			PhoneNumber: user.PhoneNumber,
			Role:        string(user.Role),
			CreatedAt:   user.CreatedAt,
		},
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

func (s *service) generateTokenPair(user *users.User) (*TokenPair, error) {
	if s.config.JWT.Secret == "" {
		return nil, apperrors.Internal(nil, "JWT_SECRET is not configured")
	}
	now := s.now()

	access, err := s.sign(user, tokenTypeAccess, now, s.config.JWT.JWTExpiresIn)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, tokenTypeRefresh, now, s.config.JWT.RefreshExpiresIn)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.config.JWT.JWTExpiresIn.Seconds()),
	}, nil
}

func (s *service) sign(user *users.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := JWTClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.config.JWT.Issuer,
			Subject:   user.ID.String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		return "", apperrors.Internal(err, "failed to sign token")
	}
	return signed, nil
}

func (s *service) validateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
