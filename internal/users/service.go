package users

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	GetProfile(ctx context.Context, caller identity.Caller) (*User, error)
	ChangeUserRole(ctx context.Context, caller identity.Caller, targetID uuid.UUID, role constants.Role) (*User, error)
	CreateStaffUser(ctx context.Context, caller identity.Caller, req CreateStaffUserRequest) (*User, error)

	// BootstrapSuperAdmin promotes an existing account. It has no HTTP route
	// and is run once from the seed command.
	BootstrapSuperAdmin(ctx context.Context, email string) (*User, error)
}

type service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository) Service {
	return &service{repo: repo, log: logger.GetDefault()}
}

func (s *service) GetProfile(ctx context.Context, caller identity.Caller) (*User, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, s.translate(err, "failed to load profile")
	}
	return user, nil
}

func (s *service) ChangeUserRole(ctx context.Context, caller identity.Caller, targetID uuid.UUID, role constants.Role) (*User, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, apperrors.InvalidArgument("invalid role %q", role)
	}
	if targetID == caller.UserID {
		return nil, apperrors.FailedPrecondition("you cannot change your own role")
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, s.translate(err, "failed to load user")
	}

	// Only a super admin may grant or take away admin rights
	if (role.IsPrivileged() || target.Role.IsPrivileged()) && caller.Role != constants.RoleSuperAdmin {
		return nil, apperrors.PermissionDenied("only a super admin can grant or revoke admin roles")
	}

	if target.Role == role {
		return target, nil
	}

	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, s.translate(err, "failed to update role")
	}

	s.log.Info("user role changed",
		slog.String("target_id", targetID.String()),
		slog.String("from", target.Role.String()),
		slog.String("to", role.String()),
		slog.String("changed_by", caller.UserID.String()),
	)

	target.Role = role
	return target, nil
}

func (s *service) CreateStaffUser(ctx context.Context, caller identity.Caller, req CreateStaffUserRequest) (*User, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	if !req.Role.IsStaff() {
		return nil, apperrors.InvalidArgument("role %q is not a staff role", req.Role)
	}
	if req.Role.IsPrivileged() && caller.Role != constants.RoleSuperAdmin {
		return nil, apperrors.PermissionDenied("only a super admin can create admin accounts")
	}

	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to check email")
	}
	if exists {
		return nil, apperrors.AlreadyExists("a user with email %s already exists", req.Email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to hash password")
	}

	user := &User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    string(hashed),
		Role:        req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.AlreadyExists("a user with email %s already exists", req.Email)
		}
		return nil, apperrors.Internal(err, "failed to create staff user")
	}

	s.log.Info("staff user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", user.Role.String()),
		slog.String("created_by", caller.UserID.String()),
	)
	return user, nil
}

func (s *service) BootstrapSuperAdmin(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.translate(err, "failed to load user")
	}
	if user.Role == constants.RoleSuperAdmin {
		return user, nil
	}
	if err := s.repo.UpdateRole(ctx, user.ID, constants.RoleSuperAdmin); err != nil {
		return nil, s.translate(err, "failed to promote user")
	}
	user.Role = constants.RoleSuperAdmin
	return user, nil
}

func (s *service) translate(err error, msg string) error {
	if errors.Is(err, ErrUserNotFound) {
		return apperrors.NotFound("user not found")
	}
	return apperrors.Internal(err, msg)
}
