package notifications

import (
	"context"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"

	"github.com/google/uuid"
)

type Service interface {
	ListNotifications(ctx context.Context, caller identity.Caller, page, limit int) (*NotificationPage, error)

	// DeleteNotifications removes the caller's notifications with the given
	// ids. Unknown ids are skipped; any id owned by someone else fails the
	// whole batch.
	DeleteNotifications(ctx context.Context, caller identity.Caller, ids []uuid.UUID) (int, error)
}

type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
}

type service struct {
	repo   Repository
	runner *database.TxRunner
}

func NewService(repo Repository, runner *database.TxRunner) Service {
	return &service{repo: repo, runner: runner}
}

func (s *service) ListNotifications(ctx context.Context, caller identity.Caller, page, limit int) (*NotificationPage, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := s.repo.ListByUser(ctx, caller.UserID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list notifications")
	}
	return &NotificationPage{Notifications: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) DeleteNotifications(ctx context.Context, caller identity.Caller, ids []uuid.UUID) (int, error) {
	if err := caller.Authenticated(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, apperrors.InvalidArgument("no notification ids given")
	}

	var deleted int
	err := s.runner.Run(ctx, func(tx *database.Tx) error {
		var found []Notification
		if err := tx.Locking().Select("id", "user_id").Where("id IN ?", ids).Find(&found).Error; err != nil {
			return apperrors.Internal(err, "failed to load notifications")
		}
		if len(found) == 0 {
			return nil
		}

		owned := make([]uuid.UUID, 0, len(found))
		for _, n := range found {
			if n.UserID != caller.UserID {
				return apperrors.PermissionDenied("notification %s belongs to another user", n.ID)
			}
			owned = append(owned, n.ID)
		}

		result := tx.Where("id IN ?", owned).Delete(&Notification{})
		if result.Error != nil {
			return apperrors.Internal(result.Error, "failed to delete notifications")
		}
		deleted = int(result.RowsAffected)
		return nil
	})
	return deleted, err
}
