package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/database/dbtest"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteNotifications(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t, &Notification{})
	repo := NewRepository(db)
	svc := NewService(repo, dbtest.Runner(db))

	alice := identity.Caller{UserID: uuid.New()}
	bob := identity.Caller{UserID: uuid.New()}

	a1 := TopUpCompleted(alice.UserID, decimal.NewFromInt(100), "QK1")
	a2 := BookingExpired(alice.UserID, uuid.New())
	b1 := TopUpCompleted(bob.UserID, decimal.NewFromInt(50), "QK2")
	for _, n := range []*Notification{a1, a2, b1} {
		require.NoError(t, repo.Save(ctx, n))
	}

	t.Run("another user's id fails the batch", func(t *testing.T) {
		_, err := svc.DeleteNotifications(ctx, alice, []uuid.UUID{a1.ID, b1.ID})
		assert.True(t, apperrors.Is(err, apperrors.KindPermissionDenied))

		page, err := svc.ListNotifications(ctx, alice, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("unknown ids are skipped", func(t *testing.T) {
		deleted, err := svc.DeleteNotifications(ctx, alice, []uuid.UUID{a1.ID, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})

	t.Run("only unknown ids", func(t *testing.T) {
		deleted, err := svc.DeleteNotifications(ctx, alice, []uuid.UUID{uuid.New()})
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("empty and anonymous", func(t *testing.T) {
		_, err := svc.DeleteNotifications(ctx, alice, nil)
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))

		_, err = svc.DeleteNotifications(ctx, identity.Anonymous, []uuid.UUID{a2.ID})
		assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
	})

	page, err := svc.ListNotifications(ctx, bob, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, b1.ID, page.Notifications[0].ID)
}

func TestStorePublisher_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t, &Notification{})
	repo := NewRepository(db)
	pub := NewStorePublisher(repo)

	n := BookingCancelled(uuid.New(), uuid.New(), decimal.NewFromInt(500), 50)
	require.NoError(t, pub.Publish(ctx, n))
	require.NoError(t, pub.Publish(ctx, n))

	_, total, err := repo.ListByUser(ctx, n.UserID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Contains(t, n.Body, "500.00")
}

func TestKafkaPublisher(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewKafkaPublisherWithProducer(producer, "twendebus-notifications")

	n := BookingConfirmed(uuid.New(), uuid.New(), []int{3, 4}, decimal.NewFromInt(2000))
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got Notification
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.ID != n.ID || got.UserID != n.UserID {
			return errors.New("unexpected payload")
		}
		return nil
	})
	require.NoError(t, pub.Publish(context.Background(), n))

	producer.ExpectSendMessageAndFail(errors.New("broker down"))
	assert.Error(t, pub.Publish(context.Background(), n))

	require.NoError(t, pub.Close())
}

func TestPublishAfterCommit(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t, &Notification{})
	repo := NewRepository(db)
	runner := dbtest.Runner(db)
	pub := NewStorePublisher(repo)

	userID := uuid.New()
	require.NoError(t, runner.Run(ctx, func(tx *database.Tx) error {
		PublishAfterCommit(tx, pub, TopUpFailed(userID, decimal.NewFromInt(10), "timeout"))
		return nil
	}))

	_ = runner.Run(ctx, func(tx *database.Tx) error {
		PublishAfterCommit(tx, pub, TopUpFailed(userID, decimal.NewFromInt(20), "timeout"))
		return errors.New("rolled back")
	})

	_, total, err := repo.ListByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "rolled back work sends nothing")
}

func TestConsumerHandler_StoresAndDropsMalformed(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t, &Notification{})
	repo := NewRepository(db)
	h := &groupHandler{repo: repo, log: logger.GetDefault(), maxRetries: 0}

	n := RefundIssued(uuid.New(), uuid.New(), decimal.NewFromInt(750))
	payload, err := n.ToJSON()
	require.NoError(t, err)

	require.NoError(t, h.processMessage(ctx, payload))
	require.NoError(t, h.processMessage(ctx, payload), "redelivery is absorbed")
	require.NoError(t, h.processMessage(ctx, []byte("{not json")))

	_, total, err := repo.ListByUser(ctx, n.UserID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
