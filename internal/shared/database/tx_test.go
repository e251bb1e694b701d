package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/database/dbtest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func TestTxRunner_HooksRunAfterCommitInOrder(t *testing.T) {
	db := dbtest.New(t, &counter{})
	runner := dbtest.Runner(db)

	var calls []string
	err := runner.Run(context.Background(), func(tx *database.Tx) error {
		tx.AfterCommit("first", func(ctx context.Context) { calls = append(calls, "first") })
		tx.AfterCommit("second", func(ctx context.Context) { calls = append(calls, "second") })
		return tx.Create(&counter{Value: 1}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)

	var n int64
	require.NoError(t, db.Model(&counter{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestTxRunner_RollbackSkipsHooks(t *testing.T) {
	db := dbtest.New(t, &counter{})
	runner := dbtest.Runner(db)

	called := false
	boom := errors.New("boom")
	err := runner.Run(context.Background(), func(tx *database.Tx) error {
		tx.AfterCommit("notify", func(ctx context.Context) { called = true })
		if err := tx.Create(&counter{Value: 1}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, called)

	var n int64
	require.NoError(t, db.Model(&counter{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestTxRunner_PanickingHookIsIsolated(t *testing.T) {
	db := dbtest.New(t, &counter{})
	runner := dbtest.Runner(db)

	secondRan := false
	err := runner.Run(context.Background(), func(tx *database.Tx) error {
		tx.AfterCommit("explodes", func(ctx context.Context) { panic("kafka down") })
		tx.AfterCommit("still runs", func(ctx context.Context) { secondRan = true })
		return nil
	})
	require.NoError(t, err)
	assert.True(t, secondRan)
}

func TestTxRunner_RetriesSerializationFailures(t *testing.T) {
	db := dbtest.New(t, &counter{})
	runner := database.NewTxRunner(db, 2)

	attempts := 0
	err := runner.Run(context.Background(), func(tx *database.Tx) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestTxRunner_GivesUpAfterMaxRetries(t *testing.T) {
	db := dbtest.New(t, &counter{})
	runner := database.NewTxRunner(db, 1)

	attempts := 0
	err := runner.Run(context.Background(), func(tx *database.Tx) error {
		attempts++
		return &pgconn.PgError{Code: "40P01"}
	})
	require.Error(t, err)
	assert.True(t, database.IsRetryable(err))
	assert.Equal(t, 2, attempts)
}
