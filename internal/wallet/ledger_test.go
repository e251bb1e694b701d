package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/database/dbtest"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T, balance int64) (*gorm.DB, *database.TxRunner, *Ledger, uuid.UUID) {
	db := dbtest.New(t, &users.User{}, &Transaction{})
	user := &users.User{FirstName: "Wanjiru", LastName: "Kamau", Email: uuid.NewString() + "@twende.test"}
	require.NoError(t, users.NewRepository(db).Create(context.Background(), user))
	require.NoError(t, db.Model(&users.User{}).Where("id = ?", user.ID).
		Update("wallet_balance", decimal.NewFromInt(balance)).Error)
	return db, dbtest.Runner(db), NewLedger(), user.ID
}

func balanceOf(t *testing.T, db *gorm.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	bal, err := NewRepository(db).GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return bal
}

func countTransactions(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&Transaction{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestDebit(t *testing.T) {
	ctx := context.Background()
	db, runner, ledger, userID := setup(t, 1000)

	var txn *Transaction
	err := runner.Run(ctx, func(tx *database.Tx) error {
		var err error
		txn, err = ledger.Debit(tx, userID, decimal.NewFromInt(400), Entry{Details: "Seats 1, 2"})
		return err
	})
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(-400)))
	assert.Equal(t, TypeDeduction, txn.Type)
	assert.Equal(t, StatusCompleted, txn.Status)
	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(600)))

	err = runner.Run(ctx, func(tx *database.Tx) error {
		_, err := ledger.Debit(tx, userID, decimal.NewFromInt(601), Entry{})
		return err
	})
	assert.True(t, apperrors.Is(err, apperrors.KindFailedPrecondition))
	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(600)))
	assert.Equal(t, int64(1), countTransactions(t, db, userID))

	err = runner.Run(ctx, func(tx *database.Tx) error {
		_, err := ledger.Debit(tx, userID, decimal.Zero, Entry{})
		return err
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))
}

func TestDebit_RolledBackWithCaller(t *testing.T) {
	ctx := context.Background()
	db, runner, ledger, userID := setup(t, 1000)

	err := runner.Run(ctx, func(tx *database.Tx) error {
		if _, err := ledger.Debit(tx, userID, decimal.NewFromInt(1000), Entry{}); err != nil {
			return err
		}
		return apperrors.Aborted("later step failed")
	})
	require.Error(t, err)
	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(1000)))
	assert.Zero(t, countTransactions(t, db, userID))
}

func TestDebit_ConcurrentNeverOverspends(t *testing.T) {
	ctx := context.Background()
	db, runner, ledger, userID := setup(t, 1000)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := runner.Run(ctx, func(tx *database.Tx) error {
				_, err := ledger.Debit(tx, userID, decimal.NewFromInt(300), Entry{})
				return err
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, success)
	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(3), countTransactions(t, db, userID))
}

func TestCredit_IdempotentByID(t *testing.T) {
	ctx := context.Background()
	db, runner, ledger, userID := setup(t, 0)

	credit := func() error {
		return runner.Run(ctx, func(tx *database.Tx) error {
			_, err := ledger.Credit(tx, userID, decimal.NewFromInt(500), TypeRefund, Entry{ID: "ws_CO_123"})
			return err
		})
	}
	require.NoError(t, credit())
	require.NoError(t, credit())

	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(1), countTransactions(t, db, userID))

	err := runner.Run(ctx, func(tx *database.Tx) error {
		_, err := ledger.Credit(tx, userID, decimal.NewFromInt(10), TypeDeduction, Entry{})
		return err
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
}

func TestPendingSettleAndFail(t *testing.T) {
	ctx := context.Background()
	db, runner, ledger, userID := setup(t, 100)

	require.NoError(t, runner.Run(ctx, func(tx *database.Tx) error {
		if _, err := ledger.RecordPending(tx, userID, decimal.NewFromInt(250), Entry{ID: "ws_CO_ok", PhoneNumber: "254712345678"}); err != nil {
			return err
		}
		_, err := ledger.RecordPending(tx, userID, decimal.NewFromInt(70), Entry{ID: "ws_CO_bad"})
		return err
	}))
	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(100)), "pending deposits are not spendable")

	settle := func() bool {
		var credited bool
		require.NoError(t, runner.Run(ctx, func(tx *database.Tx) error {
			var err error
			_, credited, err = ledger.Settle(tx, "ws_CO_ok", "QKX12345")
			return err
		}))
		return credited
	}
	assert.True(t, settle())
	assert.False(t, settle(), "replayed settlement credits nothing")
	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(350)))

	var changed bool
	require.NoError(t, runner.Run(ctx, func(tx *database.Tx) error {
		var err error
		changed, err = ledger.Fail(tx, "ws_CO_bad", "Request cancelled by user")
		return err
	}))
	assert.True(t, changed)

	// A success arriving after failure is ignored
	require.NoError(t, runner.Run(ctx, func(tx *database.Tx) error {
		_, credited, err := ledger.Settle(tx, "ws_CO_bad", "QKX999")
		assert.False(t, credited)
		return err
	}))
	assert.True(t, balanceOf(t, db, userID).Equal(decimal.NewFromInt(350)))

	err := runner.Run(ctx, func(tx *database.Tx) error {
		_, _, err := ledger.Settle(tx, "ws_CO_unknown", "")
		return err
	})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestService_Reads(t *testing.T) {
	ctx := context.Background()
	db, runner, ledger, userID := setup(t, 1000)
	svc := NewService(NewRepository(db))
	caller := identity.Caller{UserID: userID}

	require.NoError(t, runner.Run(ctx, func(tx *database.Tx) error {
		for i := 0; i < 3; i++ {
			if _, err := ledger.Debit(tx, userID, decimal.NewFromInt(100), Entry{}); err != nil {
				return err
			}
		}
		return nil
	}))

	summary, err := svc.GetWallet(ctx, caller)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(700)))

	page, err := svc.ListTransactions(ctx, caller, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Transactions, 2)

	_, err = svc.GetWallet(ctx, identity.Anonymous)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))

	_, err = svc.GetWallet(ctx, identity.Caller{UserID: uuid.New()})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
