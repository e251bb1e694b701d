package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres SQLSTATE codes that mean "run the transaction again"
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// Tx is a ledger transaction. Everything read through Locking() stays locked
// until commit, and hooks registered with AfterCommit run only once the
// transaction is durable.
type Tx struct {
	*gorm.DB
	hooks []hook
}

type hook struct {
	name string
	fn   func(ctx context.Context)
}

// Locking returns a query builder that takes row locks (SELECT ... FOR UPDATE)
func (tx *Tx) Locking() *gorm.DB {
	return tx.DB.Clauses(clause.Locking{Strength: "UPDATE"})
}

// AfterCommit registers a side effect to run after a successful commit.
// Hooks run in registration order; a failing hook never affects the result.
func (tx *Tx) AfterCommit(name string, fn func(ctx context.Context)) {
	tx.hooks = append(tx.hooks, hook{name: name, fn: fn})
}

// TxRunner runs closures inside database transactions
type TxRunner struct {
	db         *gorm.DB
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

// NewTxRunner creates a runner retrying conflicted transactions up to maxRetries times
func NewTxRunner(db *gorm.DB, maxRetries int) *TxRunner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TxRunner{
		db:         db,
		maxRetries: maxRetries,
		backoff:    20 * time.Millisecond,
		log:        logger.GetDefault(),
	}
}

// DB returns the underlying handle for plain reads
func (r *TxRunner) DB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Run executes fn in a transaction. The whole closure is replayed when the
// store reports a serialization failure or deadlock, so fn must not have
// side effects outside tx other than AfterCommit hooks.
func (r *TxRunner) Run(ctx context.Context, fn func(tx *Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}

		tx := &Tx{}
		err := r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			tx.DB = gtx
			return fn(tx)
		})
		if err == nil {
			r.runHooks(ctx, tx.hooks)
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		lastErr = err
		r.log.Warn("retrying conflicted transaction",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("transaction gave up after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *TxRunner) runHooks(ctx context.Context, hooks []hook) {
	// The request may already be finished when hooks run
	hookCtx := context.WithoutCancel(ctx)
	for _, h := range hooks {
		r.runHook(hookCtx, h)
	}
}

func (r *TxRunner) runHook(ctx context.Context, h hook) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("post-commit hook panicked",
				slog.String("hook", h.name),
				slog.Any("panic", rec),
			)
		}
	}()
	h.fn(ctx)
}

// IsRetryable reports whether err is a transient transaction conflict
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

// IsDuplicateKey reports whether err is a unique constraint violation
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsNotFound reports whether err is gorm's record-not-found
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
