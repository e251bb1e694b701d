package wallet

import (
	"log/slog"
	"strings"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/users"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the only writer of users.wallet_balance. Every balance change
// goes through the caller's transaction together with exactly one
// Transaction row.
type Ledger struct {
	log *logger.Logger
}

func NewLedger() *Ledger {
	return &Ledger{log: logger.GetDefault()}
}

// Debit takes amount from the user's balance and records a completed deduction
func (l *Ledger) Debit(tx *database.Tx, userID uuid.UUID, amount decimal.Decimal, entry Entry) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.InvalidArgument("debit amount must be positive")
	}

	balance, err := lockBalance(tx, userID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, apperrors.FailedPrecondition("insufficient wallet balance: have %s, need %s",
			balance.StringFixed(2), amount.StringFixed(2))
	}

	if err := writeBalance(tx, userID, balance.Sub(amount)); err != nil {
		return nil, err
	}
	return l.append(tx, userID, amount.Neg(), TypeDeduction, StatusCompleted, entry)
}

// Credit adds amount to the user's balance and records a completed refund or
// deposit. When entry.ID is already in the ledger the existing row is
// returned and nothing is credited.
func (l *Ledger) Credit(tx *database.Tx, userID uuid.UUID, amount decimal.Decimal, kind TransactionType, entry Entry) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.InvalidArgument("credit amount must be positive")
	}
	if kind != TypeRefund && kind != TypeDeposit {
		return nil, apperrors.Internal(nil, "cannot credit a %s", kind)
	}

	if entry.ID != "" {
		existing, err := l.find(tx, entry.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	balance, err := lockBalance(tx, userID)
	if err != nil {
		return nil, err
	}
	if err := writeBalance(tx, userID, balance.Add(amount)); err != nil {
		return nil, err
	}
	return l.append(tx, userID, amount, kind, StatusCompleted, entry)
}

// RecordPending writes a deposit awaiting external settlement. The balance
// is untouched until Settle.
func (l *Ledger) RecordPending(tx *database.Tx, userID uuid.UUID, amount decimal.Decimal, entry Entry) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.InvalidArgument("amount must be positive")
	}
	return l.append(tx, userID, amount, TypeDeposit, StatusPending, entry)
}

// Settle completes a pending deposit and credits its amount. It reports
// whether this call did the crediting; settled or failed entries are left alone.
func (l *Ledger) Settle(tx *database.Tx, id, receipt string) (*Transaction, bool, error) {
	txn, err := l.lock(tx, id)
	if err != nil {
		return nil, false, err
	}
	if !txn.IsPending() {
		return txn, false, nil
	}

	balance, err := lockBalance(tx, txn.UserID)
	if err != nil {
		return nil, false, err
	}
	if err := writeBalance(tx, txn.UserID, balance.Add(txn.Amount)); err != nil {
		return nil, false, err
	}

	err = tx.Model(&Transaction{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        StatusCompleted,
		"mpesa_receipt": receipt,
	}).Error
	if err != nil {
		return nil, false, apperrors.Internal(err, "failed to settle transaction")
	}

	txn.Status = StatusCompleted
	txn.MpesaReceipt = receipt
	l.log.Info("wallet deposit settled",
		slog.String("transaction_id", id),
		slog.String("user_id", txn.UserID.String()),
		slog.String("amount", txn.Amount.StringFixed(2)),
	)
	return txn, true, nil
}

// Fail marks a pending entry failed. It reports whether the status changed.
func (l *Ledger) Fail(tx *database.Tx, id, reason string) (bool, error) {
	txn, err := l.lock(tx, id)
	if err != nil {
		return false, err
	}
	if !txn.IsPending() {
		return false, nil
	}

	details := strings.TrimSpace(strings.Join([]string{txn.Details, reason}, " "))
	err = tx.Model(&Transaction{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":  StatusFailed,
		"details": details,
	}).Error
	if err != nil {
		return false, apperrors.Internal(err, "failed to mark transaction failed")
	}
	return true, nil
}

// Find returns the ledger row with id, or nil when there is none
func (l *Ledger) Find(tx *database.Tx, id string) (*Transaction, error) {
	return l.find(tx, id)
}

func (l *Ledger) find(tx *database.Tx, id string) (*Transaction, error) {
	var txn Transaction
	err := tx.Locking().Where("id = ?", id).First(&txn).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.Internal(err, "failed to read transaction")
	}
	return &txn, nil
}

func (l *Ledger) lock(tx *database.Tx, id string) (*Transaction, error) {
	txn, err := l.find(tx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, apperrors.NotFound("transaction %s not found", id)
	}
	return txn, nil
}

func (l *Ledger) append(tx *database.Tx, userID uuid.UUID, amount decimal.Decimal, kind TransactionType, status TransactionStatus, entry Entry) (*Transaction, error) {
	txn := &Transaction{
		ID:           entry.ID,
		UserID:       userID,
		Amount:       amount,
		Type:         kind,
		Status:       status,
		BookingID:    entry.BookingID,
		Details:      entry.Details,
		PhoneNumber:  entry.PhoneNumber,
		MpesaReceipt: entry.Receipt,
	}
	if err := tx.Create(txn).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.AlreadyExists("transaction %s already recorded", entry.ID)
		}
		return nil, apperrors.Internal(err, "failed to record transaction")
	}
	return txn, nil
}

func lockBalance(tx *database.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	var user users.User
	err := tx.Locking().Select("id", "wallet_balance").Where("id = ?", userID).First(&user).Error
	if err != nil {
		if database.IsNotFound(err) {
			return decimal.Zero, apperrors.NotFound("user not found")
		}
		return decimal.Zero, apperrors.Internal(err, "failed to lock wallet")
	}
	return user.WalletBalance, nil
}

func writeBalance(tx *database.Tx, userID uuid.UUID, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return apperrors.Internal(nil, "wallet balance for %s would go negative", userID)
	}
	err := tx.Model(&users.User{}).Where("id = ?", userID).Update("wallet_balance", balance.Round(2)).Error
	if err != nil {
		return apperrors.Internal(err, "failed to update wallet")
	}
	return nil
}
