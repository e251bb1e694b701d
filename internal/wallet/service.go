package wallet

import (
	"context"
	"errors"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
)

type Service interface {
	GetWallet(ctx context.Context, caller identity.Caller) (*Summary, error)
	ListTransactions(ctx context.Context, caller identity.Caller, page, limit int) (*TransactionPage, error)
}

// TransactionPage is one page of wallet history, newest first
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetWallet(ctx context.Context, caller identity.Caller) (*Summary, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	balance, err := s.repo.GetBalance(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, apperrors.NotFound("wallet not found")
		}
		return nil, apperrors.Internal(err, "failed to load wallet")
	}
	return &Summary{UserID: caller.UserID, Balance: balance}, nil
}

func (s *service) ListTransactions(ctx context.Context, caller identity.Caller, page, limit int) (*TransactionPage, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	txns, total, err := s.repo.ListTransactions(ctx, caller.UserID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list transactions")
	}
	return &TransactionPage{Transactions: txns, Total: total, Page: page, Limit: limit}, nil
}
