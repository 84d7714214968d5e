package app

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/domain"
)

// Ledger applies balance changes to user wallets.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

func NewLedger(store Store, opts ...Option) *Ledger {
	o := buildOptions(opts)
	return &Ledger{store: store, logger: o.logger}
}

// Balance returns the user's current wallet balance.
func (l *Ledger) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		user, err := repos.Wallets.Get(ctx, userID)
		if err != nil {
			return err
		}
		balance = user.Wallet
		return nil
	})
	return balance, err
}

// Credit adds amount to the wallet. It never checks an upper bound.
func (l *Ledger) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		balance, err = credit(ctx, repos.Wallets, userID, amount)
		return err
	})
	return balance, err
}

// Debit subtracts amount, failing with ErrInsufficientBalance and leaving the
// balance untouched when the wallet holds less than amount.
func (l *Ledger) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		balance, err = debit(ctx, repos.Wallets, userID, amount)
		return err
	})
	return balance, err
}

// Deposit is a user-initiated top-up. Unlike Credit it requires a positive
// amount.
func (l *Ledger) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	balance, err := l.Credit(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	l.logger.Info("wallet deposit", slog.Int64("user_id", userID), slog.String("amount", amount.StringFixed(domain.MoneyPlaces)))
	return balance, nil
}

func credit(ctx context.Context, wallets WalletRepository, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return wallets.Apply(ctx, userID, amount)
}

func debit(ctx context.Context, wallets WalletRepository, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return wallets.Apply(ctx, userID, amount.Neg())
}
