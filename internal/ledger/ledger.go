// Package ledger tracks per-wallet AJT token balances.
//
// Flow:
//  1. A wallet is created lazily with a free starting grant on first reference
//  2. Each chat request debits the wallet before the provider is invoked
//  3. Stripe checkout completions credit the wallet via the webhook reconciler
//
// Every debit and credit against a given wallet is linearizable; operations
// on different wallets do not contend.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/Jiikooan/ajatus-server/internal/metrics"
	"github.com/Jiikooan/ajatus-server/internal/traces"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInvalidWallet       = errors.New("wallet address must not be empty")
)

// Account is a wallet's balance state.
type Account struct {
	WalletAddress string    `json:"wallet_address"`
	Balance       int64     `json:"balance"`
	Consumed      int64     `json:"consumed"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Store persists wallet accounts. Implementations must make Debit and Credit
// atomic with respect to concurrent operations on the same wallet: two
// concurrent debits against a balance of 1 for amount 1 must yield exactly
// one success. All three operations create the account with the configured
// starting grant when the wallet is unseen.
type Store interface {
	GetOrCreate(ctx context.Context, walletAddr string) (*Account, error)
	// Debit atomically checks balance >= amount and applies the deduction,
	// returning the updated account. Returns ErrInsufficientBalance (and
	// mutates nothing) when the balance cannot cover the amount.
	Debit(ctx context.Context, walletAddr string, amount int64) (*Account, error)
	// Credit atomically increments the balance. No upper bound is enforced.
	Credit(ctx context.Context, walletAddr string, amount int64) (*Account, error)
}

// Ledger manages wallet balances on top of a Store, enforcing the caller
// contract (positive amounts, non-empty wallet) and recording metrics.
type Ledger struct {
	store Store
}

// New creates a new ledger.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// GetOrCreate returns the wallet's account, creating it with the starting
// grant if the wallet has never been seen.
func (l *Ledger) GetOrCreate(ctx context.Context, walletAddr string) (*Account, error) {
	if walletAddr == "" {
		return nil, ErrInvalidWallet
	}
	return l.store.GetOrCreate(ctx, walletAddr)
}

// Debit removes amount AJT from the wallet, incrementing its lifetime
// consumption. A debit that would drive the balance negative is rejected
// whole with ErrInsufficientBalance.
func (l *Ledger) Debit(ctx context.Context, walletAddr string, amount int64) (*Account, error) {
	if walletAddr == "" {
		return nil, ErrInvalidWallet
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ctx, span := traces.StartSpan(ctx, "ledger.debit", traces.Wallet(walletAddr), traces.Tokens(amount))
	defer span.End()

	acct, err := l.store.Debit(ctx, walletAddr, amount)
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		metrics.LedgerOpsTotal.WithLabelValues("debit", "insufficient").Inc()
	case err != nil:
		metrics.LedgerOpsTotal.WithLabelValues("debit", "error").Inc()
	default:
		metrics.LedgerOpsTotal.WithLabelValues("debit", "ok").Inc()
	}
	return acct, err
}

// Credit adds amount AJT to the wallet. Lifetime consumption is unaffected.
func (l *Ledger) Credit(ctx context.Context, walletAddr string, amount int64) (*Account, error) {
	if walletAddr == "" {
		return nil, ErrInvalidWallet
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ctx, span := traces.StartSpan(ctx, "ledger.credit", traces.Wallet(walletAddr), traces.Tokens(amount))
	defer span.End()

	acct, err := l.store.Credit(ctx, walletAddr, amount)
	if err != nil {
		metrics.LedgerOpsTotal.WithLabelValues("credit", "error").Inc()
	} else {
		metrics.LedgerOpsTotal.WithLabelValues("credit", "ok").Inc()
	}
	return acct, err
}

// Refund returns a previously debited amount to the wallet. It is a credit
// under a separate metric so refunds stay visible in monitoring.
func (l *Ledger) Refund(ctx context.Context, walletAddr string, amount int64) (*Account, error) {
	if walletAddr == "" {
		return nil, ErrInvalidWallet
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := l.store.Credit(ctx, walletAddr, amount)
	if err != nil {
		metrics.LedgerOpsTotal.WithLabelValues("refund", "error").Inc()
	} else {
		metrics.LedgerOpsTotal.WithLabelValues("refund", "ok").Inc()
	}
	return acct, err
}
