package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL. Atomicity relies on
// single-statement conditional updates, so concurrent debits against the
// same wallet serialize on the row without any application-level locking.
type PostgresStore struct {
	db    *sql.DB
	grant int64
}

// NewPostgresStore creates a new PostgreSQL-backed wallet store. New wallets
// start with the given grant.
func NewPostgresStore(db *sql.DB, grant int64) *PostgresStore {
	return &PostgresStore{db: db, grant: grant}
}

// Migrate creates the wallet_accounts table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_accounts (
			wallet_address  TEXT PRIMARY KEY,
			balance         BIGINT NOT NULL CHECK (balance >= 0),
			consumed        BIGINT NOT NULL DEFAULT 0 CHECK (consumed >= 0),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// ensure inserts the wallet with the starting grant when unseen. A no-op
// for existing wallets.
func (p *PostgresStore) ensure(ctx context.Context, walletAddr string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO wallet_accounts (wallet_address, balance, consumed, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (wallet_address) DO NOTHING
	`, walletAddr, p.grant)
	if err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetOrCreate(ctx context.Context, walletAddr string) (*Account, error) {
	if err := p.ensure(ctx, walletAddr); err != nil {
		return nil, err
	}

	acct := &Account{WalletAddress: walletAddr}
	err := p.db.QueryRowContext(ctx, `
		SELECT balance, consumed, updated_at
		FROM wallet_accounts WHERE wallet_address = $1
	`, walletAddr).Scan(&acct.Balance, &acct.Consumed, &acct.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return acct, nil
}

func (p *PostgresStore) Debit(ctx context.Context, walletAddr string, amount int64) (*Account, error) {
	if err := p.ensure(ctx, walletAddr); err != nil {
		return nil, err
	}

	// The WHERE balance >= amount guard makes check-and-deduct a single
	// atomic statement; a losing concurrent debit simply matches no row.
	acct := &Account{WalletAddress: walletAddr}
	err := p.db.QueryRowContext(ctx, `
		UPDATE wallet_accounts
		SET balance = balance - $2, consumed = consumed + $2, updated_at = NOW()
		WHERE wallet_address = $1 AND balance >= $2
		RETURNING balance, consumed, updated_at
	`, walletAddr, amount).Scan(&acct.Balance, &acct.Consumed, &acct.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}
	return acct, nil
}

func (p *PostgresStore) Credit(ctx context.Context, walletAddr string, amount int64) (*Account, error) {
	acct := &Account{WalletAddress: walletAddr}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO wallet_accounts (wallet_address, balance, consumed, updated_at)
		VALUES ($1, $2 + $3, 0, NOW())
		ON CONFLICT (wallet_address) DO UPDATE
		SET balance = wallet_accounts.balance + $3, updated_at = NOW()
		RETURNING balance, consumed, updated_at
	`, walletAddr, p.grant, amount).Scan(&acct.Balance, &acct.Consumed, &acct.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("credit wallet: %w", err)
	}
	return acct, nil
}
