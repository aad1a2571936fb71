package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/Jiikooan/ajatus-server/internal/syncutil"
)

// MemoryStore is an in-memory wallet store for demo/development mode.
// Mutations take a per-wallet sharded lock, so operations on the same wallet
// serialize while unrelated wallets proceed in parallel.
type MemoryStore struct {
	grant    int64
	accounts sync.Map // wallet address -> *Account, guarded by locks for mutation
	locks    syncutil.ShardedMutex
}

// NewMemoryStore creates an in-memory store. New wallets start with the
// given grant.
func NewMemoryStore(grant int64) *MemoryStore {
	return &MemoryStore{grant: grant}
}

// loadOrCreate returns the live account for the wallet, creating it with the
// starting grant when unseen. Callers must hold the wallet's lock before
// mutating the result.
func (m *MemoryStore) loadOrCreate(walletAddr string) *Account {
	if v, ok := m.accounts.Load(walletAddr); ok {
		return v.(*Account)
	}
	fresh := &Account{
		WalletAddress: walletAddr,
		Balance:       m.grant,
		Consumed:      0,
		LastUpdated:   time.Now().UTC(),
	}
	v, _ := m.accounts.LoadOrStore(walletAddr, fresh)
	return v.(*Account)
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, walletAddr string) (*Account, error) {
	unlock := m.locks.Lock(walletAddr)
	defer unlock()

	cp := *m.loadOrCreate(walletAddr)
	return &cp, nil
}

func (m *MemoryStore) Debit(ctx context.Context, walletAddr string, amount int64) (*Account, error) {
	unlock := m.locks.Lock(walletAddr)
	defer unlock()

	acct := m.loadOrCreate(walletAddr)
	if acct.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	acct.Balance -= amount
	acct.Consumed += amount
	acct.LastUpdated = time.Now().UTC()

	cp := *acct
	return &cp, nil
}

func (m *MemoryStore) Credit(ctx context.Context, walletAddr string, amount int64) (*Account, error) {
	unlock := m.locks.Lock(walletAddr)
	defer unlock()

	acct := m.loadOrCreate(walletAddr)
	acct.Balance += amount
	acct.LastUpdated = time.Now().UTC()

	cp := *acct
	return &cp, nil
}
