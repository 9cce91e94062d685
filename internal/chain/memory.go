package chain

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// MemLedger is an in-process Ledger. Each transaction writes to an overlay
// that is folded into the base map on success and dropped on failure.
type MemLedger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
}

func NewMemLedger() *MemLedger {
	return &MemLedger{accounts: make(map[solana.PublicKey]*Account)}
}

func (m *MemLedger) GetAccount(address solana.PublicKey) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getAccount(m.accounts, address)
}

func (m *MemLedger) PutAccount(account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Address] = account.Clone()
	return nil
}

func (m *MemLedger) DeleteAccount(address solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, address)
	return nil
}

func (m *MemLedger) AccountsByOwner(owner solana.PublicKey) ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return accountsByOwner(m.accounts, owner), nil
}

func (m *MemLedger) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	overlay := &memOverlay{
		base:    m.accounts,
		writes:  make(map[solana.PublicKey]*Account),
		deletes: make(map[solana.PublicKey]struct{}),
	}
	if err := fn(overlay); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for address := range overlay.deletes {
		delete(m.accounts, address)
	}
	for address, account := range overlay.writes {
		m.accounts[address] = account
	}
	return nil
}

type memOverlay struct {
	base    map[solana.PublicKey]*Account
	writes  map[solana.PublicKey]*Account
	deletes map[solana.PublicKey]struct{}
}

func (o *memOverlay) GetAccount(address solana.PublicKey) (*Account, error) {
	if account, ok := o.writes[address]; ok {
		return account.Clone(), nil
	}
	if _, ok := o.deletes[address]; ok {
		return nil, ErrAccountNotFound
	}
	return getAccount(o.base, address)
}

func (o *memOverlay) PutAccount(account *Account) error {
	delete(o.deletes, account.Address)
	o.writes[account.Address] = account.Clone()
	return nil
}

func (o *memOverlay) DeleteAccount(address solana.PublicKey) error {
	delete(o.writes, address)
	o.deletes[address] = struct{}{}
	return nil
}

func (o *memOverlay) AccountsByOwner(owner solana.PublicKey) ([]*Account, error) {
	merged := make(map[solana.PublicKey]*Account, len(o.base)+len(o.writes))
	for address, account := range o.base {
		if _, deleted := o.deletes[address]; !deleted {
			merged[address] = account
		}
	}
	for address, account := range o.writes {
		merged[address] = account
	}
	return accountsByOwner(merged, owner), nil
}

func getAccount(accounts map[solana.PublicKey]*Account, address solana.PublicKey) (*Account, error) {
	account, ok := accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account.Clone(), nil
}

func accountsByOwner(accounts map[solana.PublicKey]*Account, owner solana.PublicKey) []*Account {
	var owned []*Account
	for _, account := range accounts {
		if account.Owner == owner {
			owned = append(owned, account.Clone())
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return bytes.Compare(owned[i].Address[:], owned[j].Address[:]) < 0
	})
	return owned
}
