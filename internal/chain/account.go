// Package chain models the host ledger the raffle program runs on: owned
// accounts carrying a lamport deposit and an opaque data region, atomic
// transactions over them, signer sets and program-derived authorities.
package chain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound       = errors.New("chain: account not found")
	ErrAccountAlreadyInUse   = errors.New("chain: account already in use")
	ErrInsufficientLamports  = errors.New("chain: insufficient lamports")
	ErrLamportsOverflow      = errors.New("chain: lamports overflow")
	ErrIllegalOwner          = errors.New("chain: account not owned by program")
	ErrMissingSignature      = errors.New("chain: missing required signature")
	ErrInvalidSeeds          = errors.New("chain: invalid derived address seeds")
	ErrSignatureVerification = errors.New("chain: signature verification failed")
)

// Account is a single addressable record. Owner is the program allowed to
// mutate Data and debit Lamports.
type Account struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// Clone returns a deep copy so callers can mutate it without touching the
// stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Data = append([]byte(nil), a.Data...)
	return &clone
}

// Store is the account view available inside a transaction.
type Store interface {
	GetAccount(address solana.PublicKey) (*Account, error)
	PutAccount(account *Account) error
	DeleteAccount(address solana.PublicKey) error
	AccountsByOwner(owner solana.PublicKey) ([]*Account, error)
}

// Ledger is a Store with an all-or-nothing commit boundary. Transaction runs
// fn against a staged view and commits only when fn returns nil. Concurrent
// transactions are serialized.
type Ledger interface {
	Store
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// Exists reports whether address holds an account.
func Exists(store Store, address solana.PublicKey) (bool, error) {
	_, err := store.GetAccount(address)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
