// Package token is the fungible-asset service: mints, token accounts, and
// the transfer and close primitives the raffle program escrows through.
package token

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"qraffle/internal/chain"
)

// ProgramID owns every mint and token account.
var ProgramID = solana.TokenProgramID

const (
	MintSize    = 32 + 8 + 1 + 1
	AccountSize = 32 + 32 + 8 + 1
)

var (
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	ErrOwnerMismatch     = errors.New("token: owner does not match")
	ErrMintMismatch      = errors.New("token: account not associated with this mint")
	ErrNonZeroBalance    = errors.New("token: non-native account can only be closed if its balance is zero")
	ErrUninitialized     = errors.New("token: account not initialized")
	ErrOverflow          = errors.New("token: operation overflowed")
	ErrNotTokenAccount   = errors.New("token: account not owned by the token program")
)

type Mint struct {
	Authority   solana.PublicKey
	Supply      uint64
	Decimals    uint8
	Initialized bool
}

type Account struct {
	Mint        solana.PublicKey
	Owner       solana.PublicKey
	Amount      uint64
	Initialized bool
}

// CreateMint allocates and initializes a mint at address.
func CreateMint(store chain.Store, signers chain.Signers, payer, address, authority solana.PublicKey, decimals uint8) error {
	account, err := chain.CreateAccount(store, signers, payer, address, MintSize, ProgramID)
	if err != nil {
		return err
	}
	return put(store, account, Mint{Authority: authority, Decimals: decimals, Initialized: true})
}

// CreateAccount allocates a token account for mint owned by owner.
func CreateAccount(store chain.Store, signers chain.Signers, payer, address, mint, owner solana.PublicKey) error {
	if _, err := GetMint(store, mint); err != nil {
		return err
	}
	account, err := chain.CreateAccount(store, signers, payer, address, AccountSize, ProgramID)
	if err != nil {
		return err
	}
	return put(store, account, Account{Mint: mint, Owner: owner, Initialized: true})
}

// MintTo issues amount new units into destination. The mint authority must
// sign.
func MintTo(store chain.Store, signers chain.Signers, mint, destination, authority solana.PublicKey, amount uint64) error {
	mintAccount, mintState, err := loadMint(store, mint)
	if err != nil {
		return err
	}
	if mintState.Authority != authority {
		return fmt.Errorf("mint to: %w", ErrOwnerMismatch)
	}
	if !signers.IsSignedBy(authority) {
		return fmt.Errorf("mint to: %w", chain.ErrMissingSignature)
	}
	target, targetState, err := loadAccount(store, destination)
	if err != nil {
		return err
	}
	if targetState.Mint != mint {
		return fmt.Errorf("mint to: %w", ErrMintMismatch)
	}

	supply, carry := bits.Add64(mintState.Supply, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint to: %w", ErrOverflow)
	}
	balance, carry := bits.Add64(targetState.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint to: %w", ErrOverflow)
	}
	mintState.Supply = supply
	targetState.Amount = balance
	if err := put(store, mintAccount, *mintState); err != nil {
		return err
	}
	return put(store, target, *targetState)
}

// Transfer moves amount from one token account to another of the same mint.
// authority must own from and be in signers.
func Transfer(store chain.Store, signers chain.Signers, from, to, authority solana.PublicKey, amount uint64) error {
	source, sourceState, err := loadAccount(store, from)
	if err != nil {
		return err
	}
	target, targetState, err := loadAccount(store, to)
	if err != nil {
		return err
	}
	if sourceState.Mint != targetState.Mint {
		return fmt.Errorf("transfer: %w", ErrMintMismatch)
	}
	if sourceState.Owner != authority {
		return fmt.Errorf("transfer: %w", ErrOwnerMismatch)
	}
	if !signers.IsSignedBy(authority) {
		return fmt.Errorf("transfer: authority %s: %w", authority, chain.ErrMissingSignature)
	}
	if sourceState.Amount < amount {
		return fmt.Errorf("transfer: %w", ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}

	balance, carry := bits.Add64(targetState.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("transfer: %w", ErrOverflow)
	}
	sourceState.Amount -= amount
	targetState.Amount = balance
	if err := put(store, source, *sourceState); err != nil {
		return err
	}
	return put(store, target, *targetState)
}

// CloseAccount tears down an empty token account, sending its deposit to
// destination. authority must own the account and be in signers.
func CloseAccount(store chain.Store, signers chain.Signers, address, destination, authority solana.PublicKey) error {
	account, state, err := loadAccount(store, address)
	if err != nil {
		return err
	}
	if state.Owner != authority {
		return fmt.Errorf("close account: %w", ErrOwnerMismatch)
	}
	if !signers.IsSignedBy(authority) {
		return fmt.Errorf("close account: authority %s: %w", authority, chain.ErrMissingSignature)
	}
	if state.Amount != 0 {
		return fmt.Errorf("close account: %w", ErrNonZeroBalance)
	}
	return chain.Drain(store, account, destination)
}

func GetMint(store chain.Store, address solana.PublicKey) (*Mint, error) {
	_, state, err := loadMint(store, address)
	return state, err
}

func GetAccount(store chain.Store, address solana.PublicKey) (*Account, error) {
	_, state, err := loadAccount(store, address)
	return state, err
}

func loadMint(store chain.Store, address solana.PublicKey) (*chain.Account, *Mint, error) {
	account, err := load(store, address)
	if err != nil {
		return nil, nil, err
	}
	var state Mint
	if err := bin.NewBorshDecoder(account.Data).Decode(&state); err != nil {
		return nil, nil, fmt.Errorf("mint %s: %w", address, err)
	}
	if !state.Initialized {
		return nil, nil, fmt.Errorf("mint %s: %w", address, ErrUninitialized)
	}
	return account, &state, nil
}

func loadAccount(store chain.Store, address solana.PublicKey) (*chain.Account, *Account, error) {
	account, err := load(store, address)
	if err != nil {
		return nil, nil, err
	}
	var state Account
	if err := bin.NewBorshDecoder(account.Data).Decode(&state); err != nil {
		return nil, nil, fmt.Errorf("token account %s: %w", address, err)
	}
	if !state.Initialized {
		return nil, nil, fmt.Errorf("token account %s: %w", address, ErrUninitialized)
	}
	return account, &state, nil
}

func load(store chain.Store, address solana.PublicKey) (*chain.Account, error) {
	account, err := store.GetAccount(address)
	if err != nil {
		return nil, fmt.Errorf("token account %s: %w", address, err)
	}
	if account.Owner != ProgramID {
		return nil, fmt.Errorf("token account %s: %w", address, ErrNotTokenAccount)
	}
	return account, nil
}

func put(store chain.Store, account *chain.Account, state interface{}) error {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(state); err != nil {
		return err
	}
	account.Data = buf.Bytes()
	return store.PutAccount(account)
}
