package chain

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
)

// SystemProgramID owns plain lamport-holding wallets.
var SystemProgramID = solana.SystemProgramID

// Fund credits lamports to address, creating a system account when none
// exists yet.
func Fund(store Store, address solana.PublicKey, lamports uint64) error {
	return credit(store, address, lamports)
}

// CreateAccount allocates a zeroed account of space bytes owned by owner and
// funds its rent-exempt deposit from payer. Both payer and address must be
// signers; a derived address signs through Signers.WithDerived.
func CreateAccount(store Store, signers Signers, payer, address solana.PublicKey, space uint64, owner solana.PublicKey) (*Account, error) {
	if !signers.IsSignedBy(payer) {
		return nil, fmt.Errorf("create account: payer %s: %w", payer, ErrMissingSignature)
	}
	if !signers.IsSignedBy(address) {
		return nil, fmt.Errorf("create account: %s: %w", address, ErrMissingSignature)
	}

	exists, err := Exists(store, address)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("create account: %s: %w", address, ErrAccountAlreadyInUse)
	}

	deposit := MinimumBalance(space)
	if err := debit(store, payer, deposit); err != nil {
		return nil, fmt.Errorf("create account: payer %s: %w", payer, err)
	}

	account := &Account{
		Address:  address,
		Owner:    owner,
		Lamports: deposit,
		Data:     make([]byte, space),
	}
	if err := store.PutAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// CloseAccount tears down an account owned by program, moving its whole
// deposit to destination.
func CloseAccount(store Store, program, address, destination solana.PublicKey) error {
	account, err := store.GetAccount(address)
	if err != nil {
		return fmt.Errorf("close account %s: %w", address, err)
	}
	if account.Owner != program {
		return fmt.Errorf("close account %s: %w", address, ErrIllegalOwner)
	}
	return Drain(store, account, destination)
}

// Drain moves the deposit of an already validated account to destination and
// deletes it.
func Drain(store Store, account *Account, destination solana.PublicKey) error {
	if account.Address == destination {
		return fmt.Errorf("close account %s: destination is the account itself", account.Address)
	}
	if err := credit(store, destination, account.Lamports); err != nil {
		return fmt.Errorf("close account %s: %w", account.Address, err)
	}
	return store.DeleteAccount(account.Address)
}

func credit(store Store, address solana.PublicKey, lamports uint64) error {
	account, err := store.GetAccount(address)
	if errors.Is(err, ErrAccountNotFound) {
		account = &Account{Address: address, Owner: SystemProgramID}
	} else if err != nil {
		return err
	}
	sum, carry := bits.Add64(account.Lamports, lamports, 0)
	if carry != 0 {
		return ErrLamportsOverflow
	}
	account.Lamports = sum
	return store.PutAccount(account)
}

func debit(store Store, address solana.PublicKey, lamports uint64) error {
	account, err := store.GetAccount(address)
	if err != nil {
		return err
	}
	if account.Lamports < lamports {
		return ErrInsufficientLamports
	}
	account.Lamports -= lamports
	return store.PutAccount(account)
}
