package raffle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
	"qraffle/internal/token"
)

// InitializeAccounts names the accounts a raffle is created over. Entrants
// must be a zeroed region owned by the program, allocated by the caller with
// room for every ticket; ProceedsMint is the asset tickets are paid in.
type InitializeAccounts struct {
	Authority    solana.PublicKey
	Entrants     solana.PublicKey
	ProceedsMint solana.PublicKey
}

// RaffleAccounts are the addresses that identify one raffle.
type RaffleAccounts struct {
	Raffle   solana.PublicKey
	Entrants solana.PublicKey
	Proceeds solana.PublicKey
}

// Initialize creates a raffle selling up to maxEntrants tickets at price
// until endTimestamp. The raffle record, the entrants ledger and the escrow
// appear together or not at all.
func (p *Program) Initialize(ctx context.Context, accounts InitializeAccounts, signers chain.Signers, price uint64, endTimestamp int64, maxEntrants uint32) (RaffleAccounts, error) {
	logger.Debug("initializing raffle...",
		zap.Stringer("entrants", accounts.Entrants),
		zap.Uint64("price", price),
		zap.Int64("end_timestamp", endTimestamp),
		zap.Uint32("max_entrants", maxEntrants),
	)

	var created RaffleAccounts
	_, err := p.execute(ctx, "initialize", func(tx chain.Store, now int64) (Event, error) {
		if err := p.requireAdmin(tx, signers, accounts.Authority); err != nil {
			return Event{}, err
		}
		if now >= endTimestamp {
			return Event{}, ErrEndTimestampAlreadyPassed
		}

		entrantsAccount, err := p.loadOwned(tx, accounts.Entrants)
		if err != nil {
			return Event{}, fmt.Errorf("entrants: %w", err)
		}
		if _, err := InitEntrants(entrantsAccount.Data, maxEntrants); err != nil {
			return Event{}, err
		}
		if err := tx.PutAccount(entrantsAccount); err != nil {
			return Event{}, err
		}

		raffleAddress, raffleBump, err := RaffleAddress(p.id, accounts.Entrants)
		if err != nil {
			return Event{}, err
		}
		raffleSigners, err := signers.WithDerived(p.id, RaffleSeed, accounts.Entrants[:], []byte{raffleBump})
		if err != nil {
			return Event{}, err
		}
		raffleAccount, err := chain.CreateAccount(tx, raffleSigners, accounts.Authority, raffleAddress, RaffleSize, p.id)
		if err != nil {
			return Event{}, fmt.Errorf("raffle: %w", err)
		}
		raffle := &Raffle{
			Bump:         raffleBump,
			Price:        price,
			EndTimestamp: endTimestamp,
			Entrants:     accounts.Entrants,
		}
		if err := writeRecord(raffleAccount.Data, raffleDiscriminator, raffle); err != nil {
			return Event{}, err
		}
		if err := tx.PutAccount(raffleAccount); err != nil {
			return Event{}, err
		}

		proceedsAddress, proceedsBump, err := ProceedsAddress(p.id, raffleAddress)
		if err != nil {
			return Event{}, err
		}
		proceedsSigners, err := signers.WithDerived(p.id, ProceedsSeed, raffleAddress[:], []byte{proceedsBump})
		if err != nil {
			return Event{}, err
		}
		if err := token.CreateAccount(tx, proceedsSigners, accounts.Authority, proceedsAddress, accounts.ProceedsMint, raffleAddress); err != nil {
			return Event{}, fmt.Errorf("proceeds: %w", err)
		}

		created = RaffleAccounts{Raffle: raffleAddress, Entrants: accounts.Entrants, Proceeds: proceedsAddress}
		return newEvent(EventTypeRaffleInitialized, now).
			with("raffle", raffleAddress).
			with("entrants", accounts.Entrants).
			with("proceeds", proceedsAddress).
			with("mint", accounts.ProceedsMint).
			withUint("price", price).
			withInt("end_timestamp", endTimestamp).
			withUint("max_entrants", uint64(maxEntrants)), nil
	})
	if err != nil {
		return RaffleAccounts{}, err
	}
	logger.Info("raffle initialized",
		zap.Stringer("raffle", created.Raffle),
		zap.Uint32("max_entrants", maxEntrants),
	)
	return created, nil
}
