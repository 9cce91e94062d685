package raffle

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
	"qraffle/internal/token"
)

// BuyAccounts names the accounts a purchase touches. Tickets are recorded
// for the owner of BuyerTokenAccount; Buyer authorizes the payment.
type BuyAccounts struct {
	Raffle            solana.PublicKey
	Entrants          solana.PublicKey
	BuyerTokenAccount solana.PublicKey
	Buyer             solana.PublicKey
}

// Buy sells amount tickets. The batch is sold whole or rejected whole, and
// the payment moves in the same transaction as the tickets.
func (p *Program) Buy(ctx context.Context, accounts BuyAccounts, signers chain.Signers, amount uint32) error {
	var total uint32
	var cost uint64
	_, err := p.execute(ctx, "buy", func(tx chain.Store, now int64) (Event, error) {
		raffle, _, err := p.loadRaffle(tx, accounts.Raffle)
		if err != nil {
			return Event{}, err
		}
		if raffle.Entrants != accounts.Entrants {
			return Event{}, ErrEntrantsMismatch
		}
		if now >= raffle.EndTimestamp {
			return Event{}, ErrRaffleEnded
		}

		entrants, entrantsAccount, err := p.loadEntrants(tx, accounts.Entrants)
		if err != nil {
			return Event{}, err
		}
		if amount > entrants.Remaining() {
			return Event{}, ErrNotEnoughTicketsLeft
		}
		hi, lo := bits.Mul64(raffle.Price, uint64(amount))
		if hi != 0 {
			return Event{}, ErrInvalidCalculation
		}

		buyer, err := token.GetAccount(tx, accounts.BuyerTokenAccount)
		if err != nil {
			return Event{}, fmt.Errorf("buyer: %w", err)
		}
		if err := entrants.AppendN(buyer.Owner, amount); err != nil {
			return Event{}, err
		}
		if err := tx.PutAccount(entrantsAccount); err != nil {
			return Event{}, err
		}

		proceeds, _, err := ProceedsAddress(p.id, accounts.Raffle)
		if err != nil {
			return Event{}, err
		}
		if err := token.Transfer(tx, signers, accounts.BuyerTokenAccount, proceeds, accounts.Buyer, lo); err != nil {
			return Event{}, err
		}

		total, cost = entrants.Total(), lo
		return newEvent(EventTypeTicketsPurchased, now).
			with("raffle", accounts.Raffle).
			with("entrant", buyer.Owner).
			withUint("amount", uint64(amount)).
			withUint("cost", lo).
			withUint("total", uint64(total)), nil
	})
	if err != nil {
		return err
	}

	p.metrics.AddTicketsSold(amount)
	p.metrics.AddProceedsEscrowed(cost)
	logger.Debug(fmt.Sprintf("total entrants: %d", total),
		zap.Stringer("raffle", accounts.Raffle),
		zap.Uint64("cost", cost),
	)
	return nil
}
