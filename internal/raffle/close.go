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

// CloseAccounts names the accounts a settlement touches. AuthorityProceeds
// receives the escrow balance and must be owned by Authority; Authority also
// receives every deposit.
type CloseAccounts struct {
	Raffle            solana.PublicKey
	Entrants          solana.PublicKey
	AuthorityProceeds solana.PublicKey
	Authority         solana.PublicKey
}

// Close settles a raffle that has ended or sold out: the escrow is paid to
// the admin and the raffle, ledger and escrow are torn down.
func (p *Program) Close(ctx context.Context, accounts CloseAccounts, signers chain.Signers) error {
	logger.Debug("closing raffle...", zap.Stringer("raffle", accounts.Raffle))

	var settled uint64
	_, err := p.execute(ctx, "close", func(tx chain.Store, now int64) (Event, error) {
		if err := p.requireAdmin(tx, signers, accounts.Authority); err != nil {
			return Event{}, err
		}
		raffle, _, err := p.loadRaffle(tx, accounts.Raffle)
		if err != nil {
			return Event{}, err
		}
		if raffle.Entrants != accounts.Entrants {
			return Event{}, ErrEntrantsMismatch
		}
		entrants, _, err := p.loadEntrants(tx, accounts.Entrants)
		if err != nil {
			return Event{}, err
		}
		receiver, err := token.GetAccount(tx, accounts.AuthorityProceeds)
		if err != nil {
			return Event{}, fmt.Errorf("authority proceeds: %w", err)
		}
		if receiver.Owner != accounts.Authority {
			return Event{}, ErrProceedsOwnerMismatch
		}
		if !closable(raffle, entrants, now) {
			return Event{}, ErrRaffleStillRunning
		}

		proceedsAddress, _, err := ProceedsAddress(p.id, accounts.Raffle)
		if err != nil {
			return Event{}, err
		}
		proceeds, err := token.GetAccount(tx, proceedsAddress)
		if err != nil {
			return Event{}, fmt.Errorf("proceeds: %w", err)
		}
		escrow, err := chain.Signers{}.WithDerived(p.id, RaffleSeed, raffle.Entrants[:], []byte{raffle.Bump})
		if err != nil {
			return Event{}, err
		}
		if err := token.Transfer(tx, escrow, proceedsAddress, accounts.AuthorityProceeds, accounts.Raffle, proceeds.Amount); err != nil {
			return Event{}, fmt.Errorf("proceeds: %w", err)
		}
		if err := token.CloseAccount(tx, escrow, proceedsAddress, accounts.Authority, accounts.Raffle); err != nil {
			return Event{}, fmt.Errorf("proceeds: %w", err)
		}
		if err := chain.CloseAccount(tx, p.id, accounts.Raffle, accounts.Authority); err != nil {
			return Event{}, err
		}
		if err := chain.CloseAccount(tx, p.id, accounts.Entrants, accounts.Authority); err != nil {
			return Event{}, err
		}

		settled = proceeds.Amount
		return newEvent(EventTypeRaffleClosed, now).
			with("raffle", accounts.Raffle).
			with("entrants", accounts.Entrants).
			with("authority", accounts.Authority).
			withUint("proceeds", proceeds.Amount).
			withUint("total", uint64(entrants.Total())), nil
	})
	if err != nil {
		return err
	}

	p.metrics.AddProceedsSettled(settled)
	logger.Info("raffle closed", zap.Stringer("raffle", accounts.Raffle), zap.Uint64("proceeds", settled))
	return nil
}

// closable reports whether a raffle may be settled at now: strictly after
// its deadline, or once every ticket is sold.
func closable(raffle *Raffle, entrants *Entrants, now int64) bool {
	return now > raffle.EndTimestamp || entrants.Full()
}
