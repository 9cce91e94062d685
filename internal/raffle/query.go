package raffle

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/gagliardetto/solana-go"

	"qraffle/internal/chain"
	"qraffle/internal/token"
)

// RaffleInfo is a read-only projection of one open raffle.
type RaffleInfo struct {
	Address  solana.PublicKey
	Proceeds solana.PublicKey
	Raffle   Raffle
	Total    uint32
	Max      uint32
	Escrowed uint64
	Closable bool
}

func (p *Program) view(ctx context.Context, fn func(tx chain.Store) error) error {
	return p.ledger.Transaction(ctx, fn)
}

// AdminSettings returns the registered authority.
func (p *Program) AdminSettings(ctx context.Context) (*AdminSettings, error) {
	var settings *AdminSettings
	err := p.view(ctx, func(tx chain.Store) error {
		var err error
		settings, _, err = p.loadAdminSettings(tx)
		return err
	})
	return settings, err
}

func (p *Program) Raffle(ctx context.Context, address solana.PublicKey) (*Raffle, error) {
	var raffle *Raffle
	err := p.view(ctx, func(tx chain.Store) error {
		var err error
		raffle, _, err = p.loadRaffle(tx, address)
		return err
	})
	return raffle, err
}

// Entrants returns every sold ticket of the ledger in ticket order.
func (p *Program) Entrants(ctx context.Context, address solana.PublicKey) ([]solana.PublicKey, error) {
	var all []solana.PublicKey
	err := p.view(ctx, func(tx chain.Store) error {
		entrants, _, err := p.loadEntrants(tx, address)
		if err != nil {
			return err
		}
		all = entrants.All()
		return nil
	})
	return all, err
}

// Entrant returns the holder of ticket index.
func (p *Program) Entrant(ctx context.Context, address solana.PublicKey, index uint32) (solana.PublicKey, error) {
	var entrant solana.PublicKey
	err := p.view(ctx, func(tx chain.Store) error {
		entrants, _, err := p.loadEntrants(tx, address)
		if err != nil {
			return err
		}
		entrant, err = entrants.Get(index)
		return err
	})
	return entrant, err
}

// ListRaffles returns every open raffle ordered by address.
func (p *Program) ListRaffles(ctx context.Context) ([]RaffleInfo, error) {
	var infos []RaffleInfo
	err := p.view(ctx, func(tx chain.Store) error {
		owned, err := tx.AccountsByOwner(p.id)
		if err != nil {
			return err
		}
		now := p.clock.Now()
		for _, account := range owned {
			if !hasDiscriminator(account.Data, raffleDiscriminator) {
				continue
			}
			info, err := p.describe(tx, account.Address, now)
			if err != nil {
				return err
			}
			infos = append(infos, *info)
		}
		return nil
	})
	// Ledgers differ in how they order owned accounts.
	sort.Slice(infos, func(i, j int) bool {
		return bytes.Compare(infos[i].Address[:], infos[j].Address[:]) < 0
	})
	return infos, err
}

// Closable reports whether Close would pass its time and capacity gate now.
func (p *Program) Closable(ctx context.Context, address solana.PublicKey) (bool, error) {
	var ok bool
	err := p.view(ctx, func(tx chain.Store) error {
		info, err := p.describe(tx, address, p.clock.Now())
		if err != nil {
			return err
		}
		ok = info.Closable
		return nil
	})
	return ok, err
}

func (p *Program) describe(tx chain.Store, address solana.PublicKey, now int64) (*RaffleInfo, error) {
	raffle, _, err := p.loadRaffle(tx, address)
	if err != nil {
		return nil, err
	}
	entrants, _, err := p.loadEntrants(tx, raffle.Entrants)
	if err != nil {
		return nil, err
	}
	proceeds, _, err := ProceedsAddress(p.id, address)
	if err != nil {
		return nil, err
	}
	info := &RaffleInfo{
		Address:  address,
		Proceeds: proceeds,
		Raffle:   *raffle,
		Total:    entrants.Total(),
		Max:      entrants.Max(),
		Closable: closable(raffle, entrants, now),
	}
	escrow, err := token.GetAccount(tx, proceeds)
	switch {
	case err == nil:
		info.Escrowed = escrow.Amount
	case !errors.Is(err, chain.ErrAccountNotFound):
		return nil, err
	}
	return info, nil
}
