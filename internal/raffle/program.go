// Package raffle is the ticket-sale program: an admin registry, raffle
// records, capacity-bounded entrant ledgers and escrowed proceeds that only
// the raffle's derived address can release.
package raffle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
	"qraffle/internal/metrics"
)

// Program executes raffle operations against a ledger. Every operation is
// one ledger transaction: it commits whole or leaves no trace.
type Program struct {
	id      solana.PublicKey
	ledger  chain.Ledger
	clock   chain.Clock
	emitter Emitter
	metrics *metrics.RaffleMetrics
}

func NewProgram(id solana.PublicKey, ledger chain.Ledger) *Program {
	return &Program{
		id:      id,
		ledger:  ledger,
		clock:   chain.SystemClock{},
		emitter: NoopEmitter{},
	}
}

func (p *Program) ID() solana.PublicKey { return p.id }

// SetClock overrides the time oracle. Passing nil restores the system clock.
func (p *Program) SetClock(clock chain.Clock) {
	if clock == nil {
		clock = chain.SystemClock{}
	}
	p.clock = clock
}

// SetEmitter configures where committed events go. Passing nil drops them.
func (p *Program) SetEmitter(emitter Emitter) {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	p.emitter = emitter
}

func (p *Program) SetMetrics(m *metrics.RaffleMetrics) { p.metrics = m }

// execute runs fn in one ledger transaction. The clock is read once, inside
// the transaction, so the time gate and the commit see the same instant.
func (p *Program) execute(ctx context.Context, operation string, fn func(tx chain.Store, now int64) (Event, error)) (Event, error) {
	var event Event
	err := p.ledger.Transaction(ctx, func(tx chain.Store) error {
		var err error
		event, err = fn(tx, p.clock.Now())
		return err
	})
	p.metrics.ObserveOperation(operation, resultLabel(err))
	if err != nil {
		logger.Debug(operation+": rejected", zap.Error(err))
		return Event{}, err
	}
	p.emitter.Emit(event)
	return event, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if name, ok := ErrorName(err); ok {
		return name
	}
	return "error"
}

func (p *Program) loadOwned(tx chain.Store, address solana.PublicKey) (*chain.Account, error) {
	account, err := tx.GetAccount(address)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", address, err)
	}
	if account.Owner != p.id {
		return nil, fmt.Errorf("account %s: %w", address, chain.ErrIllegalOwner)
	}
	return account, nil
}

func (p *Program) loadAdminSettings(tx chain.Store) (*AdminSettings, *chain.Account, error) {
	address, _, err := AdminSettingsAddress(p.id)
	if err != nil {
		return nil, nil, err
	}
	account, err := p.loadOwned(tx, address)
	if err != nil {
		return nil, nil, fmt.Errorf("admin settings: %w", err)
	}
	var settings AdminSettings
	if err := readRecord(account.Data, adminSettingsDiscriminator, &settings); err != nil {
		return nil, nil, fmt.Errorf("admin settings: %w", err)
	}
	return &settings, account, nil
}

func (p *Program) loadRaffle(tx chain.Store, address solana.PublicKey) (*Raffle, *chain.Account, error) {
	account, err := p.loadOwned(tx, address)
	if err != nil {
		return nil, nil, fmt.Errorf("raffle: %w", err)
	}
	var raffle Raffle
	if err := readRecord(account.Data, raffleDiscriminator, &raffle); err != nil {
		return nil, nil, fmt.Errorf("raffle %s: %w", address, err)
	}
	return &raffle, account, nil
}

func (p *Program) loadEntrants(tx chain.Store, address solana.PublicKey) (*Entrants, *chain.Account, error) {
	account, err := p.loadOwned(tx, address)
	if err != nil {
		return nil, nil, fmt.Errorf("entrants: %w", err)
	}
	entrants, err := LoadEntrants(account.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("entrants %s: %w", address, err)
	}
	return entrants, account, nil
}

// requireAdmin checks that authority is the registered admin and signed.
func (p *Program) requireAdmin(tx chain.Store, signers chain.Signers, authority solana.PublicKey) error {
	settings, _, err := p.loadAdminSettings(tx)
	if err != nil {
		return err
	}
	if settings.AdminKey != authority || !signers.IsSignedBy(authority) {
		return ErrUnauthorized
	}
	return nil
}

// requireUpgradeAuthority checks the deployment trust anchor, which is
// independent of the stored admin.
func (p *Program) requireUpgradeAuthority(tx chain.Store, signers chain.Signers, authority solana.PublicKey) error {
	if !signers.IsSignedBy(authority) {
		return ErrUnauthorized
	}
	ok, err := chain.IsUpgradeAuthority(tx, p.id, authority)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
