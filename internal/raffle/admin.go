package raffle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
)

// InitAdminAccounts names the accounts init_admin touches. Authority pays
// for the registry and must be the program's upgrade authority.
type InitAdminAccounts struct {
	Authority solana.PublicKey
}

type SetAdminAccounts struct {
	Authority solana.PublicKey
}

// InitAdmin creates the authority registry with adminKey. It succeeds once;
// a second call finds the registry address in use.
func (p *Program) InitAdmin(ctx context.Context, accounts InitAdminAccounts, signers chain.Signers, adminKey solana.PublicKey) error {
	logger.Debug("initializing admin settings...", zap.Stringer("admin", adminKey))
	_, err := p.execute(ctx, "init_admin", func(tx chain.Store, now int64) (Event, error) {
		if err := p.requireUpgradeAuthority(tx, signers, accounts.Authority); err != nil {
			return Event{}, err
		}
		if adminKey == (solana.PublicKey{}) {
			return Event{}, ErrInvalidAdminKey
		}

		address, bump, err := AdminSettingsAddress(p.id)
		if err != nil {
			return Event{}, err
		}
		creators, err := signers.WithDerived(p.id, AdminSeed, []byte{bump})
		if err != nil {
			return Event{}, err
		}
		account, err := chain.CreateAccount(tx, creators, accounts.Authority, address, AdminSettingsSize, p.id)
		if err != nil {
			return Event{}, fmt.Errorf("admin settings: %w", err)
		}
		if err := writeRecord(account.Data, adminSettingsDiscriminator, &AdminSettings{AdminKey: adminKey}); err != nil {
			return Event{}, err
		}
		if err := tx.PutAccount(account); err != nil {
			return Event{}, err
		}
		return newEvent(EventTypeAdminInitialized, now).
			with("admin", adminKey).
			with("authority", accounts.Authority), nil
	})
	if err != nil {
		return err
	}
	logger.Info("admin settings initialized", zap.Stringer("admin", adminKey))
	return nil
}

// SetAdmin replaces the registered admin. Only the upgrade authority is
// checked; the current admin's consent is not required.
func (p *Program) SetAdmin(ctx context.Context, accounts SetAdminAccounts, signers chain.Signers, adminKey solana.PublicKey) error {
	logger.Debug("setting admin...", zap.Stringer("admin", adminKey))
	_, err := p.execute(ctx, "set_admin", func(tx chain.Store, now int64) (Event, error) {
		if err := p.requireUpgradeAuthority(tx, signers, accounts.Authority); err != nil {
			return Event{}, err
		}
		if adminKey == (solana.PublicKey{}) {
			return Event{}, ErrInvalidAdminKey
		}

		settings, account, err := p.loadAdminSettings(tx)
		if err != nil {
			return Event{}, err
		}
		previous := settings.AdminKey
		settings.AdminKey = adminKey
		if err := writeRecord(account.Data, adminSettingsDiscriminator, settings); err != nil {
			return Event{}, err
		}
		if err := tx.PutAccount(account); err != nil {
			return Event{}, err
		}
		return newEvent(EventTypeAdminSet, now).
			with("admin", adminKey).
			with("previous", previous).
			with("authority", accounts.Authority), nil
	})
	if err != nil {
		return err
	}
	logger.Info("admin replaced", zap.Stringer("admin", adminKey))
	return nil
}
