package settler

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
	"qraffle/internal/raffle"
	"qraffle/internal/storage"
)

func (s *Settler) synchronize() (int, error) {
	infos, err := s.program.ListRaffles(s.ctx)
	if err != nil {
		logger.Debug("cannot list raffles, exiting...")
		return 0, err
	}
	s.metrics.SetOpenRaffles(len(infos))

	if err := s.reconcileJournal(infos); err != nil {
		logger.Debug("cannot reconcile journal, exiting...")
		return 0, err
	}

	closed := 0
	for _, info := range infos {
		if !info.Closable {
			continue
		}
		if err := s.ctx.Err(); err != nil {
			return closed, err
		}

		touch, err := s.storage.GetSettlementTouch(info.Address.String())
		if err != nil {
			return closed, err
		}
		closeErr := s.settle(info, touch)
		if err := s.record(info, touch, closeErr); err != nil {
			return closed, err
		}

		switch {
		case closeErr == nil:
			closed++
		case s.ctx.Err() != nil:
			return closed, s.ctx.Err()
		case errors.Is(closeErr, raffle.ErrRaffleStillRunning):
			// The gate is re-evaluated inside the close transaction with
			// its own clock reading.
		default:
			logger.Warn("settlement rejected, retrying next pass",
				zap.Stringer("raffle", info.Address),
				zap.Error(closeErr),
			)
		}
	}
	return closed, nil
}

func (s *Settler) settle(info raffle.RaffleInfo, touch *storage.SettlementTouch) error {
	logger.Info("settling raffle",
		zap.Stringer("raffle", info.Address),
		zap.Uint32("total", info.Total),
		zap.Uint32("max", info.Max),
		zap.Uint64("escrowed", info.Escrowed),
		zap.Int64("attempt", touch.Attempts+1),
	)
	return s.close(info)
}

// record stores the outcome of one close attempt.
func (s *Settler) record(info raffle.RaffleInfo, touch *storage.SettlementTouch, closeErr error) error {
	touch.Attempts++
	touch.TouchedAt = s.clock.Now()
	touch.Settled = closeErr == nil
	touch.LastError = ""
	if closeErr != nil {
		touch.LastError = closeErr.Error()
	}
	if err := s.storage.UpdateSettlementTouch(touch); err != nil {
		return fmt.Errorf("settlement touch %s: %w", info.Address, err)
	}
	return nil
}

func (s *Settler) close(info raffle.RaffleInfo) error {
	message := closeMessage(info)
	signatures, err := chain.Sign(message, s.admin)
	if err != nil {
		return err
	}
	signers, err := chain.VerifySignatures(message, signatures)
	if err != nil {
		return err
	}

	return s.program.Close(s.ctx, raffle.CloseAccounts{
		Raffle:            info.Address,
		Entrants:          info.Raffle.Entrants,
		AuthorityProceeds: s.adminProceeds,
		Authority:         s.admin.PublicKey(),
	}, signers)
}

func closeMessage(info raffle.RaffleInfo) []byte {
	message := make([]byte, 0, len("close")+64)
	message = append(message, "close"...)
	message = append(message, info.Address[:]...)
	return append(message, info.Raffle.Entrants[:]...)
}

// reconcileJournal warns about raffles the journal still expects to settle
// but the ledger no longer holds.
func (s *Settler) reconcileJournal(infos []raffle.RaffleInfo) error {
	pending, err := s.storage.GetPendingSettlementActions()
	if err != nil {
		return err
	}

	open := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		open[info.Address.String()] = struct{}{}
	}
	for _, action := range pending {
		if _, ok := open[action.Address]; !ok {
			logger.Warn("journal lists a raffle the ledger no longer holds",
				zap.String("raffle", action.Address),
				zap.String("transaction id", action.TransactionID),
			)
		}
	}
	return nil
}
