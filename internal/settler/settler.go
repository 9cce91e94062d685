// Package settler closes raffles once they may be closed, signing as the
// configured admin and paying every escrow into the admin's proceeds account.
package settler

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
	"qraffle/internal/metrics"
	"qraffle/internal/raffle"
	"qraffle/internal/storage"
)

type Settler struct {
	ctx           context.Context
	storage       storage.Storage
	program       *raffle.Program
	clock         chain.Clock
	metrics       *metrics.RaffleMetrics
	admin         solana.PrivateKey
	adminProceeds solana.PublicKey
}

func NewSettler(ctx context.Context, storage storage.Storage, program *raffle.Program, admin solana.PrivateKey, adminProceeds solana.PublicKey) *Settler {
	logger.Debug("settler initialization",
		zap.Stringer("program", program.ID()),
		zap.Stringer("admin", admin.PublicKey()),
		zap.Stringer("admin proceeds", adminProceeds),
	)
	return &Settler{
		ctx:           ctx,
		storage:       storage,
		program:       program,
		clock:         chain.SystemClock{},
		admin:         admin,
		adminProceeds: adminProceeds,
	}
}

// SetClock sets the clock used to stamp settlement touches. Passing nil
// restores the system clock.
func (s *Settler) SetClock(clock chain.Clock) {
	if clock == nil {
		clock = chain.SystemClock{}
	}
	s.clock = clock
}

func (s *Settler) SetMetrics(m *metrics.RaffleMetrics) { s.metrics = m }

// Run performs one settlement pass and returns how many raffles it closed.
// A rejected close is recorded as a settlement touch and does not stop the
// pass; only a cancelled context or a storage failure does.
func (s *Settler) Run() (int, error) {
	logger.Debug("settlement pass...")
	closed, err := s.synchronize()
	if err != nil {
		return closed, err
	}
	logger.Debug("settlement pass... done", zap.Int("closed", closed))
	return closed, nil
}

func (s *Settler) Finalize() {
	logger.Info("settler stopped")
}
