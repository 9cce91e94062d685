package settler

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
	"qraffle/internal/token"
)

var ErrNotAdmin = errors.New("settler: configured key is not the registered admin")

// VerifyProgramAccount checks that the program is deployed, that its admin
// is the settler's key and that the proceeds account belongs to that admin.
func (s *Settler) VerifyProgramAccount() error {
	logger.Debug("verify program account: verifying program deployment...")

	programData, err := chain.GetProgramData(s.storage, s.program.ID())
	if err != nil {
		return fmt.Errorf("verify program account: %w", err)
	}
	logger.Debug("verify program account: program data",
		zap.Bool("upgradeable", programData.HasUpgradeAuthority),
		zap.Stringer("upgrade authority", programData.UpgradeAuthority),
	)

	settings, err := s.program.AdminSettings(s.ctx)
	if err != nil {
		return fmt.Errorf("verify program account: admin settings: %w", err)
	}
	if settings.AdminKey != s.admin.PublicKey() {
		logger.Warn("verify program account: admin mismatch",
			zap.Stringer("registered", settings.AdminKey),
			zap.Stringer("configured", s.admin.PublicKey()),
		)
		return ErrNotAdmin
	}

	proceeds, err := token.GetAccount(s.storage, s.adminProceeds)
	if err != nil {
		return fmt.Errorf("verify program account: admin proceeds: %w", err)
	}
	if proceeds.Owner != settings.AdminKey {
		return fmt.Errorf("verify program account: admin proceeds owned by %s", proceeds.Owner)
	}

	logger.Debug("verify program account: verifying program deployment... done")
	return nil
}
