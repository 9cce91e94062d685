package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qraffle/internal/chain"
	"qraffle/internal/logger"
)

var _ Storage = (*SqliteStorage)(nil)

type SqliteStorage struct {
	db *gorm.DB
}

// NewSqliteStorage opens the database at path and migrates it. A single
// connection is kept open so transactions never overlap.
func NewSqliteStorage(path string) (*SqliteStorage, error) {
	logger.Debug("initializing database...", zap.String("path", path))
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&AccountRecord{},
		&Action{},
		&SettlementTouch{},
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("initializing database... done")
	return &SqliteStorage{
		db: db,
	}, nil
}

func (s *SqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a store bound to one database transaction.
func (s *SqliteStorage) Transaction(ctx context.Context, fn func(tx chain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SqliteStorage{db: tx})
	})
}

func (s *SqliteStorage) GetAccount(address solana.PublicKey) (*chain.Account, error) {
	var records []*AccountRecord
	err := s.db.Where("address = ?", address.String()).Limit(1).Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, chain.ErrAccountNotFound
	}
	return records[0].account()
}

func (s *SqliteStorage) PutAccount(account *chain.Account) error {
	record := &AccountRecord{
		Address:  account.Address.String(),
		Owner:    account.Owner.String(),
		Lamports: account.Lamports,
		Data:     account.Data,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner", "lamports", "data"}),
	}).Create(record).Error
}

func (s *SqliteStorage) DeleteAccount(address solana.PublicKey) error {
	return s.db.Where("address = ?", address.String()).Delete(&AccountRecord{}).Error
}

func (s *SqliteStorage) AccountsByOwner(owner solana.PublicKey) ([]*chain.Account, error) {
	var records []*AccountRecord
	err := s.db.Where("owner = ?", owner.String()).Order("address").Find(&records).Error
	if err != nil {
		return nil, err
	}

	accounts := make([]*chain.Account, 0, len(records))
	for _, record := range records {
		account, err := record.account()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *AccountRecord) account() (*chain.Account, error) {
	address, err := solana.PublicKeyFromBase58(r.Address)
	if err != nil {
		return nil, fmt.Errorf("account record %q: %w", r.Address, err)
	}
	owner, err := solana.PublicKeyFromBase58(r.Owner)
	if err != nil {
		return nil, fmt.Errorf("account record %q owner: %w", r.Address, err)
	}
	data := make([]byte, len(r.Data))
	copy(data, r.Data)
	return &chain.Account{
		Address:  address,
		Owner:    owner,
		Lamports: r.Lamports,
		Data:     data,
	}, nil
}

func (s *SqliteStorage) GetActions(actionType ActionType) ([]*Action, error) {
	var actions []*Action
	err := s.db.Where("action_type = ?", actionType).Order("id").Find(&actions).Error
	if err != nil {
		return nil, err
	}

	return actions, nil
}

func (s *SqliteStorage) GetActionsByAddress(address string) ([]*Action, error) {
	var actions []*Action
	err := s.db.Where("address = ?", address).Order("id").Find(&actions).Error
	if err != nil {
		return nil, err
	}

	return actions, nil
}

func (s *SqliteStorage) UpdateActions(actions []*Action) error {
	logger.Debug("update journal actions...")

	if len(actions) == 0 {
		logger.Debug("no journal actions to persist")
		return nil
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).CreateInBatches(actions, 100).Error
	if err != nil {
		return err
	}

	logger.Debug("update journal actions... done")
	return nil
}

// GetPendingSettlementActions returns the initialization action of every
// raffle the journal has not yet seen closed.
func (s *SqliteStorage) GetPendingSettlementActions() ([]*Action, error) {
	logger.Debug("getting pending settlement actions...")

	rows, err := s.db.Raw(`
		select a.*
		from actions a
			left join actions c on c.address = a.address and c.action_type = ?
		where a.action_type = ? and c.id is null
		order by a.id
	`, RaffleClosedActionType, RaffleInitializedActionType).Rows()
	if err != nil {
		return nil, err
	}

	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Warn("closing rows", zap.Error(err))
		}
	}(rows)

	var actions = make([]*Action, 0)
	for rows.Next() {
		var action Action

		if err := s.db.ScanRows(rows, &action); err != nil {
			return nil, err
		}

		actions = append(actions, &action)
	}

	logger.Debug("getting pending settlement actions... done", zap.Int("count", len(actions)))
	return actions, rows.Err()
}

// GetSettlementTouch returns the settler's bookkeeping for raffle, or a fresh
// touch when the raffle has never been attempted.
func (s *SqliteStorage) GetSettlementTouch(raffle string) (*SettlementTouch, error) {
	var touches []*SettlementTouch
	err := s.db.Where("raffle = ?", raffle).Limit(1).Find(&touches).Error
	if err != nil {
		return nil, err
	}
	if len(touches) == 0 {
		return &SettlementTouch{Raffle: raffle}, nil
	}
	return touches[0], nil
}

func (s *SqliteStorage) UpdateSettlementTouch(touch *SettlementTouch) error {
	logger.Debug("updating settlement touch...", zap.String("raffle", touch.Raffle))

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "raffle"}},
		DoUpdates: clause.AssignmentColumns([]string{"attempts", "last_error", "touched_at", "settled"}),
	}).Create(touch).Error
	if err != nil {
		return err
	}

	logger.Debug("updating settlement touch... done")
	return nil
}
