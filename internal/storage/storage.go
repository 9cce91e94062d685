package storage

import (
	"qraffle/internal/chain"
)

type Storage interface {
	chain.Ledger

	// action
	GetActions(actionType ActionType) ([]*Action, error)
	GetActionsByAddress(address string) ([]*Action, error)
	UpdateActions(actions []*Action) error

	// pending action
	GetPendingSettlementActions() ([]*Action, error)

	// settlement touch
	GetSettlementTouch(raffle string) (*SettlementTouch, error)
	UpdateSettlementTouch(touch *SettlementTouch) error

	Close() error
}

type ActionType = string

const (
	AdminInitializedActionType  ActionType = "AdminInitializedActionType"
	AdminSetActionType          ActionType = "AdminSetActionType"
	RaffleInitializedActionType ActionType = "RaffleInitializedActionType"
	TicketsPurchasedActionType  ActionType = "TicketsPurchasedActionType"
	RaffleClosedActionType      ActionType = "RaffleClosedActionType"
)
