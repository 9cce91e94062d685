package storage

import (
	"go.uber.org/zap"

	"qraffle/internal/logger"
	"qraffle/internal/raffle"
)

var actionTypes = map[string]ActionType{
	raffle.EventTypeAdminInitialized:  AdminInitializedActionType,
	raffle.EventTypeAdminSet:          AdminSetActionType,
	raffle.EventTypeRaffleInitialized: RaffleInitializedActionType,
	raffle.EventTypeTicketsPurchased:  TicketsPurchasedActionType,
	raffle.EventTypeRaffleClosed:      RaffleClosedActionType,
}

// Journal records committed program events as actions.
type Journal struct {
	storage Storage
}

func NewJournal(storage Storage) *Journal {
	return &Journal{storage: storage}
}

// Emit persists event. The operation behind it has already committed, so a
// journal failure is logged and never surfaced.
func (j *Journal) Emit(event raffle.Event) {
	action := NewAction(event)
	if err := j.storage.UpdateActions([]*Action{action}); err != nil {
		logger.Warn("failed to journal event",
			zap.String("type", event.Type),
			zap.String("transaction id", event.TransactionID),
			zap.Error(err),
		)
	}
}

// NewAction maps an event onto its journal row. Raffle events are keyed by
// the raffle address, admin events by the admin.
func NewAction(event raffle.Event) *Action {
	actionType, ok := actionTypes[event.Type]
	if !ok {
		actionType = event.Type
	}
	address, ok := event.Attributes["raffle"]
	if !ok {
		address = event.Attributes["admin"]
	}
	return &Action{
		ActionType:    actionType,
		TransactionID: event.TransactionID,
		Address:       address,
		Timestamp:     event.Timestamp,
		Attributes:    event.Attributes,
	}
}
