package raffle

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

const (
	EventTypeAdminInitialized  = "raffle.admin.initialized"
	EventTypeAdminSet          = "raffle.admin.set"
	EventTypeRaffleInitialized = "raffle.initialized"
	EventTypeTicketsPurchased  = "raffle.tickets.purchased"
	EventTypeRaffleClosed      = "raffle.closed"
)

// Event describes one committed operation. TransactionID is unique per
// operation.
type Event struct {
	Type          string
	TransactionID string
	Timestamp     int64
	Attributes    map[string]string
}

// Emitter receives events after their operation has committed.
type Emitter interface {
	Emit(Event)
}

type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

func newEvent(eventType string, timestamp int64) Event {
	return Event{
		Type:          eventType,
		TransactionID: uuid.NewString(),
		Timestamp:     timestamp,
		Attributes:    make(map[string]string),
	}
}

func (e Event) with(key string, value solana.PublicKey) Event {
	e.Attributes[key] = value.String()
	return e
}

func (e Event) withUint(key string, value uint64) Event {
	e.Attributes[key] = strconv.FormatUint(value, 10)
	return e
}

func (e Event) withInt(key string, value int64) Event {
	e.Attributes[key] = strconv.FormatInt(value, 10)
	return e
}
