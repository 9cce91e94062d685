package raffle

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	// EntrantsHeaderSize covers the discriminator, total and max.
	EntrantsHeaderSize = DiscriminatorSize + 4 + 4
	EntrantSize        = 32

	totalOffset = DiscriminatorSize
	maxOffset   = DiscriminatorSize + 4
)

// EntrantsSpace returns the region size needed for maxEntrants tickets.
func EntrantsSpace(maxEntrants uint32) uint64 {
	return EntrantsHeaderSize + EntrantSize*uint64(maxEntrants)
}

// Entrants is the ticket ledger: a fixed header followed by a flat array of
// 32-byte identities, viewed in place over the account's data region. Slot i
// holds ticket number i.
type Entrants struct {
	data []byte
}

// InitEntrants formats a never-used region as an empty ledger of capacity
// maxEntrants. The region must already be large enough; it never grows.
func InitEntrants(data []byte, maxEntrants uint32) (*Entrants, error) {
	if uint64(len(data)) < EntrantsSpace(maxEntrants) {
		return nil, ErrEntrantsAccountTooSmallForMaxEntrants
	}
	for _, b := range data[:DiscriminatorSize] {
		if b != 0 {
			return nil, ErrAccountNotZeroed
		}
	}
	copy(data, entrantsDiscriminator[:])
	binary.LittleEndian.PutUint32(data[totalOffset:], 0)
	binary.LittleEndian.PutUint32(data[maxOffset:], maxEntrants)
	return &Entrants{data: data}, nil
}

// LoadEntrants validates and wraps an initialized ledger region.
func LoadEntrants(data []byte) (*Entrants, error) {
	if len(data) < EntrantsHeaderSize || !hasDiscriminator(data, entrantsDiscriminator) {
		return nil, ErrAccountDiscriminatorMismatch
	}
	e := &Entrants{data: data}
	if e.Total() > e.Max() || uint64(len(data)) < EntrantsSpace(e.Max()) {
		return nil, fmt.Errorf("entrants ledger corrupt: total %d, max %d, %d bytes", e.Total(), e.Max(), len(data))
	}
	return e, nil
}

func (e *Entrants) Total() uint32 { return binary.LittleEndian.Uint32(e.data[totalOffset:]) }

func (e *Entrants) Max() uint32 { return binary.LittleEndian.Uint32(e.data[maxOffset:]) }

func (e *Entrants) Remaining() uint32 { return e.Max() - e.Total() }

func (e *Entrants) Full() bool { return e.Total() == e.Max() }

// Get returns the holder of ticket index.
func (e *Entrants) Get(index uint32) (solana.PublicKey, error) {
	if index >= e.Total() || index >= e.Max() {
		return solana.PublicKey{}, ErrEntrantIndexOutOfRange
	}
	start, err := e.slot(index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(e.data[start : start+EntrantSize]), nil
}

// All returns every sold ticket in ticket-number order.
func (e *Entrants) All() []solana.PublicKey {
	total := e.Total()
	entrants := make([]solana.PublicKey, 0, total)
	for i := uint32(0); i < total; i++ {
		entrant, err := e.Get(i)
		if err != nil {
			break
		}
		entrants = append(entrants, entrant)
	}
	return entrants
}

// Append writes entrant into the next free slot.
func (e *Entrants) Append(entrant solana.PublicKey) error {
	total := e.Total()
	if total >= e.Max() {
		return ErrNotEnoughTicketsLeft
	}
	start, err := e.slot(total)
	if err != nil {
		return err
	}
	copy(e.data[start:start+EntrantSize], entrant[:])
	binary.LittleEndian.PutUint32(e.data[totalOffset:], total+1)
	return nil
}

// AppendN writes count copies of entrant. Capacity is checked once up front
// so a batch is either sold whole or not at all.
func (e *Entrants) AppendN(entrant solana.PublicKey, count uint32) error {
	if count > e.Remaining() {
		return ErrNotEnoughTicketsLeft
	}
	for i := uint32(0); i < count; i++ {
		if err := e.Append(entrant); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the underlying region.
func (e *Entrants) Bytes() []byte { return e.data }

func (e *Entrants) slot(index uint32) (uint64, error) {
	start := EntrantsSpace(index)
	if start+EntrantSize > uint64(len(e.data)) {
		return 0, ErrEntrantIndexOutOfRange
	}
	return start, nil
}
