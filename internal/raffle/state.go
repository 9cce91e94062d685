package raffle

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	DiscriminatorSize = 8
	AdminSettingsSize = DiscriminatorSize + 32
	RaffleSize        = DiscriminatorSize + 1 + 8 + 8 + 32
)

var (
	adminSettingsDiscriminator = discriminator("AdminSettings")
	raffleDiscriminator        = discriminator("Raffle")
	entrantsDiscriminator      = discriminator("Entrants")
)

// AdminSettings is the authority registry. A single instance lives at the
// address derived from the "admin" seed.
type AdminSettings struct {
	AdminKey solana.PublicKey
}

// Raffle holds the parameters of one ticket sale. Entrants never changes
// after creation; Bump reconstructs the raffle's own derived address.
type Raffle struct {
	Bump         uint8
	Price        uint64
	EndTimestamp int64
	Entrants     solana.PublicKey
}

func discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

func hasDiscriminator(data []byte, d [DiscriminatorSize]byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], d[:])
}

// writeRecord encodes v behind its discriminator into the start of data.
func writeRecord(data []byte, d [DiscriminatorSize]byte, v interface{}) error {
	var buf bytes.Buffer
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return err
	}
	if buf.Len() > len(data) {
		return fmt.Errorf("record needs %d bytes, account holds %d", buf.Len(), len(data))
	}
	copy(data, buf.Bytes())
	return nil
}

func readRecord(data []byte, d [DiscriminatorSize]byte, v interface{}) error {
	if !hasDiscriminator(data, d) {
		return ErrAccountDiscriminatorMismatch
	}
	return bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(v)
}
