package raffle

import (
	"github.com/gagliardetto/solana-go"
)

var (
	AdminSeed    = []byte("admin")
	RaffleSeed   = []byte("raffle")
	ProceedsSeed = []byte("proceeds")
)

// AdminSettingsAddress derives the well-known authority registry address.
func AdminSettingsAddress(program solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{AdminSeed}, program)
}

// RaffleAddress derives the raffle record bound to an entrants ledger. The
// derivation is what makes one ledger back at most one raffle.
func RaffleAddress(program, entrants solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{RaffleSeed, entrants[:]}, program)
}

// ProceedsAddress derives the escrow token account of a raffle.
func ProceedsAddress(program, raffle solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{ProceedsSeed, raffle[:]}, program)
}
