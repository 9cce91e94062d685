package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signers is the set of principals that authorized the current operation.
// The zero value is an empty set.
type Signers struct {
	keys map[solana.PublicKey]struct{}
}

func NewSigners(keys ...solana.PublicKey) Signers {
	return Signers{}.With(keys...)
}

func (s Signers) IsSignedBy(key solana.PublicKey) bool {
	_, ok := s.keys[key]
	return ok
}

// With returns a copy of the set extended with keys.
func (s Signers) With(keys ...solana.PublicKey) Signers {
	next := make(map[solana.PublicKey]struct{}, len(s.keys)+len(keys))
	for key := range s.keys {
		next[key] = struct{}{}
	}
	for _, key := range keys {
		next[key] = struct{}{}
	}
	return Signers{keys: next}
}

// WithDerived returns a copy of the set extended with the address derived
// from seeds under program. The seeds must include the bump, so the address
// is recomputed rather than trusted.
func (s Signers) WithDerived(program solana.PublicKey, seeds ...[]byte) (Signers, error) {
	address, err := solana.CreateProgramAddress(seeds, program)
	if err != nil {
		return Signers{}, fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
	}
	return s.With(address), nil
}

// Signature pairs a principal with its ed25519 signature over a message.
type Signature struct {
	Signer    solana.PublicKey
	Signature solana.Signature
}

// Sign signs message with every key.
func Sign(message []byte, keys ...solana.PrivateKey) ([]Signature, error) {
	signatures := make([]Signature, 0, len(keys))
	for _, key := range keys {
		signature, err := key.Sign(message)
		if err != nil {
			return nil, err
		}
		signatures = append(signatures, Signature{Signer: key.PublicKey(), Signature: signature})
	}
	return signatures, nil
}

// VerifySignatures checks every signature against message and returns the
// signer set. A single bad signature rejects the whole set.
func VerifySignatures(message []byte, signatures []Signature) (Signers, error) {
	keys := make([]solana.PublicKey, 0, len(signatures))
	for _, signature := range signatures {
		if !signature.Signature.Verify(signature.Signer, message) {
			return Signers{}, fmt.Errorf("%w: %s", ErrSignatureVerification, signature.Signer)
		}
		keys = append(keys, signature.Signer)
	}
	return NewSigners(keys...), nil
}
