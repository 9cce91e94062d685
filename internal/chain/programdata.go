package chain

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// BPFLoaderUpgradeableProgramID owns the program-data accounts that record
// each program's upgrade authority.
var BPFLoaderUpgradeableProgramID = solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")

// ProgramData is the deployment record of a program.
type ProgramData struct {
	HasUpgradeAuthority bool
	UpgradeAuthority    solana.PublicKey
}

// ProgramDataAddress derives the program-data address of program.
func ProgramDataAddress(program solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solana.FindProgramAddress([][]byte{program[:]}, BPFLoaderUpgradeableProgramID)
	return address, err
}

// Deploy records program with the given upgrade authority. A zero authority
// deploys the program as immutable.
func Deploy(store Store, program, upgradeAuthority solana.PublicKey) error {
	address, err := ProgramDataAddress(program)
	if err != nil {
		return err
	}
	exists, err := Exists(store, address)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("deploy %s: %w", program, ErrAccountAlreadyInUse)
	}

	record := ProgramData{
		HasUpgradeAuthority: upgradeAuthority != (solana.PublicKey{}),
		UpgradeAuthority:    upgradeAuthority,
	}
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(record); err != nil {
		return err
	}
	return store.PutAccount(&Account{
		Address:  address,
		Owner:    BPFLoaderUpgradeableProgramID,
		Lamports: MinimumBalance(uint64(buf.Len())),
		Data:     buf.Bytes(),
	})
}

// GetProgramData loads the deployment record of program.
func GetProgramData(store Store, program solana.PublicKey) (*ProgramData, error) {
	address, err := ProgramDataAddress(program)
	if err != nil {
		return nil, err
	}
	account, err := store.GetAccount(address)
	if err != nil {
		return nil, fmt.Errorf("program data of %s: %w", program, err)
	}
	if account.Owner != BPFLoaderUpgradeableProgramID {
		return nil, fmt.Errorf("program data of %s: %w", program, ErrIllegalOwner)
	}
	var record ProgramData
	if err := bin.NewBorshDecoder(account.Data).Decode(&record); err != nil {
		return nil, fmt.Errorf("program data of %s: %w", program, err)
	}
	return &record, nil
}

// IsUpgradeAuthority reports whether principal is the current upgrade
// authority of program. An undeployed or immutable program has none.
func IsUpgradeAuthority(store Store, program, principal solana.PublicKey) (bool, error) {
	record, err := GetProgramData(store, program)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.HasUpgradeAuthority && record.UpgradeAuthority == principal, nil
}
