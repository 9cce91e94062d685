package chain

const (
	// AccountStorageOverhead is charged on top of the data length of every
	// account when computing its deposit.
	AccountStorageOverhead = 128
	LamportsPerByteYear    = 3480
	ExemptionThreshold     = 2
)

// MinimumBalance returns the rent-exempt deposit for an account holding
// space bytes of data.
func MinimumBalance(space uint64) uint64 {
	return (AccountStorageOverhead + space) * LamportsPerByteYear * ExemptionThreshold
}
