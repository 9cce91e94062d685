package storage

type AccountRecord struct {
	Address  string `gorm:"primaryKey"`
	Owner    string `gorm:"index;not null"`
	Lamports uint64 `gorm:"not null"`
	Data     []byte
}

type Action struct {
	ID            int64             `gorm:"primaryKey"`
	ActionType    ActionType        `gorm:"index;not null"`
	TransactionID string            `gorm:"uniqueIndex;not null"`
	Address       string            `gorm:"index"`
	Timestamp     int64             `gorm:"not null"`
	Attributes    map[string]string `gorm:"serializer:json;type:text"`
}

type SettlementTouch struct {
	Raffle    string `gorm:"primaryKey"`
	Attempts  int64  `gorm:"default:0"`
	LastError string
	TouchedAt int64 `gorm:"not null"`
	Settled   bool  `gorm:"default:false"`
}
