package datamodels

import (
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	Id        int64 `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BaseModelUUID struct {
	ID        uuid.UUID `gorm:"primarykey;default:gen_random_uuid();type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BacktestRun is the persisted header of one pipeline run.
type BacktestRun struct {
	BaseModelUUID
	Symbol          string    `gorm:"not null;index"`
	StrategyType    string    `gorm:"not null"`
	ShortWindow     int       `gorm:"not null"`
	LongWindow      int       `gorm:"not null"`
	MinPeriods      int       `gorm:"not null;default:0"`
	StartTimestamp  time.Time `gorm:"not null"`
	EndTimestamp    time.Time `gorm:"not null"`
	SignalCount     int       `gorm:"not null"`
	SharpeRatio     *float64
	MaxDrawdown     *float64
	FinalReturn     *float64
	TotalProfitLoss float64 `gorm:"not null"`
	OpenPositions   int     `gorm:"not null"`
}

// TradeLogEntry is a persisted ledger line. Sequence keeps the emission order.
type TradeLogEntry struct {
	BaseModel
	RunId      uuid.UUID `gorm:"not null;index;type:uuid"`
	Sequence   int       `gorm:"not null"`
	Timestamp  time.Time `gorm:"not null;index"`
	TradeType  TradeType `gorm:"not null"`
	Price      float64   `gorm:"not null"`
	Quantity   int       `gorm:"not null"`
	ProfitLoss *float64
}
