// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one completed position.
type Trade struct {
	BaseModel
	RecordID      string              `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Mint          string              `gorm:"index;not null;type:varchar(44)"`
	Symbol        string              `gorm:"type:varchar(32)"`
	Name          string              `gorm:"type:varchar(128)"`
	Outcome       string              `gorm:"index;not null;type:varchar(20)"`
	State         string              `gorm:"not null;type:varchar(20)"`
	BuySignature  string              `gorm:"type:varchar(88)"`
	SellSignature string              `gorm:"type:varchar(88)"`
	BuyAmountSOL  decimal.Decimal     `gorm:"type:decimal(20,9);not null"`
	InitialMC     decimal.NullDecimal `gorm:"type:decimal(30,9)"`
	FinalMC       decimal.NullDecimal `gorm:"type:decimal(30,9)"`
	MaxMC         decimal.NullDecimal `gorm:"type:decimal(30,9)"`
	PnLPercent    decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	SellReason    string              `gorm:"type:text"`
	BuySimError   string              `gorm:"type:text"`
	BuyError      string              `gorm:"type:text"`
	SellError     string              `gorm:"type:text"`
	DetectedAt    time.Time
	SellTime      *time.Time
	DurationSec   float64             `gorm:"type:decimal(12,3)"`
	RecordedAt    time.Time           `gorm:"index;not null"`
}
