package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SystemSetting is a keyed JSON document edited from the admin settings page.
type SystemSetting struct {
	Key       string         `gorm:"column:key;primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value;not null" json:"value"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// ExchangeRate is the number of Currency units per one USD.
type ExchangeRate struct {
	Currency  string          `gorm:"column:currency;primaryKey;size:3" json:"currency"`
	Rate      decimal.Decimal `gorm:"column:rate;type:numeric(18,6);not null" json:"rate"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
