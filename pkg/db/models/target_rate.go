package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TargetRate is a reference market rate for one item in one unit. A rate of
// -1 marks an item that was looked up but has no usable market price.
type TargetRate struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ItemID    string              `gorm:"column:item_id;not null;uniqueIndex:ux_target_rates_item_unit"`
	Unit      string              `gorm:"column:unit;not null;uniqueIndex:ux_target_rates_item_unit"`
	Rate      decimal.NullDecimal `gorm:"column:rate;type:numeric(18,4)"`
	Source    string              `gorm:"column:source"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (TargetRate) TableName() string {
	return "target_rates"
}
