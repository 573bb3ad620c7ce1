package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CarConfiguration is a canonical make/model/year/trim/color combination,
// independent of any dealer's stock. The identity key columns share the
// ux_car_configurations_identity unique index; rows are never deleted.
type CarConfiguration struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Make           string          `gorm:"column:make;not null;uniqueIndex:ux_car_configurations_identity" json:"make"`
	Model          string          `gorm:"column:model;not null;uniqueIndex:ux_car_configurations_identity" json:"model"`
	Year           int             `gorm:"column:year;not null;uniqueIndex:ux_car_configurations_identity" json:"year"`
	Trim           string          `gorm:"column:trim;not null;default:'';uniqueIndex:ux_car_configurations_identity" json:"trim"`
	Color          string          `gorm:"column:color;not null;default:'';uniqueIndex:ux_car_configurations_identity" json:"color"`
	Variant        *string         `gorm:"column:variant" json:"variant,omitempty"`
	WakalaPrice    decimal.Decimal `gorm:"column:wakala_price;type:numeric(12,2);not null" json:"wakala_price"`
	Images         json.RawMessage `gorm:"column:images;type:jsonb" json:"images,omitempty"`
	Specifications json.RawMessage `gorm:"column:specifications;type:jsonb" json:"specifications,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
