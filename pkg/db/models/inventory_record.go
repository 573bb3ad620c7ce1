package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

// InventoryRecord links a dealer to a configuration with a quantity.
// Quantity only moves through the settlement engine's guarded updates and
// never goes negative.
type InventoryRecord struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DealerID           uuid.UUID             `gorm:"column:dealer_id;type:uuid;not null;uniqueIndex:ux_inventory_dealer_config" json:"dealer_id"`
	CarConfigurationID uuid.UUID             `gorm:"column:car_configuration_id;type:uuid;not null;uniqueIndex:ux_inventory_dealer_config" json:"car_configuration_id"`
	Quantity           int                   `gorm:"column:quantity;not null;default:0" json:"quantity"`
	Status             enums.InventoryStatus `gorm:"column:status;not null;default:active" json:"status"`
	PriceSlots         json.RawMessage       `gorm:"column:price_slots;type:jsonb" json:"price_slots,omitempty"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
