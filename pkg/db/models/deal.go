package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

// Deal is the settlement artifact created when a dealer accepts a bid. It is
// created exactly once per accepted bid, in the same transaction that flips
// the bid and decrements inventory.
type Deal struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BidID              uuid.UUID        `gorm:"column:bid_id;type:uuid;not null;uniqueIndex:ux_deals_bid" json:"bid_id"`
	BuyerID            uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	DealerID           uuid.UUID        `gorm:"column:dealer_id;type:uuid;not null;index" json:"dealer_id"`
	CarConfigurationID uuid.UUID        `gorm:"column:car_configuration_id;type:uuid;not null;index" json:"car_configuration_id"`
	FinalPrice         decimal.Decimal  `gorm:"column:final_price;type:numeric(12,2);not null" json:"final_price"`
	Quantity           int              `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Status             enums.DealStatus `gorm:"column:status;not null;default:pending_payment" json:"status"`
	PaymentDueDate     *time.Time       `gorm:"column:payment_due_date" json:"payment_due_date,omitempty"`
	CompletedAt        *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
