package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

// Bid is a buyer's standing price proposal against a configuration. At most
// one active (pending or accepted) bid exists per (buyer, configuration);
// resubmission rewrites the pending row instead of inserting a duplicate.
type Bid struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID            uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	CarConfigurationID uuid.UUID       `gorm:"column:car_configuration_id;type:uuid;not null;index" json:"car_configuration_id"`
	BidPrice           decimal.Decimal `gorm:"column:bid_price;type:numeric(12,2);not null" json:"bid_price"`
	NetAmount          decimal.Decimal `gorm:"column:net_amount;type:numeric(12,2);not null" json:"net_amount"`
	Status             enums.BidStatus `gorm:"column:status;not null;default:pending;index" json:"status"`
	FeePaid            bool            `gorm:"column:fee_paid;not null;default:false" json:"fee_paid"`
	FeeAmount          decimal.Decimal `gorm:"column:fee_amount;type:numeric(12,2);not null;default:0" json:"fee_amount"`
	PaymentReference   *string         `gorm:"column:payment_reference;uniqueIndex" json:"payment_reference,omitempty"`
	ExpiresAt          time.Time       `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
