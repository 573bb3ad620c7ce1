package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dealer is the selling party; inventory records hang off it.
type Dealer struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID                 uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	CompanyName            string          `gorm:"column:company_name;not null" json:"company_name"`
	City                   string          `gorm:"column:city;not null" json:"city"`
	CommercialRegistration string          `gorm:"column:commercial_registration;not null" json:"commercial_registration"`
	Verified               bool            `gorm:"column:verified;not null;default:false" json:"verified"`
	Rating                 decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0" json:"rating"`
	TotalSales             int             `gorm:"column:total_sales;not null;default:0" json:"total_sales"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
