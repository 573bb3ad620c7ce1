package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

// CommitmentFee is the append-only financial ledger entry behind a paid
// bid. Rows are never deleted; settlement only moves the status forward.
// The transaction reference is unique, which is what makes payment
// confirmation replays idempotent.
type CommitmentFee struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BidID                uuid.UUID       `gorm:"column:bid_id;type:uuid;not null;index" json:"bid_id"`
	BuyerID              uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	Amount               decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status               enums.FeeStatus `gorm:"column:status;not null;default:pending" json:"status"`
	TransactionReference string          `gorm:"column:transaction_reference;not null;uniqueIndex:ux_commitment_fees_txn_ref" json:"transaction_reference"`
	GatewayResponse      json.RawMessage `gorm:"column:gateway_response;type:jsonb" json:"gateway_response,omitempty"`
	ProcessedAt          *time.Time      `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
