package bids

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

// FindActive loads the buyer's live (pending or accepted) bid on the
// configuration, if any. At most one exists.
func (r *Repository) FindActive(ctx context.Context, buyerID, configID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND car_configuration_id = ? AND status IN ?",
			buyerID, configID, []enums.BidStatus{enums.BidStatusPending, enums.BidStatusAccepted}).
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *Repository) Create(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return nil, err
	}
	return bid, nil
}

// Resubmit rewrites the pending bid in place. The status guard keeps a
// concurrent acceptance from being overwritten; zero rows affected means
// the bid left the pending state underneath us.
func (r *Repository) Resubmit(ctx context.Context, bid *models.Bid) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id = ? AND status = ?", bid.ID, enums.BidStatusPending).
		Updates(map[string]any{
			"bid_price":         bid.BidPrice,
			"net_amount":        bid.NetAmount,
			"fee_amount":        bid.FeeAmount,
			"fee_paid":          bid.FeePaid,
			"payment_reference": bid.PaymentReference,
			"expires_at":        bid.ExpiresAt,
		})
	return res.RowsAffected, res.Error
}

// CancelPending flips the buyer's pending bid to cancelled.
func (r *Repository) CancelPending(ctx context.Context, bidID, buyerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id = ? AND buyer_id = ? AND status = ?", bidID, buyerID, enums.BidStatusPending).
		Update("status", enums.BidStatusCancelled)
	return res.RowsAffected, res.Error
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Bid, error) {
	var rows []models.Bid
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListPendingByConfiguration returns the open order book for a
// configuration, best price first, oldest first within a price.
func (r *Repository) ListPendingByConfiguration(ctx context.Context, configID uuid.UUID) ([]models.Bid, error) {
	var rows []models.Bid
	err := r.db.WithContext(ctx).
		Where("car_configuration_id = ? AND status = ?", configID, enums.BidStatusPending).
		Order("bid_price DESC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
