package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func (r *Repository) FindBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *Repository) FindDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.WithContext(ctx).First(&deal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

// AcceptPendingBid flips the bid to accepted. The guard requires a live,
// fee-backed pending bid; zero rows affected means another dealer won the
// race or the bid left the pending state.
func (r *Repository) AcceptPendingBid(ctx context.Context, bidID uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id = ? AND status = ? AND fee_paid = ? AND expires_at > ?",
			bidID, enums.BidStatusPending, true, now).
		Update("status", enums.BidStatusAccepted)
	return res.RowsAffected, res.Error
}

// ListEligibleBids returns fee-backed pending bids at exactly the given
// price, oldest first. The limit clamps the batch size.
func (r *Repository) ListEligibleBids(ctx context.Context, configID uuid.UUID, price decimal.Decimal, now time.Time, limit int) ([]models.Bid, error) {
	var rows []models.Bid
	err := r.db.WithContext(ctx).
		Where("car_configuration_id = ? AND status = ? AND fee_paid = ? AND expires_at > ? AND bid_price = ?",
			configID, enums.BidStatusPending, true, now, price).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateDeal(ctx context.Context, deal *models.Deal) (*models.Deal, error) {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(deal).Error; err != nil {
		return nil, err
	}
	return deal, nil
}

// ExpirePendingBids flips every overdue pending bid to expired in one
// statement and reports how many were swept.
func (r *Repository) ExpirePendingBids(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("status = ? AND expires_at <= ?", enums.BidStatusPending, now).
		Update("status", enums.BidStatusExpired)
	return res.RowsAffected, res.Error
}

// ListOverduePending returns the pending bids an expiry sweep would flip.
// Read inside the sweep transaction so the emitted events match the rows
// actually updated.
func (r *Repository) ListOverduePending(ctx context.Context, now time.Time) ([]models.Bid, error) {
	var rows []models.Bid
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.BidStatusPending, now).
		Order("expires_at ASC").
		Find(&rows).Error
	return rows, err
}

// TransitionDeal moves a deal between statuses with a guard on the current
// status.
func (r *Repository) TransitionDeal(ctx context.Context, dealID uuid.UUID, from, to enums.DealStatus, completedAt *time.Time) (int64, error) {
	updates := map[string]any{"status": to}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ? AND status = ?", dealID, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// IncrementDealerSales bumps the dealer's completed sales counter.
func (r *Repository) IncrementDealerSales(ctx context.Context, dealerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Dealer{}).
		Where("id = ?", dealerID).
		Update("total_sales", gorm.Expr("total_sales + 1")).Error
}

func (r *Repository) ListDealsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Deal, error) {
	var rows []models.Deal
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListDealsByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.Deal, error) {
	var rows []models.Deal
	err := r.db.WithContext(ctx).
		Where("dealer_id = ?", dealerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
