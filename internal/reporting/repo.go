package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

// LeaderboardRow is one price level on a configuration's live leaderboard.
type LeaderboardRow struct {
	BidPrice decimal.Decimal `json:"bid_price"`
	BidCount int64           `json:"bid_count"`
}

// FeeStatusCount is the ledger rollup for one fee status.
type FeeStatusCount struct {
	Status enums.FeeStatus `json:"status"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// SalesRow is one completed deal joined with its configuration's wakala
// price, the raw material for the sales report.
type SalesRow struct {
	FinalPrice  decimal.Decimal
	WakalaPrice decimal.Decimal
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Leaderboard aggregates live pending bids by price, best price first. It is
// computed on read; there is no materialized ranking to drift out of date.
func (r *Repository) Leaderboard(ctx context.Context, configID uuid.UUID, now time.Time, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Select("bid_price, COUNT(*) AS bid_count").
		Where("car_configuration_id = ? AND status = ? AND expires_at > ?",
			configID, enums.BidStatusPending, now).
		Group("bid_price").
		Order("bid_price DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) CountUsersByType(ctx context.Context, userType enums.UserType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_type = ?", userType).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountConfigurations(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CarConfiguration{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountBidsByStatus(ctx context.Context, status enums.BidStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountDealsByStatus(ctx context.Context, status enums.DealStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// FeeTotals rolls the commitment fee ledger up by status.
func (r *Repository) FeeTotals(ctx context.Context) ([]FeeStatusCount, error) {
	var rows []FeeStatusCount
	err := r.db.WithContext(ctx).
		Model(&models.CommitmentFee{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// CompletedSales returns completed deals in the window with the wakala
// price of the configuration each one sold against.
func (r *Repository) CompletedSales(ctx context.Context, from, to time.Time) ([]SalesRow, error) {
	var rows []SalesRow
	err := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Select("deals.final_price, car_configurations.wakala_price").
		Joins("JOIN car_configurations ON car_configurations.id = deals.car_configuration_id").
		Where("deals.status = ? AND deals.completed_at >= ? AND deals.completed_at < ?",
			enums.DealStatusCompleted, from, to).
		Scan(&rows).Error
	return rows, err
}
