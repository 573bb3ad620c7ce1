package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
)

// AdminStats is the marketplace-wide operational snapshot.
type AdminStats struct {
	Buyers              int64            `json:"buyers"`
	Dealers             int64            `json:"dealers"`
	Configurations      int64            `json:"configurations"`
	PendingBids         int64            `json:"pending_bids"`
	AcceptedBids        int64            `json:"accepted_bids"`
	PendingPaymentDeals int64            `json:"pending_payment_deals"`
	CompletedDeals      int64            `json:"completed_deals"`
	Fees                []FeeStatusCount `json:"fees"`
	FeesCollected       decimal.Decimal  `json:"fees_collected"`
}

// SalesReport summarizes completed deals over a window. Savings compare the
// sale price against the configuration's wakala price.
type SalesReport struct {
	From               time.Time       `json:"from"`
	To                 time.Time       `json:"to"`
	CompletedDeals     int64           `json:"completed_deals"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalSavings       decimal.Decimal `json:"total_savings"`
	AverageDiscountPct decimal.Decimal `json:"average_discount_pct"`
}

type Service interface {
	Leaderboard(ctx context.Context, configID uuid.UUID, limit int) ([]LeaderboardRow, error)
	AdminStats(ctx context.Context) (*AdminStats, error)
	SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error)
}

type service struct {
	repo *Repository
	cfg  config.BiddingConfig
}

func NewService(repo *Repository, cfg config.BiddingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reporting repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Leaderboard(ctx context.Context, configID uuid.UUID, limit int) ([]LeaderboardRow, error) {
	if configID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "configuration id required")
	}
	if limit <= 0 || limit > s.cfg.LeaderboardLimit {
		limit = s.cfg.LeaderboardLimit
	}
	rows, err := s.repo.Leaderboard(ctx, configID, time.Now(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "leaderboard query")
	}
	return rows, nil
}

func (s *service) AdminStats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{FeesCollected: decimal.Zero}

	var err error
	if stats.Buyers, err = s.repo.CountUsersByType(ctx, enums.UserTypeBuyer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count buyers")
	}
	if stats.Dealers, err = s.repo.CountUsersByType(ctx, enums.UserTypeDealer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dealers")
	}
	if stats.Configurations, err = s.repo.CountConfigurations(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count configurations")
	}
	if stats.PendingBids, err = s.repo.CountBidsByStatus(ctx, enums.BidStatusPending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending bids")
	}
	if stats.AcceptedBids, err = s.repo.CountBidsByStatus(ctx, enums.BidStatusAccepted); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count accepted bids")
	}
	if stats.PendingPaymentDeals, err = s.repo.CountDealsByStatus(ctx, enums.DealStatusPendingPayment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending deals")
	}
	if stats.CompletedDeals, err = s.repo.CountDealsByStatus(ctx, enums.DealStatusCompleted); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed deals")
	}

	fees, err := s.repo.FeeTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fee totals")
	}
	stats.Fees = fees
	for _, row := range fees {
		// Refunded fees are money out the door again; everything else was
		// collected at some point.
		if row.Status == enums.FeeStatusRefunded || row.Status == enums.FeeStatusPending {
			continue
		}
		stats.FeesCollected = stats.FeesCollected.Add(row.Total)
	}
	return stats, nil
}

func (s *service) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report window must end after it starts")
	}

	rows, err := s.repo.CompletedSales(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sales query")
	}

	report := &SalesReport{
		From:               from,
		To:                 to,
		CompletedDeals:     int64(len(rows)),
		TotalRevenue:       decimal.Zero,
		TotalSavings:       decimal.Zero,
		AverageDiscountPct: decimal.Zero,
	}
	if len(rows) == 0 {
		return report, nil
	}

	discountSum := decimal.Zero
	for _, row := range rows {
		report.TotalRevenue = report.TotalRevenue.Add(row.FinalPrice)
		saving := row.WakalaPrice.Sub(row.FinalPrice)
		report.TotalSavings = report.TotalSavings.Add(saving)
		if row.WakalaPrice.IsPositive() {
			discountSum = discountSum.Add(saving.Div(row.WakalaPrice).Mul(decimal.NewFromInt(100)))
		}
	}
	report.AverageDiscountPct = discountSum.
		Div(decimal.NewFromInt(int64(len(rows)))).
		Round(2)
	return report, nil
}
