package reporting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.CarConfiguration{},
		&models.Bid{},
		&models.CommitmentFee{},
		&models.Deal{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})
	return conn
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(gdb), config.BiddingConfig{
		CommitmentFeeSAR: 500,
		LeaderboardLimit: 5,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreateConfig(t *testing.T, gdb *gorm.DB, wakala int64) *models.CarConfiguration {
	t.Helper()
	config := &models.CarConfiguration{
		ID:          uuid.New(),
		Make:        "Nissan",
		Model:       "Patrol " + uuid.NewString()[:8],
		Year:        2026,
		WakalaPrice: decimal.NewFromInt(wakala),
	}
	if err := gdb.Create(config).Error; err != nil {
		t.Fatalf("create configuration: %v", err)
	}
	return config
}

func mustCreateBid(t *testing.T, gdb *gorm.DB, configID uuid.UUID, price int64, status enums.BidStatus, expiresAt time.Time) *models.Bid {
	t.Helper()
	buyer := &models.User{ID: uuid.New(), FullName: "Report Buyer", UserType: enums.UserTypeBuyer}
	if err := gdb.Create(buyer).Error; err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	bid := &models.Bid{
		ID:                 uuid.New(),
		BuyerID:            buyer.ID,
		CarConfigurationID: configID,
		BidPrice:           decimal.NewFromInt(price),
		NetAmount:          decimal.NewFromInt(price - 500),
		Status:             status,
		FeeAmount:          decimal.NewFromInt(500),
		ExpiresAt:          expiresAt,
	}
	if err := gdb.Create(bid).Error; err != nil {
		t.Fatalf("create bid: %v", err)
	}
	return bid
}

func mustCreateCompletedDeal(t *testing.T, gdb *gorm.DB, configID uuid.UUID, finalPrice int64, completedAt time.Time) {
	t.Helper()
	deal := &models.Deal{
		ID:                 uuid.New(),
		BidID:              uuid.New(),
		BuyerID:            uuid.New(),
		DealerID:           uuid.New(),
		CarConfigurationID: configID,
		FinalPrice:         decimal.NewFromInt(finalPrice),
		Quantity:           1,
		Status:             enums.DealStatusCompleted,
		CompletedAt:        &completedAt,
	}
	if err := gdb.Create(deal).Error; err != nil {
		t.Fatalf("create deal: %v", err)
	}
}

func TestLeaderboardGroupsAndOrders(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)
	config := mustCreateConfig(t, gdb, 150000)
	live := time.Now().Add(24 * time.Hour)

	mustCreateBid(t, gdb, config.ID, 140000, enums.BidStatusPending, live)
	mustCreateBid(t, gdb, config.ID, 140000, enums.BidStatusPending, live)
	mustCreateBid(t, gdb, config.ID, 142000, enums.BidStatusPending, live)
	// Neither of these may appear: one expired, one already settled.
	mustCreateBid(t, gdb, config.ID, 145000, enums.BidStatusPending, time.Now().Add(-time.Hour))
	mustCreateBid(t, gdb, config.ID, 146000, enums.BidStatusAccepted, live)

	rows, err := svc.Leaderboard(context.Background(), config.ID, 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 price levels, got %d", len(rows))
	}
	if !rows[0].BidPrice.Equal(decimal.NewFromInt(142000)) || rows[0].BidCount != 1 {
		t.Fatalf("unexpected top row: %s x%d", rows[0].BidPrice, rows[0].BidCount)
	}
	if !rows[1].BidPrice.Equal(decimal.NewFromInt(140000)) || rows[1].BidCount != 2 {
		t.Fatalf("unexpected second row: %s x%d", rows[1].BidPrice, rows[1].BidCount)
	}
}

func TestLeaderboardClampsLimit(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)
	config := mustCreateConfig(t, gdb, 150000)
	live := time.Now().Add(24 * time.Hour)

	for i := int64(0); i < 8; i++ {
		mustCreateBid(t, gdb, config.ID, 130000+i*1000, enums.BidStatusPending, live)
	}

	// A limit above the configured maximum is clamped to it.
	rows, err := svc.Leaderboard(context.Background(), config.ID, 100)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
}

func TestAdminStats(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)
	config := mustCreateConfig(t, gdb, 150000)
	live := time.Now().Add(24 * time.Hour)

	dealerUser := &models.User{ID: uuid.New(), FullName: "Dealer", UserType: enums.UserTypeDealer}
	if err := gdb.Create(dealerUser).Error; err != nil {
		t.Fatalf("create dealer user: %v", err)
	}
	pending := mustCreateBid(t, gdb, config.ID, 140000, enums.BidStatusPending, live)
	accepted := mustCreateBid(t, gdb, config.ID, 141000, enums.BidStatusAccepted, live)

	for i, seed := range []struct {
		bidID  uuid.UUID
		status enums.FeeStatus
	}{
		{pending.ID, enums.FeeStatusPaid},
		{accepted.ID, enums.FeeStatusAppliedToPurchase},
		{uuid.New(), enums.FeeStatusRefunded},
	} {
		fee := &models.CommitmentFee{
			ID:                   uuid.New(),
			BidID:                seed.bidID,
			BuyerID:              uuid.New(),
			Amount:               decimal.NewFromInt(500),
			Status:               seed.status,
			TransactionReference: fmt.Sprintf("pay_stats_%d", i),
		}
		if err := gdb.Create(fee).Error; err != nil {
			t.Fatalf("create fee %d: %v", i, err)
		}
	}
	mustCreateCompletedDeal(t, gdb, config.ID, 141000, time.Now())

	stats, err := svc.AdminStats(context.Background())
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if stats.Buyers != 2 {
		t.Fatalf("expected 2 buyers, got %d", stats.Buyers)
	}
	if stats.Dealers != 1 {
		t.Fatalf("expected 1 dealer, got %d", stats.Dealers)
	}
	if stats.Configurations != 1 {
		t.Fatalf("expected 1 configuration, got %d", stats.Configurations)
	}
	if stats.PendingBids != 1 || stats.AcceptedBids != 1 {
		t.Fatalf("unexpected bid counts: %d pending, %d accepted", stats.PendingBids, stats.AcceptedBids)
	}
	if stats.CompletedDeals != 1 {
		t.Fatalf("expected 1 completed deal, got %d", stats.CompletedDeals)
	}
	// Paid + applied count as collected; the refunded row does not.
	if !stats.FeesCollected.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected 1000 collected, got %s", stats.FeesCollected)
	}
}

func TestSalesReport(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)
	config := mustCreateConfig(t, gdb, 150000)

	now := time.Now()
	mustCreateCompletedDeal(t, gdb, config.ID, 140000, now.Add(-time.Hour))
	mustCreateCompletedDeal(t, gdb, config.ID, 145000, now.Add(-2*time.Hour))
	// Outside the window.
	mustCreateCompletedDeal(t, gdb, config.ID, 130000, now.Add(-48*time.Hour))

	report, err := svc.SalesReport(context.Background(), now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if report.CompletedDeals != 2 {
		t.Fatalf("expected 2 deals, got %d", report.CompletedDeals)
	}
	if !report.TotalRevenue.Equal(decimal.NewFromInt(285000)) {
		t.Fatalf("expected revenue 285000, got %s", report.TotalRevenue)
	}
	if !report.TotalSavings.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("expected savings 15000, got %s", report.TotalSavings)
	}
	// (10000/150000 + 5000/150000) * 100 / 2 = 5.00
	if !report.AverageDiscountPct.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5%% average discount, got %s", report.AverageDiscountPct)
	}
}

func TestSalesReportEmptyWindow(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	now := time.Now()
	report, err := svc.SalesReport(context.Background(), now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if report.CompletedDeals != 0 || !report.TotalRevenue.IsZero() {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestSalesReportInvalidWindow(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	now := time.Now()
	if _, err := svc.SalesReport(context.Background(), now, now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
