package settlement

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

	"github.com/sayyara-app/sayyara-backend/internal/fees"
	"github.com/sayyara-app/sayyara-backend/internal/inventory"
	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	"github.com/sayyara-app/sayyara-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

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
		&models.Dealer{},
		&models.CarConfiguration{},
		&models.InventoryRecord{},
		&models.Bid{},
		&models.CommitmentFee{},
		&models.Deal{},
		&models.OutboxEvent{},
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
	svc, err := NewService(
		NewRepository(gdb),
		inventory.NewRepository(gdb),
		fees.NewRepository(gdb),
		testTxRunner{db: gdb},
		outbox.NewService(outbox.NewRepository(gdb), nil),
		config.BiddingConfig{
			CommitmentFeeSAR:  500,
			BidTTL:            48 * time.Hour,
			DealPaymentWindow: 168 * time.Hour,
		},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreateDealer(t *testing.T, tx *gorm.DB) *models.Dealer {
	t.Helper()
	user := &models.User{ID: uuid.New(), FullName: "Dealer Owner", UserType: enums.UserTypeDealer}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create dealer user: %v", err)
	}
	dealer := &models.Dealer{
		ID:                     uuid.New(),
		UserID:                 user.ID,
		CompanyName:            "Settlement Motors",
		City:                   "Riyadh",
		CommercialRegistration: uuid.NewString(),
		Verified:               true,
	}
	if err := tx.Create(dealer).Error; err != nil {
		t.Fatalf("create dealer: %v", err)
	}
	return dealer
}

func mustCreateConfig(t *testing.T, tx *gorm.DB) *models.CarConfiguration {
	t.Helper()
	config := &models.CarConfiguration{
		ID:          uuid.New(),
		Make:        "Toyota",
		Model:       "Camry " + uuid.NewString()[:8],
		Year:        2026,
		Trim:        "GLE",
		Color:       "White",
		WakalaPrice: decimal.NewFromInt(150000),
	}
	if err := tx.Create(config).Error; err != nil {
		t.Fatalf("create configuration: %v", err)
	}
	return config
}

func mustCreateStock(t *testing.T, tx *gorm.DB, dealerID, configID uuid.UUID, qty int) *models.InventoryRecord {
	t.Helper()
	record := &models.InventoryRecord{
		ID:                 uuid.New(),
		DealerID:           dealerID,
		CarConfigurationID: configID,
		Quantity:           qty,
		Status:             enums.InventoryStatusActive,
	}
	if err := tx.Create(record).Error; err != nil {
		t.Fatalf("create inventory record: %v", err)
	}
	return record
}

// mustCreateEligibleBid seeds a fee-backed pending bid together with its
// paid ledger row, the state a bid is in right before acceptance.
func mustCreateEligibleBid(t *testing.T, tx *gorm.DB, configID uuid.UUID, price int64) *models.Bid {
	t.Helper()
	buyer := &models.User{ID: uuid.New(), FullName: "Bid Buyer", UserType: enums.UserTypeBuyer}
	if err := tx.Create(buyer).Error; err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	ref := "pay_" + uuid.NewString()
	bid := &models.Bid{
		ID:                 uuid.New(),
		BuyerID:            buyer.ID,
		CarConfigurationID: configID,
		BidPrice:           decimal.NewFromInt(price),
		NetAmount:          decimal.NewFromInt(price - 500),
		Status:             enums.BidStatusPending,
		FeePaid:            true,
		FeeAmount:          decimal.NewFromInt(500),
		PaymentReference:   &ref,
		ExpiresAt:          time.Now().Add(24 * time.Hour),
	}
	if err := tx.Create(bid).Error; err != nil {
		t.Fatalf("create bid: %v", err)
	}
	now := time.Now()
	fee := &models.CommitmentFee{
		ID:                   uuid.New(),
		BidID:                bid.ID,
		BuyerID:              buyer.ID,
		Amount:               decimal.NewFromInt(500),
		Status:               enums.FeeStatusPaid,
		TransactionReference: ref,
		ProcessedAt:          &now,
	}
	if err := tx.Create(fee).Error; err != nil {
		t.Fatalf("create commitment fee: %v", err)
	}
	return bid
}

func stockQuantity(t *testing.T, tx *gorm.DB, dealerID, configID uuid.UUID) int {
	t.Helper()
	var record models.InventoryRecord
	err := tx.Where("dealer_id = ? AND car_configuration_id = ?", dealerID, configID).
		First(&record).Error
	if err != nil {
		t.Fatalf("load inventory record: %v", err)
	}
	return record.Quantity
}

func feeStatusForBid(t *testing.T, tx *gorm.DB, bidID uuid.UUID) enums.FeeStatus {
	t.Helper()
	var fee models.CommitmentFee
	if err := tx.Where("bid_id = ?", bidID).First(&fee).Error; err != nil {
		t.Fatalf("load commitment fee: %v", err)
	}
	return fee.Status
}

func countOutboxEvents(t *testing.T, tx *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := tx.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	return count
}
