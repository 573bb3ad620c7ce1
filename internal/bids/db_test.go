package bids

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

	"github.com/sayyara-app/sayyara-backend/internal/catalog"
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
		&models.CarConfiguration{},
		&models.Bid{},
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

func testBiddingConfig() config.BiddingConfig {
	return config.BiddingConfig{
		CommitmentFeeSAR:  500,
		BidTTL:            48 * time.Hour,
		DealPaymentWindow: 168 * time.Hour,
		LeaderboardLimit:  5,
	}
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(gdb),
		catalog.NewRepository(gdb),
		testTxRunner{db: gdb},
		outbox.NewService(outbox.NewRepository(gdb), nil),
		testBiddingConfig(),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreateBuyer(t *testing.T, tx *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		FullName: "Test Buyer",
		UserType: enums.UserTypeBuyer,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	return user
}

func mustCreateConfig(t *testing.T, tx *gorm.DB, wakala int64) *models.CarConfiguration {
	t.Helper()
	config := &models.CarConfiguration{
		ID:          uuid.New(),
		Make:        "Toyota",
		Model:       fmt.Sprintf("Camry-%s", uuid.NewString()[:8]),
		Year:        2025,
		Trim:        "SE",
		Color:       "White",
		WakalaPrice: decimal.NewFromInt(wakala),
	}
	if err := tx.Create(config).Error; err != nil {
		t.Fatalf("create configuration: %v", err)
	}
	return config
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
