package catalog

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
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
		&models.Dealer{},
		&models.CarConfiguration{},
		&models.InventoryRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})
	return conn
}

func mustCreateConfig(t *testing.T, tx *gorm.DB, make, model string, year int) *models.CarConfiguration {
	t.Helper()
	config := &models.CarConfiguration{
		ID:          uuid.New(),
		Make:        make,
		Model:       model,
		Year:        year,
		Trim:        "Standard",
		Color:       "White",
		WakalaPrice: decimal.NewFromInt(150000),
	}
	if err := tx.Create(config).Error; err != nil {
		t.Fatalf("create configuration: %v", err)
	}
	return config
}

func mustCreateDealer(t *testing.T, tx *gorm.DB) *models.Dealer {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		FullName: "Catalog Dealer",
		UserType: enums.UserTypeDealer,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	dealer := &models.Dealer{
		ID:                     uuid.New(),
		UserID:                 user.ID,
		CompanyName:            "Catalog Motors",
		City:                   "Riyadh",
		CommercialRegistration: fmt.Sprintf("CR-%s", uuid.NewString()[:8]),
		Verified:               true,
	}
	if err := tx.Create(dealer).Error; err != nil {
		t.Fatalf("create dealer: %v", err)
	}
	return dealer
}

func mustCreateInventory(t *testing.T, tx *gorm.DB, dealerID, configID uuid.UUID, qty int, status enums.InventoryStatus) *models.InventoryRecord {
	t.Helper()
	record := &models.InventoryRecord{
		ID:                 uuid.New(),
		DealerID:           dealerID,
		CarConfigurationID: configID,
		Quantity:           qty,
		Status:             status,
	}
	if err := tx.Create(record).Error; err != nil {
		t.Fatalf("create inventory record: %v", err)
	}
	return record
}
