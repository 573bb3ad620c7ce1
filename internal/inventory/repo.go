package inventory

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

func (r *Repository) FindDealer(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := r.db.WithContext(ctx).First(&dealer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dealer, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) FindByDealerAndConfig(ctx context.Context, dealerID, configID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND car_configuration_id = ?", dealerID, configID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Repository) ListByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("dealer_id = ?", dealerID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *Repository) UpdateStatus(ctx context.Context, recordID uuid.UUID, status enums.InventoryStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ?", recordID).
		Update("status", status)
	return res.RowsAffected, res.Error
}

// DecrementStock atomically takes qty units from the dealer's active record.
// Returns the number of rows affected: zero means the guard failed (not
// enough stock, inactive record, or no record at all).
func (r *Repository) DecrementStock(ctx context.Context, dealerID, configID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE dealer_id = ? AND car_configuration_id = ?
			AND status = ? AND quantity >= ?
	`, qty, dealerID, configID, enums.InventoryStatusActive, qty)
	return res.RowsAffected, res.Error
}

// RestoreStock returns qty units to the dealer's record. Used when a
// settlement step fails after a decrement, or when a deal is refunded.
func (r *Repository) RestoreStock(ctx context.Context, dealerID, configID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE dealer_id = ? AND car_configuration_id = ?
	`, qty, dealerID, configID)
	return res.RowsAffected, res.Error
}
