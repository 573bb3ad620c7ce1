package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	"github.com/sayyara-app/sayyara-backend/pkg/pagination"
)

// Identity is the canonical configuration key. Two submissions with the same
// identity always resolve to the same row.
type Identity struct {
	Make  string
	Model string
	Year  int
	Trim  string
	Color string
}

func (id Identity) normalized() Identity {
	return Identity{
		Make:  strings.TrimSpace(id.Make),
		Model: strings.TrimSpace(id.Model),
		Year:  id.Year,
		Trim:  strings.TrimSpace(id.Trim),
		Color: strings.TrimSpace(id.Color),
	}
}

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

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CarConfiguration, error) {
	var config models.CarConfiguration
	if err := r.db.WithContext(ctx).First(&config, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

// FindByIdentity loads the configuration matching the exact identity key.
func (r *Repository) FindByIdentity(ctx context.Context, identity Identity) (*models.CarConfiguration, error) {
	identity = identity.normalized()
	var config models.CarConfiguration
	err := r.db.WithContext(ctx).
		Where("make = ? AND model = ? AND year = ? AND trim = ? AND color = ?",
			identity.Make, identity.Model, identity.Year, identity.Trim, identity.Color).
		First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *Repository) Create(ctx context.Context, config *models.CarConfiguration) (*models.CarConfiguration, error) {
	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(config).Error; err != nil {
		return nil, err
	}
	return config, nil
}

// ListResult is one page of available configurations. NextCursor is empty on
// the last page.
type ListResult struct {
	Configurations []models.CarConfiguration `json:"configurations"`
	NextCursor     string                    `json:"next_cursor,omitempty"`
}

// ListAvailable returns configurations that have at least one active
// inventory record with stock, newest first, keyset-paginated.
func (r *Repository) ListAvailable(ctx context.Context, cursor *pagination.Cursor, limit int) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)

	qb := r.db.WithContext(ctx).
		Joins("JOIN inventory_records ir ON ir.car_configuration_id = car_configurations.id").
		Where("ir.quantity > 0 AND ir.status = ?", enums.InventoryStatusActive).
		Group("car_configurations.id")

	if cursor != nil {
		qb = qb.Where("(car_configurations.created_at < ?) OR (car_configurations.created_at = ? AND car_configurations.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var configs []models.CarConfiguration
	err := qb.Order("car_configurations.created_at DESC").
		Order("car_configurations.id DESC").
		Limit(limitWithBuffer).
		Find(&configs).Error
	if err != nil {
		return nil, err
	}

	rows := configs
	nextCursor := ""
	if len(configs) > pageSize {
		rows = configs[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &ListResult{Configurations: rows, NextCursor: nextCursor}, nil
}

func (r *Repository) ListMakes(ctx context.Context) ([]string, error) {
	var makes []string
	err := r.db.WithContext(ctx).
		Model(&models.CarConfiguration{}).
		Distinct("make").
		Order("make ASC").
		Pluck("make", &makes).Error
	return makes, err
}

func (r *Repository) ListModels(ctx context.Context, make string) ([]string, error) {
	var names []string
	query := r.db.WithContext(ctx).
		Model(&models.CarConfiguration{}).
		Distinct("model").
		Order("model ASC")
	if trimmed := strings.TrimSpace(make); trimmed != "" {
		query = query.Where("make = ?", trimmed)
	}
	err := query.Pluck("model", &names).Error
	return names, err
}
