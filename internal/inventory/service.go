package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/internal/catalog"
	"github.com/sayyara-app/sayyara-backend/pkg/db"
	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
)

// Outcome describes what a dealer submission did.
type Outcome string

const (
	// OutcomeExistsInInventory means the dealer already tracks this
	// configuration; nothing was written.
	OutcomeExistsInInventory Outcome = "exists_in_inventory"
	// OutcomeRequiresConfirmation means no catalog configuration matched
	// and the dealer has not confirmed creating a new one.
	OutcomeRequiresConfirmation Outcome = "requires_confirmation"
	// OutcomeCreated means a new configuration and inventory record were created.
	OutcomeCreated Outcome = "created"
	// OutcomeLinked means an existing configuration was linked to new dealer stock.
	OutcomeLinked Outcome = "linked"
)

// AddInput is a dealer stock submission.
type AddInput struct {
	DealerID       uuid.UUID
	Identity       catalog.Identity
	Variant        *string
	WakalaPrice    decimal.Decimal
	Images         json.RawMessage
	Specifications json.RawMessage
	Quantity       int
	PriceSlots     json.RawMessage
	ConfirmNew     bool
}

// AddResult reports the outcome together with the affected rows.
type AddResult struct {
	Outcome       Outcome
	Configuration *models.CarConfiguration
	Record        *models.InventoryRecord
}

// Service manages dealer inventory. Stock quantities are only mutated here
// on submission; settlement moves them through the guarded repo primitives.
type Service interface {
	AddToInventory(ctx context.Context, input AddInput) (*AddResult, error)
	ListByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.InventoryRecord, error)
	SetStatus(ctx context.Context, dealerID, recordID uuid.UUID, status enums.InventoryStatus) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    *Repository
	catalog *catalog.Repository
	tx      txRunner
}

func NewService(repo *Repository, catalogRepo *catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx}, nil
}

func (s *service) AddToInventory(ctx context.Context, input AddInput) (*AddResult, error) {
	if input.DealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Identity.Make == "" || input.Identity.Model == "" || input.Identity.Year == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "make, model and year are required")
	}

	if _, err := s.repo.FindDealer(ctx, input.DealerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}

	config, err := s.catalog.FindByIdentity(ctx, input.Identity)
	switch {
	case err == nil:
		return s.linkExisting(ctx, input, config)
	case errors.Is(err, gorm.ErrRecordNotFound):
		if !input.ConfirmNew {
			return &AddResult{Outcome: OutcomeRequiresConfirmation}, nil
		}
		return s.createAndLink(ctx, input)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup configuration")
	}
}

func (s *service) linkExisting(ctx context.Context, input AddInput, config *models.CarConfiguration) (*AddResult, error) {
	existing, err := s.repo.FindByDealerAndConfig(ctx, input.DealerID, config.ID)
	if err == nil {
		return &AddResult{
			Outcome:       OutcomeExistsInInventory,
			Configuration: config,
			Record:        existing,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}

	record := &models.InventoryRecord{
		DealerID:           input.DealerID,
		CarConfigurationID: config.ID,
		Quantity:           input.Quantity,
		Status:             enums.InventoryStatusActive,
		PriceSlots:         input.PriceSlots,
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).Create(ctx, record)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "configuration already in inventory")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert inventory record")
		}
		record = created
		return nil
	}); err != nil {
		return nil, err
	}
	return &AddResult{
		Outcome:       OutcomeLinked,
		Configuration: config,
		Record:        record,
	}, nil
}

func (s *service) createAndLink(ctx context.Context, input AddInput) (*AddResult, error) {
	if input.WakalaPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wakala price required for a new configuration")
	}

	config := &models.CarConfiguration{
		Make:           input.Identity.Make,
		Model:          input.Identity.Model,
		Year:           input.Identity.Year,
		Trim:           input.Identity.Trim,
		Color:          input.Identity.Color,
		Variant:        input.Variant,
		WakalaPrice:    input.WakalaPrice,
		Images:         input.Images,
		Specifications: input.Specifications,
	}
	record := &models.InventoryRecord{
		DealerID:   input.DealerID,
		Quantity:   input.Quantity,
		Status:     enums.InventoryStatusActive,
		PriceSlots: input.PriceSlots,
	}
	outcome := OutcomeCreated

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogTx := s.catalog.WithTx(tx)
		created, err := catalogTx.Create(ctx, config)
		if err != nil {
			// Another dealer may have confirmed the same configuration
			// concurrently. Fall back to linking theirs.
			if db.IsUniqueViolation(err, "") {
				existing, findErr := catalogTx.FindByIdentity(ctx, input.Identity)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload configuration")
				}
				created = existing
				outcome = OutcomeLinked
			} else {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert configuration")
			}
		}
		config = created

		record.CarConfigurationID = created.ID
		inserted, err := s.repo.WithTx(tx).Create(ctx, record)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "configuration already in inventory")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert inventory record")
		}
		record = inserted
		return nil
	}); err != nil {
		return nil, err
	}

	return &AddResult{
		Outcome:       outcome,
		Configuration: config,
		Record:        record,
	}, nil
}

func (s *service) ListByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.InventoryRecord, error) {
	if dealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer id required")
	}
	records, err := s.repo.ListByDealer(ctx, dealerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return records, nil
}

func (s *service) SetStatus(ctx context.Context, dealerID, recordID uuid.UUID, status enums.InventoryStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory status")
	}
	record, err := s.findOwnedRecord(ctx, dealerID, recordID)
	if err != nil {
		return err
	}
	if record.Status == status {
		return nil
	}
	if _, err := s.repo.UpdateStatus(ctx, record.ID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory status")
	}
	return nil
}

func (s *service) findOwnedRecord(ctx context.Context, dealerID, recordID uuid.UUID) (*models.InventoryRecord, error) {
	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	if record.DealerID != dealerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "inventory record does not belong to dealer")
	}
	return record, nil
}
