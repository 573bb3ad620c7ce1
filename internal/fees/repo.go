package fees

import (
	"context"
	"time"

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

func (r *Repository) Insert(ctx context.Context, fee *models.CommitmentFee) (*models.CommitmentFee, error) {
	if fee.ID == uuid.Nil {
		fee.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(fee).Error; err != nil {
		return nil, err
	}
	return fee, nil
}

func (r *Repository) FindByTransactionReference(ctx context.Context, ref string) (*models.CommitmentFee, error) {
	var fee models.CommitmentFee
	err := r.db.WithContext(ctx).
		Where("transaction_reference = ?", ref).
		First(&fee).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *Repository) FindLatestByBid(ctx context.Context, bidID uuid.UUID) (*models.CommitmentFee, error) {
	var fee models.CommitmentFee
	err := r.db.WithContext(ctx).
		Where("bid_id = ?", bidID).
		Order("created_at DESC").
		First(&fee).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *Repository) FindBid(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", bidID).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

// MarkBidFeePaid binds the payment to the bid. The guard only matches a
// pending bid whose fee is not yet paid; zero rows affected means the bid
// moved underneath the confirmation.
func (r *Repository) MarkBidFeePaid(ctx context.Context, bidID uuid.UUID, paymentRef string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id = ? AND status = ? AND fee_paid = ?", bidID, enums.BidStatusPending, false).
		Updates(map[string]any{
			"fee_paid":          true,
			"payment_reference": paymentRef,
		})
	return res.RowsAffected, res.Error
}

// TransitionByBid moves the bid's latest ledger entry from one status to
// another. The ledger is append-only otherwise; only the status advances.
func (r *Repository) TransitionByBid(ctx context.Context, bidID uuid.UUID, from, to enums.FeeStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CommitmentFee{}).
		Where("bid_id = ? AND status = ?", bidID, from).
		Updates(map[string]any{
			"status":       to,
			"processed_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
