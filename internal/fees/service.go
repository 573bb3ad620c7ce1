package fees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/db"
	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
	"github.com/sayyara-app/sayyara-backend/pkg/outbox"
)

const replayGuardTTL = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// replayGuard is the Redis-backed short-circuit for webhook replays. It is
// advisory: the unique transaction reference in the ledger is authoritative.
type replayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// ConfirmInput carries gateway-verified payment facts. The amount is in
// halalas, exactly as the gateway reports it; callers must never pass
// client-supplied values here.
type ConfirmInput struct {
	BidID           uuid.UUID
	PaymentID       string
	AmountMinor     int64
	Currency        string
	GatewayResponse json.RawMessage
}

// FeePaidEvent is emitted once per confirmed commitment fee.
type FeePaidEvent struct {
	BidID                uuid.UUID `json:"bid_id"`
	BuyerID              uuid.UUID `json:"buyer_id"`
	TransactionReference string    `json:"transaction_reference"`
	AmountMinor          int64     `json:"amount_minor"`
}

// Service manages the commitment fee ledger.
type Service interface {
	ConfirmPayment(ctx context.Context, input ConfirmInput) (*models.CommitmentFee, error)
	FindByBid(ctx context.Context, bidID uuid.UUID) (*models.CommitmentFee, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	outbox   outboxPublisher
	guard    replayGuard
	bidding  config.BiddingConfig
	currency string
}

func NewService(repo *Repository, tx txRunner, ob outboxPublisher, guard replayGuard, bidding config.BiddingConfig, moyasar config.MoyasarConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fees repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if guard == nil {
		return nil, fmt.Errorf("replay guard required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   ob,
		guard:    guard,
		bidding:  bidding,
		currency: strings.ToUpper(strings.TrimSpace(moyasar.Currency)),
	}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmInput) (*models.CommitmentFee, error) {
	if input.BidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}
	paymentID := strings.TrimSpace(input.PaymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	if input.AmountMinor != s.bidding.CommitmentFeeMinor() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment amount %d does not match the commitment fee", input.AmountMinor))
	}
	if !strings.EqualFold(input.Currency, s.currency) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment currency %q does not match %q", input.Currency, s.currency))
	}

	// First confirmation claims the guard key; replays find it taken and
	// resolve from the ledger without touching the bid again.
	key := s.guard.IdempotencyKey("moyasar", paymentID)
	fresh, err := s.guard.SetNX(ctx, key, input.BidID.String(), replayGuardTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency guard")
	}
	if !fresh {
		if existing, err := s.findExistingConfirmation(ctx, input.BidID, paymentID); existing != nil || err != nil {
			return existing, err
		}
		// Guard key present but no ledger row: an earlier attempt died
		// before committing. Fall through and process normally.
	}

	var fee *models.CommitmentFee
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		bid, err := txRepo.FindBid(ctx, input.BidID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
		}

		affected, err := txRepo.MarkBidFeePaid(ctx, bid.ID, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark fee paid")
		}
		if affected == 0 {
			if bid.Status != enums.BidStatusPending {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("bid is %s; fee can only be confirmed on a pending bid", bid.Status))
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "bid fee already paid")
		}

		now := time.Now()
		inserted, err := txRepo.Insert(ctx, &models.CommitmentFee{
			BidID:                bid.ID,
			BuyerID:              bid.BuyerID,
			Amount:               s.bidding.CommitmentFee(),
			Status:               enums.FeeStatusPaid,
			TransactionReference: paymentID,
			GatewayResponse:      input.GatewayResponse,
			ProcessedAt:          &now,
		})
		if err != nil {
			return err
		}
		fee = inserted

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidFeePaid,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         &outbox.ActorRef{UserID: bid.BuyerID, Role: enums.UserTypeBuyer.String()},
			Data: FeePaidEvent{
				BidID:                bid.ID,
				BuyerID:              bid.BuyerID,
				TransactionReference: paymentID,
				AmountMinor:          input.AmountMinor,
			},
		})
	})
	if txErr != nil {
		// A concurrent confirmation of the same payment lost the insert
		// race on the transaction reference. Resolve from the ledger.
		if db.IsUniqueViolation(txErr, "") {
			if existing, err := s.findExistingConfirmation(ctx, input.BidID, paymentID); existing != nil || err != nil {
				return existing, err
			}
		}
		return nil, txErr
	}
	return fee, nil
}

func (s *service) findExistingConfirmation(ctx context.Context, bidID uuid.UUID, paymentID string) (*models.CommitmentFee, error) {
	existing, err := s.repo.FindByTransactionReference(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commitment fee")
	}
	if existing.BidID != bidID {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "payment reference already used for another bid")
	}
	return existing, nil
}

func (s *service) FindByBid(ctx context.Context, bidID uuid.UUID) (*models.CommitmentFee, error) {
	fee, err := s.repo.FindLatestByBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commitment fee not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commitment fee")
	}
	return fee, nil
}
