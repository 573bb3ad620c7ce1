package bids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/internal/catalog"
	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/db"
	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
	"github.com/sayyara-app/sayyara-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SubmitInput is a buyer's price proposal on a configuration. The price is
// gross: the commitment fee comes out of it, the dealer sees the net.
type SubmitInput struct {
	BuyerID            uuid.UUID
	CarConfigurationID uuid.UUID
	BidPrice           decimal.Decimal
}

// BidSubmittedEvent is emitted on every submission, including rewrites.
type BidSubmittedEvent struct {
	BidID              uuid.UUID       `json:"bid_id"`
	BuyerID            uuid.UUID       `json:"buyer_id"`
	CarConfigurationID uuid.UUID       `json:"car_configuration_id"`
	BidPrice           decimal.Decimal `json:"bid_price"`
	NetAmount          decimal.Decimal `json:"net_amount"`
	ExpiresAt          time.Time       `json:"expires_at"`
	Resubmission       bool            `json:"resubmission"`
}

// BidCancelledEvent is emitted when a buyer withdraws a pending bid.
type BidCancelledEvent struct {
	BidID   uuid.UUID `json:"bid_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
}

// Service is the offer engine: buyers place and withdraw below-MSRP bids.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Bid, error)
	Cancel(ctx context.Context, buyerID, bidID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Bid, error)
	ListPendingByConfiguration(ctx context.Context, configID uuid.UUID) ([]models.Bid, error)
}

type service struct {
	repo    *Repository
	catalog *catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
	cfg     config.BiddingConfig
}

func NewService(repo *Repository, catalogRepo *catalog.Repository, tx txRunner, ob outboxPublisher, cfg config.BiddingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx, outbox: ob, cfg: cfg}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Bid, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if input.CarConfigurationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "configuration id required")
	}

	fee := s.cfg.CommitmentFee()
	if input.BidPrice.LessThanOrEqual(fee) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("bid must exceed the %s SAR commitment fee", fee))
	}

	configuration, err := s.catalog.FindByID(ctx, input.CarConfigurationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load configuration")
	}
	if input.BidPrice.GreaterThanOrEqual(configuration.WakalaPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid must be below the wakala price")
	}

	now := time.Now()
	net := input.BidPrice.Sub(fee)
	expiresAt := now.Add(s.cfg.BidTTL)

	var bid *models.Bid
	resubmission := false
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.FindActive(ctx, input.BuyerID, input.CarConfigurationID)
		switch {
		case err == nil:
			if existing.Status == enums.BidStatusAccepted {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "bid already accepted by a dealer")
			}
			resubmission = true
			amountChanged := !existing.BidPrice.Equal(input.BidPrice)
			existing.BidPrice = input.BidPrice
			existing.NetAmount = net
			existing.FeeAmount = fee
			existing.ExpiresAt = expiresAt
			if amountChanged {
				// A new amount needs a fresh commitment fee; the old
				// payment no longer binds this bid.
				existing.FeePaid = false
				existing.PaymentReference = nil
			}
			affected, err := txRepo.Resubmit(ctx, existing)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rewrite bid")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "bid changed state during submission")
			}
			bid = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := txRepo.Create(ctx, &models.Bid{
				BuyerID:            input.BuyerID,
				CarConfigurationID: input.CarConfigurationID,
				BidPrice:           input.BidPrice,
				NetAmount:          net,
				Status:             enums.BidStatusPending,
				FeeAmount:          fee,
				ExpiresAt:          expiresAt,
			})
			if err != nil {
				// A racing first submission from the same buyer lands here
				// when the loser trips the one-active-bid index.
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "an active bid already exists for this configuration")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert bid")
			}
			bid = created
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active bid")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidSubmitted,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: enums.UserTypeBuyer.String()},
			Data: BidSubmittedEvent{
				BidID:              bid.ID,
				BuyerID:            bid.BuyerID,
				CarConfigurationID: bid.CarConfigurationID,
				BidPrice:           bid.BidPrice,
				NetAmount:          bid.NetAmount,
				ExpiresAt:          bid.ExpiresAt,
				Resubmission:       resubmission,
			},
		})
	}); err != nil {
		return nil, err
	}
	return bid, nil
}

func (s *service) Cancel(ctx context.Context, buyerID, bidID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if bidID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		affected, err := txRepo.CancelPending(ctx, bidID, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel bid")
		}
		if affected == 0 {
			bid, err := txRepo.FindByID(ctx, bidID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
			}
			if bid.BuyerID != buyerID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "bid does not belong to buyer")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("bid is %s and cannot be cancelled", bid.Status))
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidCancelled,
			AggregateType: enums.AggregateBid,
			AggregateID:   bidID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserTypeBuyer.String()},
			Data:          BidCancelledEvent{BidID: bidID, BuyerID: buyerID},
		})
	})
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
	}
	return bid, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Bid, error) {
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}
	return rows, nil
}

func (s *service) ListPendingByConfiguration(ctx context.Context, configID uuid.UUID) ([]models.Bid, error) {
	rows, err := s.repo.ListPendingByConfiguration(ctx, configID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending bids")
	}
	return rows, nil
}
