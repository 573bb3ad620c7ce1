package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/internal/fees"
	"github.com/sayyara-app/sayyara-backend/internal/inventory"
	"github.com/sayyara-app/sayyara-backend/pkg/config"
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

// AcceptGroupInput asks for up to Quantity bids at exactly Price on one
// configuration, settled oldest first.
type AcceptGroupInput struct {
	DealerID           uuid.UUID
	CarConfigurationID uuid.UUID
	Price              decimal.Decimal
	Quantity           int
}

// AcceptGroupResult reports a partial settlement honestly: Settled may be
// lower than Requested when stock or eligible bids run out.
type AcceptGroupResult struct {
	Requested int
	Settled   int
	Deals     []models.Deal
}

type BidAcceptedEvent struct {
	BidID    uuid.UUID `json:"bid_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
	DealerID uuid.UUID `json:"dealer_id"`
	DealID   uuid.UUID `json:"deal_id"`
}

type DealCreatedEvent struct {
	DealID             uuid.UUID       `json:"deal_id"`
	BidID              uuid.UUID       `json:"bid_id"`
	BuyerID            uuid.UUID       `json:"buyer_id"`
	DealerID           uuid.UUID       `json:"dealer_id"`
	CarConfigurationID uuid.UUID       `json:"car_configuration_id"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	PaymentDueDate     time.Time       `json:"payment_due_date"`
}

type BidExpiredEvent struct {
	BidID   uuid.UUID `json:"bid_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
}

type DealCompletedEvent struct {
	DealID   uuid.UUID `json:"deal_id"`
	DealerID uuid.UUID `json:"dealer_id"`
}

type DealRefundedEvent struct {
	DealID  uuid.UUID `json:"deal_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
}

// Service settles bids into deals. Every settlement path runs in a single
// transaction: bid flip, stock decrement, deal insert, and fee transition
// commit together or not at all.
type Service interface {
	AcceptBid(ctx context.Context, dealerID, bidID uuid.UUID) (*models.Deal, error)
	AcceptBidsGroup(ctx context.Context, input AcceptGroupInput) (*AcceptGroupResult, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
	CompleteDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error)
	RefundDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error)
	FindDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	ListDealsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Deal, error)
	ListDealsByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.Deal, error)
}

type service struct {
	repo      *Repository
	inventory *inventory.Repository
	fees      *fees.Repository
	tx        txRunner
	outbox    outboxPublisher
	cfg       config.BiddingConfig
}

func NewService(repo *Repository, inventoryRepo *inventory.Repository, feesRepo *fees.Repository, tx txRunner, ob outboxPublisher, cfg config.BiddingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if feesRepo == nil {
		return nil, fmt.Errorf("fees repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		inventory: inventoryRepo,
		fees:      feesRepo,
		tx:        tx,
		outbox:    ob,
		cfg:       cfg,
	}, nil
}

func (s *service) AcceptBid(ctx context.Context, dealerID, bidID uuid.UUID) (*models.Deal, error) {
	if dealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "dealer identity missing")
	}
	if bidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}

	if _, err := s.inventory.FindDealer(ctx, dealerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}

	bid, err := s.repo.FindBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
	}

	now := time.Now()
	if err := checkEligibility(bid, now); err != nil {
		return nil, err
	}

	var deal *models.Deal
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.settleBid(ctx, tx, bid, dealerID, now)
		if err != nil {
			return err
		}
		deal = created
		return nil
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) AcceptBidsGroup(ctx context.Context, input AcceptGroupInput) (*AcceptGroupResult, error) {
	if input.DealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "dealer identity missing")
	}
	if input.CarConfigurationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "configuration id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	if _, err := s.inventory.FindDealer(ctx, input.DealerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}

	now := time.Now()
	result := &AcceptGroupResult{Requested: input.Quantity}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		eligible, err := txRepo.ListEligibleBids(ctx, input.CarConfigurationID, input.Price, now, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible bids")
		}
		if len(eligible) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("no eligible bids at %s", input.Price))
		}

		for i := range eligible {
			deal, err := s.settleBid(ctx, tx, &eligible[i], input.DealerID, now)
			if err != nil {
				// Out of stock ends the batch; what settled so far stands.
				if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
					break
				}
				// A raced flip skips this bid, the rest can still settle.
				if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
					continue
				}
				return err
			}
			result.Deals = append(result.Deals, *deal)
		}

		result.Settled = len(result.Deals)
		if result.Settled == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "no bids could be settled")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// settleBid runs the four-step settlement inside the caller's transaction:
// guarded stock decrement, guarded bid flip, deal insert, fee transition.
// The decrement comes first so a raced flip can hand the unit back without
// leaving an accepted bid behind in a batch that still commits.
func (s *service) settleBid(ctx context.Context, tx *gorm.DB, bid *models.Bid, dealerID uuid.UUID, now time.Time) (*models.Deal, error) {
	txRepo := s.repo.WithTx(tx)
	stock := s.inventory.WithTx(tx)

	affected, err := stock.DecrementStock(ctx, dealerID, bid.CarConfigurationID, 1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "no inventory available for this configuration")
	}

	affected, err = txRepo.AcceptPendingBid(ctx, bid.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: accept bid")
	}
	if affected == 0 {
		if _, err := stock.RestoreStock(ctx, dealerID, bid.CarConfigurationID, 1); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore stock")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bid was already settled or is no longer eligible")
	}

	dueDate := now.Add(s.cfg.DealPaymentWindow)
	deal, err := txRepo.CreateDeal(ctx, &models.Deal{
		BidID:              bid.ID,
		BuyerID:            bid.BuyerID,
		DealerID:           dealerID,
		CarConfigurationID: bid.CarConfigurationID,
		FinalPrice:         bid.BidPrice,
		Quantity:           1,
		Status:             enums.DealStatusPendingPayment,
		PaymentDueDate:     &dueDate,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert deal")
	}

	affected, err = s.fees.WithTx(tx).TransitionByBid(ctx, bid.ID, enums.FeeStatusPaid, enums.FeeStatusAppliedToPurchase)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply commitment fee")
	}
	if affected == 0 {
		// fee_paid was true but the ledger has no paid row. Abort rather
		// than settle against an inconsistent ledger.
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commitment fee ledger missing paid entry")
	}

	actor := &outbox.ActorRef{DealerID: &dealerID, Role: enums.UserTypeDealer.String()}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBidAccepted,
		AggregateType: enums.AggregateBid,
		AggregateID:   bid.ID,
		Actor:         actor,
		Data: BidAcceptedEvent{
			BidID:    bid.ID,
			BuyerID:  bid.BuyerID,
			DealerID: dealerID,
			DealID:   deal.ID,
		},
	}); err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDealCreated,
		AggregateType: enums.AggregateDeal,
		AggregateID:   deal.ID,
		Actor:         actor,
		Data: DealCreatedEvent{
			DealID:             deal.ID,
			BidID:              bid.ID,
			BuyerID:            bid.BuyerID,
			DealerID:           dealerID,
			CarConfigurationID: bid.CarConfigurationID,
			FinalPrice:         deal.FinalPrice,
			PaymentDueDate:     dueDate,
		},
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

func checkEligibility(bid *models.Bid, now time.Time) error {
	if bid.Status != enums.BidStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("bid is %s; only pending bids can be accepted", bid.Status))
	}
	if !bid.FeePaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "commitment fee not paid")
	}
	if !bid.ExpiresAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bid has expired")
	}
	return nil
}

// ExpirePending sweeps overdue pending bids to expired and refunds any paid
// commitment fees. Returns the number of bids swept.
func (s *service) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	var swept int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		overdue, err := txRepo.ListOverduePending(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue bids")
		}
		if len(overdue) == 0 {
			return nil
		}

		swept, err = txRepo.ExpirePendingBids(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: expire bids")
		}

		feeRepo := s.fees.WithTx(tx)
		for i := range overdue {
			bid := &overdue[i]
			if bid.FeePaid {
				if _, err := feeRepo.TransitionByBid(ctx, bid.ID, enums.FeeStatusPaid, enums.FeeStatusRefunded); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refund fee")
				}
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventBidExpired,
				AggregateType: enums.AggregateBid,
				AggregateID:   bid.ID,
				Data:          BidExpiredEvent{BidID: bid.ID, BuyerID: bid.BuyerID},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return swept, nil
}

func (s *service) CompleteDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	if dealID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal id required")
	}

	var deal *models.Deal
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		now := time.Now()
		affected, err := txRepo.TransitionDeal(ctx, dealID, enums.DealStatusPendingPayment, enums.DealStatusCompleted, &now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: complete deal")
		}
		if affected == 0 {
			return s.diagnoseDealTransition(ctx, txRepo, dealID, "completed")
		}

		loaded, err := txRepo.FindDeal(ctx, dealID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
		}
		deal = loaded

		if err := txRepo.IncrementDealerSales(ctx, deal.DealerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment dealer sales")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDealComplete,
			AggregateType: enums.AggregateDeal,
			AggregateID:   deal.ID,
			Data:          DealCompletedEvent{DealID: deal.ID, DealerID: deal.DealerID},
		})
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

// RefundDeal unwinds a settlement that never got paid: the unit goes back to
// the dealer's stock and the commitment fee is refunded.
func (s *service) RefundDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	if dealID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal id required")
	}

	var deal *models.Deal
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		affected, err := txRepo.TransitionDeal(ctx, dealID, enums.DealStatusPendingPayment, enums.DealStatusRefunded, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refund deal")
		}
		if affected == 0 {
			return s.diagnoseDealTransition(ctx, txRepo, dealID, "refunded")
		}

		loaded, err := txRepo.FindDeal(ctx, dealID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
		}
		deal = loaded

		if _, err := s.inventory.WithTx(tx).RestoreStock(ctx, deal.DealerID, deal.CarConfigurationID, deal.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore stock")
		}
		if _, err := s.fees.WithTx(tx).TransitionByBid(ctx, deal.BidID, enums.FeeStatusAppliedToPurchase, enums.FeeStatusRefunded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refund fee")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDealRefunded,
			AggregateType: enums.AggregateDeal,
			AggregateID:   deal.ID,
			Data:          DealRefundedEvent{DealID: deal.ID, BuyerID: deal.BuyerID},
		})
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) diagnoseDealTransition(ctx context.Context, txRepo *Repository, dealID uuid.UUID, target string) error {
	deal, err := txRepo.FindDeal(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("deal is %s and cannot be %s", deal.Status, target))
}

func (s *service) FindDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	deal, err := s.repo.FindDeal(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
	}
	return deal, nil
}

func (s *service) ListDealsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Deal, error) {
	rows, err := s.repo.ListDealsByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deals")
	}
	return rows, nil
}

func (s *service) ListDealsByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.Deal, error) {
	rows, err := s.repo.ListDealsByDealer(ctx, dealerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deals")
	}
	return rows, nil
}
