package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sayyara-app/sayyara-backend/api/middleware"
	"github.com/sayyara-app/sayyara-backend/api/responses"
	"github.com/sayyara-app/sayyara-backend/api/validators"
	"github.com/sayyara-app/sayyara-backend/internal/catalog"
	"github.com/sayyara-app/sayyara-backend/internal/inventory"
	"github.com/sayyara-app/sayyara-backend/internal/settlement"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
	"github.com/sayyara-app/sayyara-backend/pkg/logger"
)

func dealerFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.DealerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "dealer context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid dealer id")
	}
	return id, nil
}

type inventoryAddRequest struct {
	Make           string          `json:"make" validate:"required"`
	Model          string          `json:"model" validate:"required"`
	Year           int             `json:"year" validate:"required,min=1990,max=2100"`
	Trim           string          `json:"trim"`
	Color          string          `json:"color"`
	Variant        *string         `json:"variant,omitempty"`
	WakalaPrice    decimal.Decimal `json:"wakala_price"`
	Images         json.RawMessage `json:"images,omitempty"`
	Specifications json.RawMessage `json:"specifications,omitempty"`
	Quantity       int             `json:"quantity" validate:"required,min=1"`
	PriceSlots     json.RawMessage `json:"price_slots,omitempty"`
	ConfirmNew     bool            `json:"confirm_new"`
}

func (req inventoryAddRequest) toInput(dealerID uuid.UUID) inventory.AddInput {
	return inventory.AddInput{
		DealerID: dealerID,
		Identity: catalog.Identity{
			Make:  validators.SanitizeString(req.Make, 64),
			Model: validators.SanitizeString(req.Model, 64),
			Year:  req.Year,
			Trim:  validators.SanitizeString(req.Trim, 64),
			Color: validators.SanitizeString(req.Color, 64),
		},
		Variant:        req.Variant,
		WakalaPrice:    req.WakalaPrice,
		Images:         req.Images,
		Specifications: req.Specifications,
		Quantity:       req.Quantity,
		PriceSlots:     req.PriceSlots,
		ConfirmNew:     req.ConfirmNew,
	}
}

// DealerInventoryAdd submits stock. Unknown configurations come back as
// requires_confirmation until the dealer retries with confirm_new.
func DealerInventoryAdd(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventoryAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddToInventory(r.Context(), payload.toInput(dealerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Outcome == inventory.OutcomeExistsInInventory ||
			result.Outcome == inventory.OutcomeRequiresConfirmation {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"outcome":       result.Outcome,
			"configuration": result.Configuration,
			"record":        result.Record,
		})
	}
}

func DealerInventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByDealer(r.Context(), dealerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type inventoryStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func DealerInventoryStatus(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "recordId"))
		recordID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record id"))
			return
		}

		var payload inventoryStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetStatus(r.Context(), dealerID, recordID, enums.InventoryStatus(payload.Status)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// DealerAcceptBid settles one bid for the authenticated dealer.
func DealerAcceptBid(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bidID, err := bidIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deal, err := svc.AcceptBid(r.Context(), dealerID, bidID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, deal)
	}
}

type acceptGroupRequest struct {
	CarConfigurationID uuid.UUID       `json:"car_configuration_id" validate:"required"`
	Price              decimal.Decimal `json:"price" validate:"required"`
	Quantity           int             `json:"quantity" validate:"required,min=1"`
}

// DealerAcceptGroup settles up to quantity bids at exactly the given price,
// oldest first. Partial settlement is reported, not hidden.
func DealerAcceptGroup(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload acceptGroupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AcceptBidsGroup(r.Context(), settlement.AcceptGroupInput{
			DealerID:           dealerID,
			CarConfigurationID: payload.CarConfigurationID,
			Price:              payload.Price,
			Quantity:           payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"requested": result.Requested,
			"settled":   result.Settled,
			"deals":     result.Deals,
		})
	}
}

func DealerDeals(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListDealsByDealer(r.Context(), dealerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
