package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sayyara-app/sayyara-backend/api/responses"
	"github.com/sayyara-app/sayyara-backend/internal/fees"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
	"github.com/sayyara-app/sayyara-backend/pkg/logger"
	"github.com/sayyara-app/sayyara-backend/pkg/moyasar"
)

// MoyasarVerify is the hosted-payment return URL. The payment id from the
// query string is never trusted on its own: the amount, currency and status
// are re-fetched from the gateway before the ledger is touched.
func MoyasarVerify(verifier moyasar.Verifier, svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		paymentID := strings.TrimSpace(r.URL.Query().Get("id"))
		if paymentID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required"))
			return
		}
		bidID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("bid_id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid id"))
			return
		}

		payment, err := verifier.FetchPayment(r.Context(), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payment.Paid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation,
				"payment is not in a paid state").WithDetails(map[string]any{"status": payment.Status}))
			return
		}

		fee, err := svc.ConfirmPayment(r.Context(), fees.ConfirmInput{
			BidID:           bidID,
			PaymentID:       payment.ID,
			AmountMinor:     payment.Amount,
			Currency:        payment.Currency,
			GatewayResponse: payment.Raw(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fee)
	}
}
