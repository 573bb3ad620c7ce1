package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sayyara-app/sayyara-backend/api/controllers"
	"github.com/sayyara-app/sayyara-backend/api/middleware"
	"github.com/sayyara-app/sayyara-backend/internal/bids"
	"github.com/sayyara-app/sayyara-backend/internal/catalog"
	"github.com/sayyara-app/sayyara-backend/internal/fees"
	"github.com/sayyara-app/sayyara-backend/internal/inventory"
	"github.com/sayyara-app/sayyara-backend/internal/reporting"
	"github.com/sayyara-app/sayyara-backend/internal/settlement"
	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/db"
	"github.com/sayyara-app/sayyara-backend/pkg/enums"
	"github.com/sayyara-app/sayyara-backend/pkg/logger"
	"github.com/sayyara-app/sayyara-backend/pkg/moyasar"
	"github.com/sayyara-app/sayyara-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paymentVerifier moyasar.Verifier,
	catalogService catalog.Service,
	inventoryService inventory.Service,
	bidsService bids.Service,
	feesService fees.Service,
	settlementService settlement.Service,
	reportingService reporting.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// A nil *redis.Client must stay a nil pinger, not a typed-nil interface.
	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	// Public catalog reads: browsing needs no account.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/configurations", controllers.CatalogList(catalogService, logg))
		r.Get("/makes", controllers.CatalogMakes(catalogService, logg))
		r.Get("/models", controllers.CatalogModels(catalogService, logg))
		r.Route("/configurations/{configId}", func(r chi.Router) {
			r.Get("/", controllers.CatalogDetail(catalogService, logg))
			r.Get("/leaderboard", controllers.CatalogLeaderboard(reportingService, logg))
			r.Get("/bids", controllers.CatalogPendingBids(bidsService, logg))
		})
	})

	// The gateway return URL carries its own proof: the payment is
	// re-fetched from Moyasar, so no session is required here.
	r.Get("/api/v1/payments/moyasar/verify", controllers.MoyasarVerify(paymentVerifier, feesService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserTypeBuyer, logg))
			r.Route("/bids", func(r chi.Router) {
				r.Post("/", controllers.BidSubmit(bidsService, logg))
				r.Get("/", controllers.BidList(bidsService, logg))
				r.Delete("/{bidId}", controllers.BidCancel(bidsService, logg))
			})
			r.Get("/deals", controllers.BuyerDeals(settlementService, logg))
		})

		r.Route("/dealer", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserTypeDealer, logg))
			r.Use(middleware.RequireDealerContext(logg))
			r.Route("/inventory", func(r chi.Router) {
				r.Post("/", controllers.DealerInventoryAdd(inventoryService, logg))
				r.Get("/", controllers.DealerInventoryList(inventoryService, logg))
				r.Patch("/{recordId}/status", controllers.DealerInventoryStatus(inventoryService, logg))
			})
			r.Route("/bids", func(r chi.Router) {
				r.Post("/{bidId}/accept", controllers.DealerAcceptBid(settlementService, logg))
				r.Post("/accept-group", controllers.DealerAcceptGroup(settlementService, logg))
			})
			r.Get("/deals", controllers.DealerDeals(settlementService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserTypeAdmin, logg))
		r.Get("/stats", controllers.AdminStats(reportingService, logg))
		r.Get("/reports/sales", controllers.AdminSalesReport(reportingService, logg))
		r.Route("/deals/{dealId}", func(r chi.Router) {
			r.Post("/complete", controllers.AdminCompleteDeal(settlementService, logg))
			r.Post("/refund", controllers.AdminRefundDeal(settlementService, logg))
		})
	})

	return r
}
