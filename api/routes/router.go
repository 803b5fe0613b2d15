package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/procurement-backend/api/controllers"
	"github.com/angelmondragon/procurement-backend/api/middleware"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// Presence is the live viewer channel of a document.
type Presence interface {
	controllers.PresenceServer
	controllers.ChangeNotifier
}

// Deps are the services the HTTP surface exposes.
type Deps struct {
	DB       controllers.Pinger
	Redis    controllers.Pinger
	RFQ      controllers.RFQService
	Terms    controllers.PaymentTermsService
	Rates    controllers.RateLookup
	Presence Presence
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Actor(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var notifier controllers.ChangeNotifier
	if deps.Presence != nil {
		notifier = deps.Presence
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Rates != nil {
			r.Get("/target-rates", controllers.TargetRatesLookup(deps.Rates, logg))
		}

		r.Route("/rfq/{kind}/{docId}", func(r chi.Router) {
			svc := deps.RFQ
			r.Get("/", controllers.RFQState(svc, logg))
			r.Post("/vendors", controllers.RFQAddVendors(svc, notifier, logg))
			r.Delete("/vendors/{vendorId}", controllers.RFQRemoveVendor(svc, notifier, logg))
			r.Put("/quotes", controllers.RFQSetQuotes(svc, notifier, logg))
			r.Put("/makes", controllers.RFQSetMakes(svc, notifier, logg))
			r.Post("/select", controllers.RFQToggleSelection(svc, notifier, logg))
			r.Post("/view", controllers.RFQTransition(svc.SwitchToView, notifier, logg))
			r.Post("/edit", controllers.RFQTransition(svc.SwitchToEdit, notifier, logg))
			r.Post("/proceed", controllers.RFQTransition(svc.Proceed, notifier, logg))
			r.Post("/revert", controllers.RFQTransition(svc.Revert, notifier, logg))
			r.Get("/summary", controllers.RFQSummary(svc, logg))
			r.Get("/summary.xlsx", controllers.RFQSummaryXLSX(svc, logg))

			r.Get("/payment-terms", controllers.PaymentTermsGet(deps.Terms, logg))
			r.Put("/payment-terms", controllers.PaymentTermsPut(deps.Terms, logg))
			r.Post("/submit", controllers.RFQSubmit(deps.Terms, notifier, logg))

			if deps.Presence != nil {
				r.Get("/presence", controllers.RFQPresence(deps.Presence, logg))
			}
		})
	})

	return r
}
