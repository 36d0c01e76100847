package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/teamhub-backend/api/controllers"
	creditcontrollers "github.com/angelmondragon/teamhub-backend/api/controllers/credit"
	mealcontrollers "github.com/angelmondragon/teamhub-backend/api/controllers/meals"
	"github.com/angelmondragon/teamhub-backend/api/middleware"
	"github.com/angelmondragon/teamhub-backend/internal/meals"
	"github.com/angelmondragon/teamhub-backend/internal/menu"
	"github.com/angelmondragon/teamhub-backend/internal/reporting"
	"github.com/angelmondragon/teamhub-backend/internal/topups"
	"github.com/angelmondragon/teamhub-backend/internal/transfers"
	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/redis"
)

// Services groups the domain services mounted under /api/v1.
type Services struct {
	Transfers transfers.Service
	TopUps    topups.Service
	Reporting reporting.Service
	Menu      menu.Service
	Meals     meals.Service
}

// Infra carries the optional collaborators of the HTTP layer. A nil
// Idempotency store disables replay; a nil Metrics gatherer hides /metrics.
type Infra struct {
	Health      map[string]controllers.Pinger
	Idempotency redis.IdempotencyStore
	RateLimiter *middleware.RateLimiter
	Metrics     prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svcs Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Health))
	})

	if infra.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if infra.RateLimiter != nil {
			r.Use(infra.RateLimiter.Handler)
		}
		r.Use(middleware.Idempotency(infra.Idempotency, logg))

		r.Route("/credit", func(r chi.Router) {
			r.Post("/transfer", creditcontrollers.Transfer(svcs.Transfers, logg))
			r.Post("/transfer/check", creditcontrollers.CheckDestination(svcs.Transfers, logg))
			r.Get("/summary", creditcontrollers.Summary(svcs.Reporting, logg))

			r.Route("/topup", func(r chi.Router) {
				r.Get("/", creditcontrollers.ListTopUps(svcs.TopUps, logg))
				r.Post("/", creditcontrollers.CreateTopUp(svcs.TopUps, logg))
				r.Get("/instructions", creditcontrollers.TopUpInstructions(svcs.TopUps, logg))
				r.With(middleware.RequireSuperuser(logg)).Patch("/{topupId}", creditcontrollers.SettleTopUp(svcs.TopUps, logg))
			})
		})

		r.Route("/meals", func(r chi.Router) {
			r.Get("/slots", mealcontrollers.ListSlots(svcs.Meals, logg))
			r.Get("/menu", mealcontrollers.ListMenu(svcs.Menu, logg))

			r.Get("/profile", mealcontrollers.GetProfile(svcs.Meals, logg))
			r.Patch("/profile", mealcontrollers.UpdateProfile(svcs.Meals, logg))

			r.Get("/orders", mealcontrollers.ListOrders(svcs.Meals, logg))
			r.Post("/orders", mealcontrollers.CreateOrder(svcs.Meals, logg))
			r.Post("/orders/bulk", mealcontrollers.CreateOrders(svcs.Meals, logg))
			r.Post("/orders/bulk-delete", mealcontrollers.CancelOrders(svcs.Meals, logg))
			r.Delete("/orders/{orderId}", mealcontrollers.CancelOrder(svcs.Meals, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSuperuser(logg))
				r.Post("/slots", mealcontrollers.CreateSlot(svcs.Meals, logg))
				r.Delete("/slots/{slotId}", mealcontrollers.DeleteSlot(svcs.Meals, logg))
				r.Post("/menu", mealcontrollers.CreateMenuItem(svcs.Menu, logg))
				r.Patch("/menu/{itemId}", mealcontrollers.UpdateMenuItem(svcs.Menu, logg))
			})
		})
	})

	return r
}
