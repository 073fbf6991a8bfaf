package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/Bayazov/OrderManagement/internal/cache"
	"github.com/Bayazov/OrderManagement/internal/domain"
	"github.com/Bayazov/OrderManagement/internal/metrics"
	"github.com/Bayazov/OrderManagement/internal/service/order"
)

// NewRouter собирает HTTP-маршруты сервиса заказов. Все эндпоинты, кроме
// проверок живости, требуют Basic-аутентификации.
func NewRouter(service *order.Service, users domain.UserStore, queryCache *cache.OrdersCache, m *metrics.Metrics, logger *log.Entry) http.Handler {
	handler := NewHandler(service, queryCache, m, logger)
	auth := newAuthMiddleware(users, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.WithField("component", "http")))
	r.Use(httpMetrics(m))

	r.Group(func(r chi.Router) {
		r.Use(auth.Handler)

		r.Post("/login", handler.login)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handler.createOrder)
			r.Get("/", handler.listOrders)

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", handler.getOrder)
				r.Put("/", handler.updateOrder)
				r.Delete("/", handler.deleteOrder)
			})
		})
	})

	return r
}
