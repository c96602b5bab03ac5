package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourstay/internal/observability"
	"tourstay/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.RateLimiter, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(JWTMiddleware(jwtSecret))
		r.Use(RateLimitMiddleware(rl))

		r.Post("/v1/bookings", h.CreateBooking)
		r.Get("/v1/bookings", h.GetBookings)
		r.Get("/v1/bookings/{id}", h.GetBooking)
		r.Post("/v1/bookings/{id}/cancel", h.CancelBooking)

		r.Post("/v1/hotels", h.CreateHotel)
		r.Get("/v1/hotels", h.GetHotels)
		r.Get("/v1/hotels/{id}", h.GetHotel)
		r.Put("/v1/hotels/{id}", h.UpdateHotel)
		r.Delete("/v1/hotels/{id}", h.DeleteHotel)

		r.Post("/v1/stores", h.CreateStore)
		r.Get("/v1/stores", h.GetStores)
		r.Get("/v1/stores/{slug}", h.GetStore)
	})

	return r
}
