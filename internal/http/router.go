package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/idempotency"
	"github.com/showseat/boxoffice/internal/observability"
	"github.com/showseat/boxoffice/internal/ratelimit"
)

type RouterDeps struct {
	Handlers    *Handlers
	JWTSecret   string
	Limiter     *ratelimit.RateLimiter
	Idempotency *idempotency.Idempotency
	Logger      observability.Logger
	Ready       func(ctx context.Context) error
}

func NewRouter(deps RouterDeps) http.Handler {
	h := deps.Handlers

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Tracing)
	r.Use(Logging(deps.Logger))
	r.Use(Authenticate(deps.JWTSecret))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.With(RequireUser).Get("/auth/me", h.Me)

	r.Route("/movies", func(r chi.Router) {
		r.Get("/", h.ListMovies)
		r.Get("/categories", h.ListCategoriesFor(domain.KindMovie))
		r.Get("/{movieID}", h.GetMovie)
		r.Get("/{movieID}/showtimes", h.ListShowtimesFor(domain.KindMovie, "movieID"))
	})
	r.Route("/concerts", func(r chi.Router) {
		r.Get("/", h.ListEventsFor(domain.KindConcert))
		r.Get("/categories", h.ListCategoriesFor(domain.KindConcert))
		r.Get("/{eventID}", h.GetEventFor(domain.KindConcert))
		r.Get("/{eventID}/showtimes", h.ListShowtimesFor(domain.KindConcert, "eventID"))
	})
	r.Route("/exhibitions", func(r chi.Router) {
		r.Get("/", h.ListEventsFor(domain.KindExhibition))
		r.Get("/categories", h.ListCategoriesFor(domain.KindExhibition))
		r.Get("/{eventID}", h.GetEventFor(domain.KindExhibition))
		r.Get("/{eventID}/showtimes", h.ListShowtimesFor(domain.KindExhibition, "eventID"))
	})

	r.Get("/showtimes/{showtimeID}/seats", h.ListSeats)
	r.With(RequireUser).Get("/showtimes/{showtimeID}/seats/me", h.ListSeats)

	// Holds are the spammable endpoint, so they carry the tightest
	// rate limit.
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Use(RateLimit(deps.Limiter, 30, time.Minute))
		r.Use(Idempotent(deps.Idempotency))

		r.Post("/showtimes/{showtimeID}/hold", h.CreateHold)
		r.Post("/holds/{token}/release", h.ReleaseHold)
		r.Post("/orders/checkout", h.Checkout)
		r.Post("/orders/{orderID}/mock_pay", h.PayOrder)
		r.Post("/orders/{orderID}/cancel", h.CancelOrder)
	})
	r.With(RequireUser).Get("/orders", h.ListOrders)

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Post("/movies", h.AdminCreateMovie)
		r.Post("/events", h.AdminCreateEvent)
		r.Post("/categories", h.AdminUpsertCategory)
		r.Post("/cinemas", h.AdminCreateCinema)
		r.Post("/halls", h.AdminCreateHall)
		r.Post("/showtimes", h.AdminCreateShowtime)
		r.Get("/orders/{orderID}/audit", h.AdminOrderAudit)
	})

	return r
}
