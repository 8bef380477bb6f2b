package http

import (
	"context"
	"net/http"
	"time"

	"github.com/showseat/boxoffice/internal/adapters/postgres"
	"github.com/showseat/boxoffice/internal/domain"
)

// CatalogStore is the slice of the repository the browsing and admin
// handlers need.
type CatalogStore interface {
	ListMovies(ctx context.Context, query, category string) ([]domain.Movie, error)
	GetMovie(ctx context.Context, id int64) (*domain.Movie, error)
	CreateMovie(ctx context.Context, m *domain.Movie) error
	ListEvents(ctx context.Context, kind domain.EventKind, query, category string) ([]domain.Event, error)
	GetEvent(ctx context.Context, kind domain.EventKind, id int64) (*domain.Event, error)
	CreateEvent(ctx context.Context, e *domain.Event) error
	ListCategories(ctx context.Context, kind domain.EventKind) ([]domain.EventCategory, error)
	UpsertCategory(ctx context.Context, c *domain.EventCategory) error
	CreateCinema(ctx context.Context, c *domain.Cinema) error
	CreateHall(ctx context.Context, h *domain.Hall) error
	CreateShowtime(ctx context.Context, st *domain.Showtime) error
	ListShowtimes(ctx context.Context, kind domain.EventKind, targetID int64) ([]postgres.ShowtimeListing, error)
}

type movieResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DurationMin int    `json:"duration_min"`
	Rating      string `json:"rating"`
	PosterURL   string `json:"poster_url"`
}

type eventResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PosterURL   string `json:"poster_url"`
	Venue       string `json:"venue"`
	PriceInfo   string `json:"price_info"`
}

type showtimeResponse struct {
	ID         int64  `json:"id"`
	HallID     int64  `json:"hall_id"`
	HallName   string `json:"hall_name"`
	CinemaName string `json:"cinema_name"`
	StartTime  string `json:"start_time"`
	PriceCents int    `json:"price_cents"`
}

func (h *Handlers) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.catalog.ListMovies(r.Context(), r.URL.Query().Get("q"), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		out = append(out, movieResponse{
			ID: m.ID, Title: m.Title, Description: m.Description, Category: m.Category,
			DurationMin: m.DurationMin, Rating: m.Rating, PosterURL: m.PosterURL,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "movieID")
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.catalog.GetMovie(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movieResponse{
		ID: m.ID, Title: m.Title, Description: m.Description, Category: m.Category,
		DurationMin: m.DurationMin, Rating: m.Rating, PosterURL: m.PosterURL,
	})
}

// ListEventsFor serves /concerts and /exhibitions from the shared
// events table.
func (h *Handlers) ListEventsFor(kind domain.EventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := h.catalog.ListEvents(r.Context(), kind, r.URL.Query().Get("q"), r.URL.Query().Get("category"))
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]eventResponse, 0, len(events))
		for _, e := range events {
			out = append(out, eventResponse{
				ID: e.ID, Title: e.Title, Description: e.Description, Category: e.Category,
				PosterURL: e.PosterURL, Venue: e.Venue, PriceInfo: e.PriceInfo,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handlers) GetEventFor(kind domain.EventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "eventID")
		if err != nil {
			writeError(w, err)
			return
		}
		e, err := h.catalog.GetEvent(r.Context(), kind, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eventResponse{
			ID: e.ID, Title: e.Title, Description: e.Description, Category: e.Category,
			PosterURL: e.PosterURL, Venue: e.Venue, PriceInfo: e.PriceInfo,
		})
	}
}

func (h *Handlers) ListCategoriesFor(kind domain.EventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := h.catalog.ListCategories(r.Context(), kind)
		if err != nil {
			writeError(w, err)
			return
		}
		type categoryResponse struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		out := make([]categoryResponse, 0, len(cats))
		for _, c := range cats {
			out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ListShowtimesFor serves the showtime list under a movie, concert or
// exhibition detail page.
func (h *Handlers) ListShowtimesFor(kind domain.EventKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, err := pathID(r, param)
		if err != nil {
			writeError(w, err)
			return
		}
		listings, err := h.catalog.ListShowtimes(r.Context(), kind, targetID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]showtimeResponse, 0, len(listings))
		for _, l := range listings {
			out = append(out, showtimeResponse{
				ID: l.ID, HallID: l.HallID, HallName: l.HallName, CinemaName: l.CinemaName,
				StartTime: l.StartTime.Format(time.RFC3339), PriceCents: l.PriceCents,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
