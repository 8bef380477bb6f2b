package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/showseat/boxoffice/internal/domain"
)

type createMovieRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DurationMin int    `json:"duration_min"`
	Rating      string `json:"rating"`
	PosterURL   string `json:"poster_url"`
}

func (h *Handlers) AdminCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req createMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "title required"))
		return
	}
	m := &domain.Movie{
		Title: req.Title, Description: req.Description, Category: req.Category,
		DurationMin: req.DurationMin, Rating: req.Rating, PosterURL: req.PosterURL,
		Status: "ON",
	}
	if err := h.catalog.CreateMovie(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": m.ID})
}

type createEventRequest struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PosterURL   string `json:"poster_url"`
	Venue       string `json:"venue"`
	PriceInfo   string `json:"price_info"`
}

func (h *Handlers) AdminCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "title required"))
		return
	}
	kind := domain.EventKind(req.Kind)
	if kind != domain.KindConcert && kind != domain.KindExhibition {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "kind must be concert or exhibition"))
		return
	}
	e := &domain.Event{
		Kind: kind, Title: req.Title, Description: req.Description, Category: req.Category,
		PosterURL: req.PosterURL, Venue: req.Venue, PriceInfo: req.PriceInfo,
		Status: "ON",
	}
	if err := h.catalog.CreateEvent(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": e.ID})
}

type upsertCategoryRequest struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handlers) AdminUpsertCategory(w http.ResponseWriter, r *http.Request) {
	var req upsertCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "name required"))
		return
	}
	c := &domain.EventCategory{
		Kind: domain.EventKind(req.Kind), Name: req.Name,
		Description: req.Description, Status: "ON",
	}
	if err := h.catalog.UpsertCategory(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": c.ID})
}

type createCinemaRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
}

func (h *Handlers) AdminCreateCinema(w http.ResponseWriter, r *http.Request) {
	var req createCinemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "name required"))
		return
	}
	c := &domain.Cinema{Name: req.Name, Address: req.Address, City: req.City}
	if err := h.catalog.CreateCinema(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": c.ID})
}

type createHallRequest struct {
	CinemaID int64  `json:"cinema_id"`
	Name     string `json:"name"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
}

func (h *Handlers) AdminCreateHall(w http.ResponseWriter, r *http.Request) {
	var req createHallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if req.Rows < 1 || req.Rows > 26 || req.Cols < 1 || req.Cols > 99 {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "hall must be 1-26 rows and 1-99 cols"))
		return
	}
	hall := &domain.Hall{CinemaID: req.CinemaID, Name: req.Name, Rows: req.Rows, Cols: req.Cols}
	if err := h.catalog.CreateHall(r.Context(), hall); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": hall.ID})
}

type createShowtimeRequest struct {
	Kind       string    `json:"kind"`
	TargetID   int64     `json:"target_id"`
	HallID     int64     `json:"hall_id"`
	StartTime  time.Time `json:"start_time"`
	PriceCents int       `json:"price_cents"`
}

func (h *Handlers) AdminCreateShowtime(w http.ResponseWriter, r *http.Request) {
	var req createShowtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	kind := domain.EventKind(req.Kind)
	if kind != domain.KindMovie && kind != domain.KindConcert && kind != domain.KindExhibition {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "unknown showtime kind"))
		return
	}
	if req.PriceCents <= 0 {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "price_cents must be positive"))
		return
	}
	st := &domain.Showtime{
		Kind: kind, TargetID: req.TargetID, HallID: req.HallID,
		StartTime: req.StartTime, PriceCents: req.PriceCents,
	}
	if err := h.catalog.CreateShowtime(r.Context(), st); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": st.ID})
}

// AdminOrderAudit returns the lifecycle trail of one order.
func (h *Handlers) AdminOrderAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, domain.ErrNotFound)
		return
	}
	entries, err := h.audit.RecentForOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	type auditResponse struct {
		Kind       string    `json:"kind"`
		UserID     int64     `json:"user_id,omitempty"`
		ShowtimeID int64     `json:"showtime_id,omitempty"`
		HoldToken  string    `json:"hold_token,omitempty"`
		SeatIDs    []int64   `json:"seat_ids,omitempty"`
		At         time.Time `json:"at"`
	}
	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{
			Kind: e.Kind, UserID: e.UserID, ShowtimeID: e.ShowtimeID,
			HoldToken: e.HoldToken, SeatIDs: e.SeatIDs, At: e.At,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
