package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/observability"
	"github.com/showseat/boxoffice/internal/service"
)

// UserStore is the slice of the repository the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// AuditReader exposes the audit trail to the admin surface.
type AuditReader interface {
	RecentForOrder(ctx context.Context, orderID string) ([]domain.AuditEntry, error)
}

type Handlers struct {
	holds   *service.HoldService
	orders  *service.OrderService
	seats   *service.SeatService
	users   UserStore
	catalog CatalogStore
	audit   AuditReader
	secret  string
	logger  observability.Logger
}

func NewHandlers(holds *service.HoldService, orders *service.OrderService, seats *service.SeatService, users UserStore, catalog CatalogStore, audit AuditReader, secret string, logger observability.Logger) *Handlers {
	return &Handlers{
		holds:   holds,
		orders:  orders,
		seats:   seats,
		users:   users,
		catalog: catalog,
		audit:   audit,
		secret:  secret,
		logger:  logger,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type holdRequest struct {
	SeatIDs []int64 `json:"seat_ids"`
}

type holdResponse struct {
	HoldToken string    `json:"hold_token"`
	ExpiresAt time.Time `json:"expires_at"`
	SeatIDs   []int64   `json:"seat_ids"`
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	showtimeID, err := pathID(r, "showtimeID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	hold, err := h.holds.CreateHold(r.Context(), claims.UserID, showtimeID, req.SeatIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, holdResponse{
		HoldToken: hold.Token,
		ExpiresAt: hold.ExpiresAt,
		SeatIDs:   hold.SeatIDs,
	})
}

func (h *Handlers) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	token := chi.URLParam(r, "token")

	if err := h.holds.ReleaseHold(r.Context(), claims.UserID, token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *Handlers) ListSeats(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := pathID(r, "showtimeID")
	if err != nil {
		writeError(w, err)
		return
	}

	// Anonymous viewers see HELD for every live hold, including any of
	// their own from a previous session.
	var viewerID int64
	if claims, ok := claimsFrom(r.Context()); ok {
		viewerID = claims.UserID
	}

	views, err := h.seats.ListSeats(r.Context(), showtimeID, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type checkoutRequest struct {
	HoldToken string `json:"hold_token"`
}

type orderResponse struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	TotalCents int       `json:"total_cents"`
	TicketCode string    `json:"ticket_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Field name kept as movie_title for existing clients even though
	// concerts and exhibitions flow through it too.
	EventTitle string   `json:"movie_title"`
	StartTime  string   `json:"start_time"`
	HallName   string   `json:"hall_name"`
	CinemaName string   `json:"cinema_name"`
	Seats      []string `json:"seats"`
}

func toOrderResponse(d *domain.OrderDetail) orderResponse {
	return orderResponse{
		ID:         d.ID,
		Status:     string(d.Status),
		TotalCents: d.TotalCents,
		TicketCode: d.TicketCode,
		CreatedAt:  d.CreatedAt,
		EventTitle: d.EventTitle,
		StartTime:  d.StartTime.Format(time.RFC3339),
		HallName:   d.HallName,
		CinemaName: d.CinemaName,
		Seats:      d.SeatLabels,
	}
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HoldToken == "" {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	detail, err := h.orders.Checkout(r.Context(), claims.UserID, req.HoldToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(detail))
}

func (h *Handlers) PayOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	orderID := chi.URLParam(r, "orderID")

	detail, err := h.orders.Pay(r.Context(), claims.UserID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(detail))
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	orderID := chi.URLParam(r, "orderID")

	if err := h.orders.Cancel(r.Context(), claims.UserID, orderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	details, err := h.orders.ListOrders(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(details))
	for i := range details {
		out = append(out, toOrderResponse(&details[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}
