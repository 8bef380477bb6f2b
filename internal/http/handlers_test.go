package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showseat/boxoffice/internal/auth"
	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/observability"
	"github.com/showseat/boxoffice/internal/payment"
	"github.com/showseat/boxoffice/internal/service"
)

const testSecret = "test-secret"

// stubStore backs the services with just enough state for routing and
// status-code tests. The full atomicity contract is covered by the
// service and repository tests.
type stubStore struct {
	mu       sync.Mutex
	showtime domain.Showtime
	seatIDs  []int64
	holds    map[string]*domain.Hold
	taken    map[int64]string
	orders   map[string]*domain.Order
}

func newStubStore() *stubStore {
	return &stubStore{
		showtime: domain.Showtime{ID: 1, Kind: domain.KindMovie, TargetID: 1, HallID: 1, StartTime: time.Now().Add(24 * time.Hour), PriceCents: 4500},
		seatIDs:  []int64{101, 102, 103, 104},
		holds:    map[string]*domain.Hold{},
		taken:    map[int64]string{},
		orders:   map[string]*domain.Order{},
	}
}

func (s *stubStore) GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	if id != s.showtime.ID {
		return nil, domain.ErrNotFound
	}
	st := s.showtime
	return &st, nil
}

func (s *stubStore) SeatIDsForHall(ctx context.Context, hallID int64) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{}, len(s.seatIDs))
	for _, id := range s.seatIDs {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *stubStore) ListSeatViews(ctx context.Context, showtimeID, hallID, viewerID int64, now time.Time) ([]domain.SeatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]domain.SeatView, 0, len(s.seatIDs))
	for i, id := range s.seatIDs {
		state := domain.SeatAvailable
		if _, held := s.taken[id]; held {
			state = domain.SeatHeld
		}
		views = append(views, domain.SeatView{SeatID: id, Row: 0, Col: i, Label: fmt.Sprintf("A%d", i+1), State: state})
	}
	return views, nil
}

func (s *stubStore) CreateHold(ctx context.Context, hold domain.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range hold.SeatIDs {
		if _, held := s.taken[id]; held {
			return domain.ErrConflict
		}
	}
	for _, id := range hold.SeatIDs {
		s.taken[id] = hold.Token
	}
	h := hold
	s.holds[hold.Token] = &h
	return nil
}

func (s *stubStore) GetHold(ctx context.Context, token string) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *stubStore) ReleaseHold(ctx context.Context, token string, userID int64) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok || h.UserID != userID || h.Status != domain.HoldActive {
		return nil, domain.ErrNotFound
	}
	h.Status = domain.HoldReleased
	for _, id := range h.SeatIDs {
		delete(s.taken, id)
	}
	cp := *h
	return &cp, nil
}

func (s *stubStore) CreateOrderFromHold(ctx context.Context, token string, userID int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok || h.UserID != userID || h.Status != domain.HoldActive {
		return nil, domain.ErrNotFound
	}
	if !time.Now().Before(h.ExpiresAt) {
		return nil, domain.ErrExpired
	}
	h.Status = domain.HoldConsumed
	o := domain.Order{
		ID:         domain.NewToken(),
		UserID:     userID,
		ShowtimeID: h.ShowtimeID,
		Status:     domain.OrderCreated,
		TotalCents: s.showtime.PriceCents * len(h.SeatIDs),
		SeatIDs:    append([]int64(nil), h.SeatIDs...),
		CreatedAt:  time.Now(),
	}
	s.orders[o.ID] = &o
	cp := o
	return &cp, nil
}

func (s *stubStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubStore) MarkOrderPaid(ctx context.Context, orderID string, userID int64, ticketCode string) (*domain.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, false, domain.ErrNotFound
	}
	var transitioned bool
	switch o.Status {
	case domain.OrderPaid:
	case domain.OrderCreated:
		o.Status = domain.OrderPaid
		o.TicketCode = ticketCode
		transitioned = true
	default:
		return nil, false, domain.ErrInvalidState
	}
	cp := *o
	return &cp, transitioned, nil
}

func (s *stubStore) RevertOrderPayment(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok && o.Status == domain.OrderPaid {
		o.Status = domain.OrderCreated
		o.TicketCode = ""
	}
	return nil
}

func (s *stubStore) CancelOrder(ctx context.Context, orderID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return domain.ErrNotFound
	}
	if o.Status == domain.OrderPaid {
		return domain.ErrInvalidState
	}
	o.Status = domain.OrderCanceled
	for _, id := range o.SeatIDs {
		delete(s.taken, id)
	}
	return nil
}

func (s *stubStore) HydrateOrder(ctx context.Context, o *domain.Order) (*domain.OrderDetail, error) {
	labels := make([]string, len(o.SeatIDs))
	for i := range o.SeatIDs {
		labels[i] = fmt.Sprintf("A%d", i+1)
	}
	return &domain.OrderDetail{
		Order:      *o,
		EventTitle: "Test Feature",
		StartTime:  s.showtime.StartTime,
		HallName:   "Hall 1",
		CinemaName: "Downtown",
		SeatLabels: labels,
	}, nil
}

func (s *stubStore) ListOrderDetails(ctx context.Context, userID int64) ([]domain.OrderDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OrderDetail
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		d, _ := s.HydrateOrder(ctx, o)
		out = append(out, *d)
	}
	return out, nil
}

type nopLocker struct{}

func (nopLocker) AcquireSeat(ctx context.Context, showtimeID, seatID int64, token string, ttl time.Duration) (bool, error) {
	return true, nil
}
func (nopLocker) ReleaseSeat(ctx context.Context, showtimeID, seatID int64, token string) error {
	return nil
}
func (nopLocker) InvalidateSeatMap(ctx context.Context, showtimeID int64) error { return nil }

type stubUsers struct {
	mu    sync.Mutex
	next  int64
	byID  map[int64]*domain.User
	byEml map[string]*domain.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{byID: map[int64]*domain.User{}, byEml: map[string]*domain.User{}}
}

func (s *stubUsers) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEml[u.Email]; ok {
		return domain.ErrConflict
	}
	s.next++
	u.ID = s.next
	cp := *u
	s.byID[u.ID] = &cp
	s.byEml[u.Email] = &cp
	return nil
}

func (s *stubUsers) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEml[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUsers) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type testEnv struct {
	store  *stubStore
	users  *stubUsers
	server http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newStubStore()
	users := newStubUsers()
	logger := observability.NewLogger()

	holdSvc := service.NewHoldService(store, store, nopLocker{}, service.NopAuditor{}, logger, 15*time.Minute)
	orderSvc := service.NewOrderService(store, nopLocker{}, service.NopAuditor{}, payment.MockProvider{}, logger)
	seatSvc := service.NewSeatService(store, nil)

	handlers := NewHandlers(holdSvc, orderSvc, seatSvc, users, nil, nil, testSecret, logger)
	router := NewRouter(RouterDeps{
		Handlers:  handlers,
		JWTSecret: testSecret,
		Logger:    logger,
	})
	return &testEnv{store: store, users: users, server: router}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerUser(t *testing.T, email string, admin bool) string {
	t.Helper()
	hash, err := auth.HashPassword("password1")
	require.NoError(t, err)
	u := &domain.User{Email: email, Name: "Test", HashedPassword: hash, IsAdmin: admin}
	require.NoError(t, e.users.CreateUser(context.Background(), u))
	token, err := auth.NewToken(testSecret, u)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "name": "Alice", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var tok tokenResponse
	decode(t, rec, &tok)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &tok)

	rec = env.do(t, http.MethodGet, "/auth/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userResponse
	decode(t, rec, &me)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.False(t, me.IsAdmin)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "bob@example.com", false)

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "bob@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.NotEmpty(t, body["detail"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "carol@example.com", false)

	rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "carol@example.com", "name": "Carol", "password": "secret1",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "email already registered", body["detail"])
}

func TestHoldEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "dave@example.com", false)

	// Anonymous holds are rejected before the handler runs.
	rec := env.do(t, http.MethodPost, "/showtimes/1/hold", "", map[string][]int64{"seat_ids": {101}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/showtimes/1/hold", token, map[string][]int64{"seat_ids": {101, 102}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var hold holdResponse
	decode(t, rec, &hold)
	assert.Len(t, hold.HoldToken, 32)
	assert.Equal(t, []int64{101, 102}, hold.SeatIDs)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), hold.ExpiresAt, time.Minute)

	// Seat already held by the first hold.
	other := env.registerUser(t, "erin@example.com", false)
	rec = env.do(t, http.MethodPost, "/showtimes/1/hold", other, map[string][]int64{"seat_ids": {102, 103}})
	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Contains(t, body["detail"], "no longer available")

	rec = env.do(t, http.MethodGet, "/showtimes/1/seats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var seats []domain.SeatView
	decode(t, rec, &seats)
	require.Len(t, seats, 4)
	assert.Equal(t, domain.SeatHeld, seats[0].State)
	assert.Equal(t, domain.SeatAvailable, seats[2].State)

	rec = env.do(t, http.MethodPost, "/holds/"+hold.HoldToken+"/release", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/showtimes/1/hold", other, map[string][]int64{"seat_ids": {102, 103}})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestHold_UnknownShowtime(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "frank@example.com", false)

	rec := env.do(t, http.MethodPost, "/showtimes/99/hold", token, map[string][]int64{"seat_ids": {101}})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHold_EmptySeats(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "grace@example.com", false)

	rec := env.do(t, http.MethodPost, "/showtimes/1/hold", token, map[string][]int64{"seat_ids": {}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutAndPay(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "heidi@example.com", false)

	rec := env.do(t, http.MethodPost, "/showtimes/1/hold", token, map[string][]int64{"seat_ids": {101, 102}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var hold holdResponse
	decode(t, rec, &hold)

	rec = env.do(t, http.MethodPost, "/orders/checkout", token, map[string]string{"hold_token": hold.HoldToken})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	decode(t, rec, &order)
	assert.Equal(t, "CREATED", order.Status)
	assert.Equal(t, 9000, order.TotalCents)
	assert.Empty(t, order.TicketCode)

	rec = env.do(t, http.MethodPost, "/orders/"+order.ID+"/mock_pay", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paid orderResponse
	decode(t, rec, &paid)
	assert.Equal(t, "PAID", paid.Status)
	assert.Regexp(t, `^TKT-[0-9A-F]{10}$`, paid.TicketCode)

	// Consumed token cannot be checked out again.
	rec = env.do(t, http.MethodPost, "/orders/checkout", token, map[string]string{"hold_token": hold.HoldToken})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []orderResponse
	decode(t, rec, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, paid.TicketCode, orders[0].TicketCode)
}

func TestCheckout_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "ivan@example.com", false)

	rec := env.do(t, http.MethodPost, "/orders/checkout", token, map[string]string{"hold_token": "deadbeef"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel_PaidOrderRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "judy@example.com", false)

	rec := env.do(t, http.MethodPost, "/showtimes/1/hold", token, map[string][]int64{"seat_ids": {104}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var hold holdResponse
	decode(t, rec, &hold)

	rec = env.do(t, http.MethodPost, "/orders/checkout", token, map[string]string{"hold_token": hold.HoldToken})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	decode(t, rec, &order)

	rec = env.do(t, http.MethodPost, "/orders/"+order.ID+"/mock_pay", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/orders/"+order.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Contains(t, body["detail"], "order state")
}

func TestAdminGuard(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "kim@example.com", false)

	rec := env.do(t, http.MethodPost, "/admin/cinemas", user, map[string]string{"name": "Downtown"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/cinemas", "", map[string]string{"name": "Downtown"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
