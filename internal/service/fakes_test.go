package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/showseat/boxoffice/internal/domain"
)

// memStore is an in-memory stand-in for the postgres repository with
// the same atomicity contract, used to exercise the services without a
// database.
type memStore struct {
	mu         sync.Mutex
	showtimes  map[int64]*domain.Showtime
	seats      map[int64]domain.Seat // seat id -> seat
	holds      map[string]*domain.Hold
	orders     map[string]*domain.Order
	orderSeats map[int64]string // seat id -> order id (reserved or sold)
}

func newMemStore() *memStore {
	return &memStore{
		showtimes:  map[int64]*domain.Showtime{},
		seats:      map[int64]domain.Seat{},
		holds:      map[string]*domain.Hold{},
		orders:     map[string]*domain.Order{},
		orderSeats: map[int64]string{},
	}
}

// addShowtime seeds a showtime with a rows x cols hall.
func (m *memStore) addShowtime(id int64, rows, cols, priceCents int) {
	m.showtimes[id] = &domain.Showtime{
		ID: id, Kind: domain.KindMovie, TargetID: 1, HallID: id,
		StartTime: time.Now().Add(24 * time.Hour), PriceCents: priceCents,
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			seatID := id*1000 + int64(r*cols+c)
			m.seats[seatID] = domain.Seat{
				ID: seatID, HallID: id, Row: r, Col: c, Label: domain.SeatLabel(r, c),
			}
		}
	}
}

func (m *memStore) seatID(showtimeID int64, n int) int64 {
	return showtimeID*1000 + int64(n)
}

func (m *memStore) GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.showtimes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *memStore) SeatIDsForHall(ctx context.Context, hallID int64) (map[int64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]struct{}{}
	for id, s := range m.seats {
		if s.HallID == hallID {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *memStore) ListSeatViews(ctx context.Context, showtimeID, hallID, viewerID int64, now time.Time) ([]domain.SeatView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sold := map[int64]struct{}{}
	for seatID, orderID := range m.orderSeats {
		if o := m.orders[orderID]; o != nil && o.Status == domain.OrderPaid {
			sold[seatID] = struct{}{}
		}
	}
	held := map[int64]int64{}
	for _, h := range m.holds {
		if h.ShowtimeID == showtimeID && h.Live(now) {
			for _, seatID := range h.SeatIDs {
				held[seatID] = h.UserID
			}
		}
	}

	var views []domain.SeatView
	for id, s := range m.seats {
		if s.HallID != hallID {
			continue
		}
		v := domain.SeatView{SeatID: id, Row: s.Row, Col: s.Col, Label: s.Label, State: domain.SeatAvailable}
		if _, ok := sold[id]; ok {
			v.State = domain.SeatSold
		} else if owner, ok := held[id]; ok {
			if viewerID != 0 && owner == viewerID {
				v.State = domain.SeatHeldByMe
			} else {
				v.State = domain.SeatHeld
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func (m *memStore) CreateHold(ctx context.Context, hold domain.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, seatID := range hold.SeatIDs {
		if _, taken := m.orderSeats[seatID]; taken {
			return domain.ErrConflict
		}
		for _, h := range m.holds {
			if h.ShowtimeID != hold.ShowtimeID || !h.Live(now) {
				continue
			}
			for _, held := range h.SeatIDs {
				if held == seatID {
					return domain.ErrConflict
				}
			}
		}
	}
	cp := hold
	m.holds[hold.Token] = &cp
	return nil
}

func (m *memStore) GetHold(ctx context.Context, token string) (*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *memStore) ReleaseHold(ctx context.Context, token string, userID int64) (*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[token]
	if !ok || h.UserID != userID || h.Status != domain.HoldActive {
		return nil, domain.ErrNotFound
	}
	h.Status = domain.HoldReleased
	cp := *h
	return &cp, nil
}

func (m *memStore) expireHold(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.holds[token]; ok {
		h.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}
}

func (m *memStore) CreateOrderFromHold(ctx context.Context, token string, userID int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[token]
	if !ok || h.UserID != userID || h.Status == domain.HoldConsumed || h.Status == domain.HoldReleased {
		return nil, domain.ErrNotFound
	}
	if !h.Live(time.Now().UTC()) {
		return nil, domain.ErrExpired
	}
	h.Status = domain.HoldConsumed

	st := m.showtimes[h.ShowtimeID]
	order := domain.NewOrderFromHold(*h, st.PriceCents)
	cp := order
	m.orders[order.ID] = &cp
	for _, seatID := range order.SeatIDs {
		m.orderSeats[seatID] = order.ID
	}
	return &order, nil
}

func (m *memStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) MarkOrderPaid(ctx context.Context, orderID string, userID int64, ticketCode string) (*domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
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

func (m *memStore) RevertOrderPayment(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok && o.Status == domain.OrderPaid {
		o.Status = domain.OrderCreated
		o.TicketCode = ""
	}
	return nil
}

func (m *memStore) CancelOrder(ctx context.Context, orderID string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return domain.ErrNotFound
	}
	switch o.Status {
	case domain.OrderPaid:
		return domain.ErrInvalidState
	case domain.OrderCreated:
		for _, seatID := range o.SeatIDs {
			delete(m.orderSeats, seatID)
		}
		o.Status = domain.OrderCanceled
	}
	return nil
}

func (m *memStore) HydrateOrder(ctx context.Context, o *domain.Order) (*domain.OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &domain.OrderDetail{
		Order:      *o,
		EventTitle: "Test Feature",
		HallName:   "Hall 1",
		CinemaName: "Central",
	}
	for _, seatID := range o.SeatIDs {
		d.SeatLabels = append(d.SeatLabels, m.seats[seatID].Label)
	}
	if st := m.showtimes[o.ShowtimeID]; st != nil {
		d.StartTime = st.StartTime
	}
	return d, nil
}

func (m *memStore) ListOrderDetails(ctx context.Context, userID int64) ([]domain.OrderDetail, error) {
	m.mu.Lock()
	var orders []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			orders = append(orders, &cp)
		}
	}
	m.mu.Unlock()

	var details []domain.OrderDetail
	for _, o := range orders {
		d, err := m.HydrateOrder(context.Background(), o)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

// memLocker mimics the redis SetNX seat locks.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]string
}

func newMemLocker() *memLocker {
	return &memLocker{locks: map[string]string{}}
}

func lockKey(showtimeID, seatID int64) string {
	return fmt.Sprintf("%d:%d", showtimeID, seatID)
}

func (l *memLocker) AcquireSeat(ctx context.Context, showtimeID, seatID int64, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := lockKey(showtimeID, seatID)
	if _, held := l.locks[key]; held {
		return false, nil
	}
	l.locks[key] = token
	return true, nil
}

func (l *memLocker) ReleaseSeat(ctx context.Context, showtimeID, seatID int64, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := lockKey(showtimeID, seatID)
	if l.locks[key] == token {
		delete(l.locks, key)
	}
	return nil
}

func (l *memLocker) InvalidateSeatMap(ctx context.Context, showtimeID int64) error {
	return nil
}

func (l *memLocker) holds(showtimeID, seatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.locks[lockKey(showtimeID, seatID)]
	return ok
}

// memSeatCache is an in-memory seat-map cache. It never expires
// entries; tests invalidate explicitly.
type memSeatCache struct {
	mu   sync.Mutex
	maps map[int64][]domain.SeatView
	sets int
}

func newMemSeatCache() *memSeatCache {
	return &memSeatCache{maps: map[int64][]domain.SeatView{}}
}

func (c *memSeatCache) GetSeatMap(ctx context.Context, showtimeID int64) ([]domain.SeatView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	views, ok := c.maps[showtimeID]
	if !ok {
		return nil, nil
	}
	return append([]domain.SeatView(nil), views...), nil
}

func (c *memSeatCache) SetSeatMap(ctx context.Context, showtimeID int64, views []domain.SeatView, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maps[showtimeID] = append([]domain.SeatView(nil), views...)
	c.sets++
	return nil
}

func (c *memSeatCache) invalidate(showtimeID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.maps, showtimeID)
}

// recordingAuditor captures audit entries for assertions.
type recordingAuditor struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *recordingAuditor) Record(ctx context.Context, entry domain.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAuditor) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.entries {
		out = append(out, e.Kind)
	}
	return out
}
