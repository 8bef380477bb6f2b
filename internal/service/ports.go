package service

import (
	"context"
	"time"

	"github.com/showseat/boxoffice/internal/domain"
)

// The postgres repository satisfies all three store interfaces; tests
// substitute in-memory fakes.

type SeatStore interface {
	GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error)
	SeatIDsForHall(ctx context.Context, hallID int64) (map[int64]struct{}, error)
	ListSeatViews(ctx context.Context, showtimeID, hallID, viewerID int64, now time.Time) ([]domain.SeatView, error)
}

type HoldStore interface {
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, token string) (*domain.Hold, error)
	ReleaseHold(ctx context.Context, token string, userID int64) (*domain.Hold, error)
}

type OrderStore interface {
	CreateOrderFromHold(ctx context.Context, token string, userID int64) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	MarkOrderPaid(ctx context.Context, orderID string, userID int64, ticketCode string) (*domain.Order, bool, error)
	RevertOrderPayment(ctx context.Context, orderID string) error
	CancelOrder(ctx context.Context, orderID string, userID int64) error
	HydrateOrder(ctx context.Context, o *domain.Order) (*domain.OrderDetail, error)
	ListOrderDetails(ctx context.Context, userID int64) ([]domain.OrderDetail, error)
}

// SeatLocker is the redis fast path in front of the database. Release
// is ownership-checked: only the token that acquired the lock may drop
// it, so a late release never evicts a newer holder.
type SeatLocker interface {
	AcquireSeat(ctx context.Context, showtimeID, seatID int64, token string, ttl time.Duration) (bool, error)
	ReleaseSeat(ctx context.Context, showtimeID, seatID int64, token string) error
	InvalidateSeatMap(ctx context.Context, showtimeID int64) error
}

// SeatMapCache serves the anonymous seat grid between state
// transitions; a miss returns a nil slice.
type SeatMapCache interface {
	GetSeatMap(ctx context.Context, showtimeID int64) ([]domain.SeatView, error)
	SetSeatMap(ctx context.Context, showtimeID int64, views []domain.SeatView, ttl time.Duration) error
}

// Auditor records lifecycle transitions; implementations are best
// effort and must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// NopAuditor is used where no audit store is configured.
type NopAuditor struct{}

func (NopAuditor) Record(ctx context.Context, entry domain.AuditEntry) {}
