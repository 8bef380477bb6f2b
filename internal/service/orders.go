package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/observability"
	"github.com/showseat/boxoffice/internal/payment"
)

// OrderService converts holds into orders and drives the order state
// machine: CREATED -> PAID, CREATED -> CANCELED.
type OrderService struct {
	orders   OrderStore
	locker   SeatLocker
	auditor  Auditor
	provider payment.Provider
	logger   observability.Logger
}

func NewOrderService(orders OrderStore, locker SeatLocker, auditor Auditor, provider payment.Provider, logger observability.Logger) *OrderService {
	return &OrderService{orders: orders, locker: locker, auditor: auditor, provider: provider, logger: logger}
}

// Checkout consumes a live hold into a CREATED order. The consumption
// is atomic in the store, so a concurrent expiry sweep or second
// checkout of the same token loses cleanly.
func (s *OrderService) Checkout(ctx context.Context, userID int64, token string) (*domain.OrderDetail, error) {
	order, err := s.orders.CreateOrderFromHold(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	// The order's seat rows now carry the reservation; the redis locks
	// are redundant and would otherwise linger until their TTL.
	for _, seatID := range order.SeatIDs {
		if err := s.locker.ReleaseSeat(ctx, order.ShowtimeID, seatID, token); err != nil {
			s.logger.WithError(err).WithField("seat_id", seatID).Warn("seat unlock failed")
		}
	}
	if err := s.locker.InvalidateSeatMap(ctx, order.ShowtimeID); err != nil {
		s.logger.WithError(err).Warn("seat map invalidation failed")
	}
	s.auditor.Record(ctx, domain.AuditEntry{
		Kind:       "order.created",
		UserID:     userID,
		ShowtimeID: order.ShowtimeID,
		HoldToken:  token,
		OrderID:    order.ID,
		SeatIDs:    order.SeatIDs,
	})
	return s.orders.HydrateOrder(ctx, order)
}

// Pay settles a CREATED order through the payment provider and flips
// its seats to SOLD. Paying an already-paid order is a no-op returning
// the same ticket code.
//
// The store transition is claimed before the provider is charged: the
// guarded CREATED -> PAID update admits exactly one caller per order
// into Charge, and racing calls observe PAID and return the same
// ticket. A failed charge reverts the claim.
func (s *OrderService) Pay(ctx context.Context, userID int64, orderID string) (*domain.OrderDetail, error) {
	paid, transitioned, err := s.orders.MarkOrderPaid(ctx, orderID, userID, domain.NewTicketCode())
	if err != nil {
		return nil, err
	}

	if transitioned {
		if err := s.provider.Charge(ctx, *paid); err != nil {
			if rerr := s.orders.RevertOrderPayment(ctx, orderID); rerr != nil {
				s.logger.WithError(rerr).WithField("order_id", orderID).Error("payment revert failed")
			}
			return nil, errors.Wrap(err, "payment failed")
		}
		observability.OrdersPaid.Inc()
		if err := s.locker.InvalidateSeatMap(ctx, paid.ShowtimeID); err != nil {
			s.logger.WithError(err).Warn("seat map invalidation failed")
		}
		s.auditor.Record(ctx, domain.AuditEntry{
			Kind:       "order.paid",
			UserID:     userID,
			ShowtimeID: paid.ShowtimeID,
			OrderID:    paid.ID,
		})
	}
	return s.orders.HydrateOrder(ctx, paid)
}

// Cancel voids a CREATED order and frees its seats.
func (s *OrderService) Cancel(ctx context.Context, userID int64, orderID string) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return domain.ErrNotFound
	}

	if err := s.orders.CancelOrder(ctx, orderID, userID); err != nil {
		return err
	}
	if err := s.locker.InvalidateSeatMap(ctx, order.ShowtimeID); err != nil {
		s.logger.WithError(err).Warn("seat map invalidation failed")
	}
	s.auditor.Record(ctx, domain.AuditEntry{
		Kind:       "order.canceled",
		UserID:     userID,
		ShowtimeID: order.ShowtimeID,
		OrderID:    orderID,
	})
	return nil
}

// ListOrders returns the caller's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]domain.OrderDetail, error) {
	return s.orders.ListOrderDetails(ctx, userID)
}
