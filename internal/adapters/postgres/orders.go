package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/showseat/boxoffice/internal/domain"
)

// CreateOrderFromHold consumes a live hold and creates a CREATED order
// over its seats, all in one transaction. The guarded UPDATE on the
// hold row is the double-sale guard: once it commits, a concurrent
// expiry sweep can no longer touch this hold, and a second checkout of
// the same token sees zero rows.
func (r *Repository) CreateOrderFromHold(ctx context.Context, token string, userID int64) (*domain.Order, error) {
	var created *domain.Order
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var h domain.Hold
		err := tx.QueryRow(ctx, `
			SELECT token, user_id, showtime_id, status, expires_at, created_at
			FROM holds WHERE token = $1
		`, token).Scan(&h.Token, &h.UserID, &h.ShowtimeID, &h.Status, &h.ExpiresAt, &h.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if h.UserID != userID || h.Status == domain.HoldConsumed || h.Status == domain.HoldReleased {
			return domain.ErrNotFound
		}

		now := time.Now().UTC()
		result, err := tx.Exec(ctx, `
			UPDATE holds SET status = 'CONSUMED'
			WHERE token = $1 AND status = 'ACTIVE' AND expires_at > $2
		`, token, now)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return domain.ErrExpired
		}

		seatRows, err := tx.Query(ctx, `
			UPDATE hold_seats SET status = 'CONSUMED'
			WHERE hold_token = $1 AND status = 'ACTIVE'
			RETURNING seat_id
		`, token)
		if err != nil {
			return err
		}
		h.SeatIDs, err = collectIDs(seatRows)
		if err != nil {
			return err
		}
		if len(h.SeatIDs) == 0 {
			return domain.ErrExpired
		}

		var priceCents int
		err = tx.QueryRow(ctx, `
			SELECT price_cents FROM showtimes WHERE id = $1
		`, h.ShowtimeID).Scan(&priceCents)
		if err != nil {
			return err
		}

		order := domain.NewOrderFromHold(h, priceCents)
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, user_id, showtime_id, status, total_cents, ticket_code, created_at)
			VALUES ($1, $2, $3, 'CREATED', $4, '', $5)
		`, order.ID, order.UserID, order.ShowtimeID, order.TotalCents, order.CreatedAt)
		if err != nil {
			return err
		}
		for _, seatID := range order.SeatIDs {
			_, err = tx.Exec(ctx, `
				INSERT INTO order_seats (order_id, showtime_id, seat_id)
				VALUES ($1, $2, $3)
			`, order.ID, order.ShowtimeID, seatID)
			if err != nil {
				return err
			}
		}

		if err := insertOutbox(ctx, tx, "order", order.ID, "order.created", map[string]interface{}{
			"order_id":    order.ID,
			"showtime_id": order.ShowtimeID,
			"total_cents": order.TotalCents,
		}); err != nil {
			return err
		}
		created = &order
		return nil
	})
	return created, err
}

func (r *Repository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, showtime_id, status, total_cents, ticket_code, created_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&o.ID, &o.UserID, &o.ShowtimeID, &o.Status, &o.TotalCents, &o.TicketCode, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT seat_id FROM order_seats WHERE order_id = $1 ORDER BY seat_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	o.SeatIDs, err = collectIDs(rows)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkOrderPaid transitions CREATED -> PAID with the given ticket code
// and reports whether this call performed the transition. Paying an
// already-PAID order returns it unchanged with transitioned false; the
// guarded UPDATE makes retries safe, duplicate calls never issue a
// second code.
func (r *Repository) MarkOrderPaid(ctx context.Context, orderID string, userID int64, ticketCode string) (*domain.Order, bool, error) {
	var transitioned bool
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var status domain.OrderStatus
		var owner int64
		err := tx.QueryRow(ctx, `
			SELECT user_id, status FROM orders WHERE id = $1
		`, orderID).Scan(&owner, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != userID {
			return domain.ErrNotFound
		}
		if status == domain.OrderPaid {
			return nil
		}
		if status != domain.OrderCreated {
			return domain.ErrInvalidState
		}

		result, err := tx.Exec(ctx, `
			UPDATE orders SET status = 'PAID', ticket_code = $2
			WHERE id = $1 AND status = 'CREATED'
		`, orderID, ticketCode)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			// Raced with another pay call; the re-read below settles it.
			err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
			if err != nil {
				return err
			}
			if status != domain.OrderPaid {
				return domain.ErrInvalidState
			}
			return nil
		}

		transitioned = true
		return insertOutbox(ctx, tx, "order", orderID, "order.paid", map[string]interface{}{
			"order_id": orderID,
		})
	})
	if err != nil {
		return nil, false, err
	}
	order, err := r.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return order, transitioned, nil
}

// RevertOrderPayment rolls a PAID order back to CREATED after a failed
// provider charge, retracting the unpublished order.paid event with it.
// Only the caller that won the MarkOrderPaid claim may invoke this, so
// the guarded UPDATE never reverts someone else's settled payment.
func (r *Repository) RevertOrderPayment(ctx context.Context, orderID string) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE orders SET status = 'CREATED', ticket_code = ''
			WHERE id = $1 AND status = 'PAID'
		`, orderID)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
			DELETE FROM outbox
			WHERE aggregate_id = $1 AND event_type = 'order.paid' AND status = 'NEW'
		`, orderID)
		return err
	})
}

// CancelOrder frees a CREATED order's seats. PAID orders cannot be
// canceled here; already-canceled orders are a no-op.
func (r *Repository) CancelOrder(ctx context.Context, orderID string, userID int64) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var status domain.OrderStatus
		var owner int64
		err := tx.QueryRow(ctx, `
			SELECT user_id, status FROM orders WHERE id = $1
		`, orderID).Scan(&owner, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != userID {
			return domain.ErrNotFound
		}
		if status == domain.OrderPaid {
			return domain.ErrInvalidState
		}
		if status != domain.OrderCreated {
			return nil
		}
		return cancelOrderTx(ctx, tx, orderID)
	})
}

// SweepStaleOrders cancels CREATED orders older than the cutoff,
// releasing their seats. An abandoned checkout otherwise blocks its
// seats forever, since only payment flips them to SOLD.
func (r *Repository) SweepStaleOrders(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	var canceled []domain.Order
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, user_id, showtime_id, total_cents, created_at
			FROM orders WHERE status = 'CREATED' AND created_at <= $1
		`, cutoff)
		if err != nil {
			return err
		}
		var stale []domain.Order
		for rows.Next() {
			var o domain.Order
			if err := rows.Scan(&o.ID, &o.UserID, &o.ShowtimeID, &o.TotalCents, &o.CreatedAt); err != nil {
				rows.Close()
				return err
			}
			o.Status = domain.OrderCanceled
			stale = append(stale, o)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, o := range stale {
			if err := cancelOrderTx(ctx, tx, o.ID); err != nil {
				return err
			}
		}
		canceled = stale
		return nil
	})
	return canceled, err
}

func cancelOrderTx(ctx context.Context, tx pgx.Tx, orderID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM order_seats WHERE order_id = $1`, orderID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE orders SET status = 'CANCELED' WHERE id = $1`, orderID)
	if err != nil {
		return err
	}
	return insertOutbox(ctx, tx, "order", orderID, "order.canceled", map[string]interface{}{
		"order_id": orderID,
	})
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, uuid.New(), aggregateType, aggregateID, eventType, data, uuid.New().String())
	return err
}
