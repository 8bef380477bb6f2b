package postgres

import (
	"context"

	"github.com/showseat/boxoffice/internal/domain"
)

// HydrateOrder joins the order with the display fields the order views
// need: event title, venue names and sorted seat labels.
func (r *Repository) HydrateOrder(ctx context.Context, o *domain.Order) (*domain.OrderDetail, error) {
	d := &domain.OrderDetail{Order: *o}

	err := r.pool.QueryRow(ctx, `
		SELECT st.start_time, h.name, c.name
		FROM showtimes st
		JOIN halls h ON h.id = st.hall_id
		JOIN cinemas c ON c.id = h.cinema_id
		WHERE st.id = $1
	`, o.ShowtimeID).Scan(&d.StartTime, &d.HallName, &d.CinemaName)
	if err != nil {
		return nil, err
	}

	st, err := r.GetShowtime(ctx, o.ShowtimeID)
	if err != nil {
		return nil, err
	}
	d.EventTitle, err = r.eventTitle(ctx, st)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT s.label FROM order_seats os
		JOIN seats s ON s.id = os.seat_id
		WHERE os.order_id = $1
		ORDER BY s.seat_row, s.seat_col
	`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		d.SeatLabels = append(d.SeatLabels, label)
	}
	return d, rows.Err()
}

// ListOrderDetails returns the user's orders newest first, hydrated.
func (r *Repository) ListOrderDetails(ctx context.Context, userID int64) ([]domain.OrderDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, showtime_id, status, total_cents, ticket_code, created_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ShowtimeID, &o.Status, &o.TotalCents, &o.TicketCode, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	details := make([]domain.OrderDetail, 0, len(orders))
	for i := range orders {
		d, err := r.HydrateOrder(ctx, &orders[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

// eventTitle resolves the showtime's target title across the movie and
// event tables. A dangling target renders as an untitled entry rather
// than failing the whole listing.
func (r *Repository) eventTitle(ctx context.Context, st *domain.Showtime) (string, error) {
	var title string
	var err error
	if st.Kind == domain.KindMovie {
		err = r.pool.QueryRow(ctx, `SELECT title FROM movies WHERE id = $1`, st.TargetID).Scan(&title)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT title FROM events WHERE id = $1`, st.TargetID).Scan(&title)
	}
	if err != nil {
		return "(unknown)", nil
	}
	return title, nil
}
