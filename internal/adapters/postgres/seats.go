package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/showseat/boxoffice/internal/domain"
)

func (r *Repository) GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	var st domain.Showtime
	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, target_id, hall_id, start_time, price_cents
		FROM showtimes WHERE id = $1
	`, id).Scan(&st.ID, &st.Kind, &st.TargetID, &st.HallID, &st.StartTime, &st.PriceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SeatIDsForHall returns the ids of every seat in the hall, used to
// validate hold requests before any locking happens.
func (r *Repository) SeatIDsForHall(ctx context.Context, hallID int64) (map[int64]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM seats WHERE hall_id = $1`, hallID)
	if err != nil {
		return nil, err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// ListSeatViews returns every seat of the showtime's hall with its
// derived state. viewerID distinguishes HELD_BY_ME from HELD; pass 0
// for an anonymous read. Lapsed holds are treated as dead here even if
// the sweeper has not flipped them yet, so reads never show a stale
// HELD beyond the poll interval.
func (r *Repository) ListSeatViews(ctx context.Context, showtimeID, hallID, viewerID int64, now time.Time) ([]domain.SeatView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, seat_row, seat_col, label FROM seats
		WHERE hall_id = $1 ORDER BY seat_row, seat_col
	`, hallID)
	if err != nil {
		return nil, err
	}
	var views []domain.SeatView
	for rows.Next() {
		var v domain.SeatView
		if err := rows.Scan(&v.SeatID, &v.Row, &v.Col, &v.Label); err != nil {
			rows.Close()
			return nil, err
		}
		v.State = domain.SeatAvailable
		views = append(views, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	soldRows, err := r.pool.Query(ctx, `
		SELECT os.seat_id FROM order_seats os
		JOIN orders o ON o.id = os.order_id
		WHERE os.showtime_id = $1 AND o.status = 'PAID'
	`, showtimeID)
	if err != nil {
		return nil, err
	}
	soldIDs, err := collectIDs(soldRows)
	if err != nil {
		return nil, err
	}
	sold := make(map[int64]struct{}, len(soldIDs))
	for _, id := range soldIDs {
		sold[id] = struct{}{}
	}

	heldRows, err := r.pool.Query(ctx, `
		SELECT hs.seat_id, h.user_id FROM hold_seats hs
		JOIN holds h ON h.token = hs.hold_token
		WHERE hs.showtime_id = $1 AND hs.status = 'ACTIVE' AND hs.expires_at > $2
	`, showtimeID, now)
	if err != nil {
		return nil, err
	}
	held := map[int64]int64{}
	for heldRows.Next() {
		var seatID, userID int64
		if err := heldRows.Scan(&seatID, &userID); err != nil {
			heldRows.Close()
			return nil, err
		}
		held[seatID] = userID
	}
	heldRows.Close()
	if err := heldRows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		id := views[i].SeatID
		if _, ok := sold[id]; ok {
			views[i].State = domain.SeatSold
			continue
		}
		if owner, ok := held[id]; ok {
			if viewerID != 0 && owner == viewerID {
				views[i].State = domain.SeatHeldByMe
			} else {
				views[i].State = domain.SeatHeld
			}
		}
	}
	return views, nil
}
