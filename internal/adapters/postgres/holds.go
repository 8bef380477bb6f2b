package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/showseat/boxoffice/internal/domain"
)

// CreateHold atomically reserves the hold's seats. The partial unique
// index on live hold_seats makes the database the arbiter between
// racing hold attempts: exactly one inserter wins, the rest observe
// RowsAffected == 0 and get ErrConflict.
func (r *Repository) CreateHold(ctx context.Context, hold domain.Hold) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := expireDeadHolds(ctx, tx, hold.ShowtimeID, time.Now().UTC()); err != nil {
			return err
		}

		// Seats reserved by a CREATED or PAID order are not holdable.
		rows, err := tx.Query(ctx, `
			SELECT seat_id FROM order_seats
			WHERE showtime_id = $1 AND seat_id = ANY($2)
		`, hold.ShowtimeID, hold.SeatIDs)
		if err != nil {
			return err
		}
		taken, err := collectIDs(rows)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return domain.ErrConflict
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO holds (token, user_id, showtime_id, status, expires_at, created_at)
			VALUES ($1, $2, $3, 'ACTIVE', $4, $5)
		`, hold.Token, hold.UserID, hold.ShowtimeID, hold.ExpiresAt, hold.CreatedAt)
		if err != nil {
			return err
		}

		for _, seatID := range hold.SeatIDs {
			result, err := tx.Exec(ctx, `
				INSERT INTO hold_seats (hold_token, showtime_id, seat_id, status, expires_at)
				VALUES ($1, $2, $3, 'ACTIVE', $4)
				ON CONFLICT (showtime_id, seat_id) WHERE status = 'ACTIVE' DO NOTHING
			`, hold.Token, hold.ShowtimeID, seatID, hold.ExpiresAt)
			if err != nil {
				return err
			}
			if result.RowsAffected() == 0 {
				return domain.ErrConflict
			}
		}
		return nil
	})
}

// GetHold loads a hold with its seat ids regardless of status.
func (r *Repository) GetHold(ctx context.Context, token string) (*domain.Hold, error) {
	var h domain.Hold
	err := r.pool.QueryRow(ctx, `
		SELECT token, user_id, showtime_id, status, expires_at, created_at
		FROM holds WHERE token = $1
	`, token).Scan(&h.Token, &h.UserID, &h.ShowtimeID, &h.Status, &h.ExpiresAt, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT seat_id FROM hold_seats WHERE hold_token = $1 ORDER BY seat_id
	`, token)
	if err != nil {
		return nil, err
	}
	h.SeatIDs, err = collectIDs(rows)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ReleaseHold frees a live hold owned by the user and returns it so the
// caller can drop the matching cache locks.
func (r *Repository) ReleaseHold(ctx context.Context, token string, userID int64) (*domain.Hold, error) {
	var released *domain.Hold
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var h domain.Hold
		err := tx.QueryRow(ctx, `
			UPDATE holds SET status = 'RELEASED'
			WHERE token = $1 AND user_id = $2 AND status = 'ACTIVE'
			RETURNING token, user_id, showtime_id, expires_at, created_at
		`, token, userID).Scan(&h.Token, &h.UserID, &h.ShowtimeID, &h.ExpiresAt, &h.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		h.Status = domain.HoldReleased

		rows, err := tx.Query(ctx, `
			UPDATE hold_seats SET status = 'RELEASED'
			WHERE hold_token = $1 AND status = 'ACTIVE'
			RETURNING seat_id
		`, token)
		if err != nil {
			return err
		}
		h.SeatIDs, err = collectIDs(rows)
		if err != nil {
			return err
		}
		released = &h
		return nil
	})
	return released, err
}

// SweepExpiredHolds flips all lapsed ACTIVE holds to EXPIRED and
// returns them for lock cleanup and event publishing.
func (r *Repository) SweepExpiredHolds(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	var expired []domain.Hold
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE holds SET status = 'EXPIRED'
			WHERE status = 'ACTIVE' AND expires_at <= $1
			RETURNING token, user_id, showtime_id, expires_at, created_at
		`, now)
		if err != nil {
			return err
		}
		byToken := map[string]*domain.Hold{}
		var order []string
		for rows.Next() {
			var h domain.Hold
			if err := rows.Scan(&h.Token, &h.UserID, &h.ShowtimeID, &h.ExpiresAt, &h.CreatedAt); err != nil {
				rows.Close()
				return err
			}
			h.Status = domain.HoldExpired
			byToken[h.Token] = &h
			order = append(order, h.Token)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(byToken) == 0 {
			return nil
		}

		seatRows, err := tx.Query(ctx, `
			UPDATE hold_seats SET status = 'EXPIRED'
			WHERE status = 'ACTIVE' AND expires_at <= $1
			RETURNING hold_token, seat_id
		`, now)
		if err != nil {
			return err
		}
		for seatRows.Next() {
			var token string
			var seatID int64
			if err := seatRows.Scan(&token, &seatID); err != nil {
				seatRows.Close()
				return err
			}
			if h, ok := byToken[token]; ok {
				h.SeatIDs = append(h.SeatIDs, seatID)
			}
		}
		seatRows.Close()
		if err := seatRows.Err(); err != nil {
			return err
		}

		for _, token := range order {
			expired = append(expired, *byToken[token])
		}
		return nil
	})
	return expired, err
}

// expireDeadHolds is the lazy variant of the sweep, scoped to one
// showtime so read-modify paths never trip over lapsed ACTIVE rows.
func expireDeadHolds(ctx context.Context, tx pgx.Tx, showtimeID int64, now time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE hold_seats SET status = 'EXPIRED'
		WHERE showtime_id = $1 AND status = 'ACTIVE' AND expires_at <= $2
	`, showtimeID, now)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE holds SET status = 'EXPIRED'
		WHERE showtime_id = $1 AND status = 'ACTIVE' AND expires_at <= $2
	`, showtimeID, now)
	return err
}

func collectIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
