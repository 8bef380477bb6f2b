package postgres

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/showseat/boxoffice/internal/domain"
)

// ShowtimeListing is a showtime joined with its hall and cinema names
// for listing pages.
type ShowtimeListing struct {
	domain.Showtime
	HallName   string
	CinemaName string
}

func (r *Repository) ListMovies(ctx context.Context, query, category string) ([]domain.Movie, error) {
	sql := `
		SELECT id, title, description, category, duration_min, rating, poster_url, status
		FROM movies WHERE status = 'ON'
	`
	args := []interface{}{}
	if query != "" {
		args = append(args, "%"+query+"%")
		sql += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		sql += fmt.Sprintf(" AND category = $%d", len(args))
	}
	sql += ` ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []domain.Movie
	for rows.Next() {
		var m domain.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Category, &m.DurationMin, &m.Rating, &m.PosterURL, &m.Status); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (r *Repository) GetMovie(ctx context.Context, id int64) (*domain.Movie, error) {
	var m domain.Movie
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, description, category, duration_min, rating, poster_url, status
		FROM movies WHERE id = $1 AND status = 'ON'
	`, id).Scan(&m.ID, &m.Title, &m.Description, &m.Category, &m.DurationMin, &m.Rating, &m.PosterURL, &m.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) CreateMovie(ctx context.Context, m *domain.Movie) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO movies (title, description, category, duration_min, rating, poster_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, m.Title, m.Description, m.Category, m.DurationMin, m.Rating, m.PosterURL, m.Status).Scan(&m.ID)
}

func (r *Repository) ListEvents(ctx context.Context, kind domain.EventKind, query, category string) ([]domain.Event, error) {
	sql := `
		SELECT id, kind, title, description, category, poster_url, venue, price_info, status
		FROM events WHERE kind = $1 AND status = 'ON'
	`
	args := []interface{}{kind}
	if query != "" {
		args = append(args, "%"+query+"%")
		sql += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		sql += fmt.Sprintf(" AND category = $%d", len(args))
	}
	sql += ` ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.Title, &e.Description, &e.Category, &e.PosterURL, &e.Venue, &e.PriceInfo, &e.Status); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) GetEvent(ctx context.Context, kind domain.EventKind, id int64) (*domain.Event, error) {
	var e domain.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, title, description, category, poster_url, venue, price_info, status
		FROM events WHERE id = $1 AND kind = $2
	`, id, kind).Scan(&e.ID, &e.Kind, &e.Title, &e.Description, &e.Category, &e.PosterURL, &e.Venue, &e.PriceInfo, &e.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) CreateEvent(ctx context.Context, e *domain.Event) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO events (kind, title, description, category, poster_url, venue, price_info, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, e.Kind, e.Title, e.Description, e.Category, e.PosterURL, e.Venue, e.PriceInfo, e.Status).Scan(&e.ID)
}

func (r *Repository) ListCategories(ctx context.Context, kind domain.EventKind) ([]domain.EventCategory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, name, description, status
		FROM event_categories WHERE kind = $1 ORDER BY id
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []domain.EventCategory
	for rows.Next() {
		var c domain.EventCategory
		if err := rows.Scan(&c.ID, &c.Kind, &c.Name, &c.Description, &c.Status); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// UpsertCategory inserts or updates on the (kind, name) key.
func (r *Repository) UpsertCategory(ctx context.Context, c *domain.EventCategory) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO event_categories (kind, name, description, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, name) DO UPDATE
			SET description = EXCLUDED.description, status = EXCLUDED.status
		RETURNING id
	`, c.Kind, c.Name, c.Description, c.Status).Scan(&c.ID)
}

func (r *Repository) CreateCinema(ctx context.Context, c *domain.Cinema) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO cinemas (name, address, city) VALUES ($1, $2, $3) RETURNING id
	`, c.Name, c.Address, c.City).Scan(&c.ID)
}

// CreateHall creates the hall and its full seat grid in one
// transaction, batching the seat inserts.
func (r *Repository) CreateHall(ctx context.Context, h *domain.Hall) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO halls (cinema_id, name, seat_rows, seat_cols)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, h.CinemaID, h.Name, h.Rows, h.Cols).Scan(&h.ID)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for row := 0; row < h.Rows; row++ {
			for col := 0; col < h.Cols; col++ {
				batch.Queue(`
					INSERT INTO seats (hall_id, seat_row, seat_col, label)
					VALUES ($1, $2, $3, $4)
				`, h.ID, row, col, domain.SeatLabel(row, col))
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *Repository) GetHall(ctx context.Context, id int64) (*domain.Hall, error) {
	var h domain.Hall
	err := r.pool.QueryRow(ctx, `
		SELECT id, cinema_id, name, seat_rows, seat_cols FROM halls WHERE id = $1
	`, id).Scan(&h.ID, &h.CinemaID, &h.Name, &h.Rows, &h.Cols)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repository) CreateShowtime(ctx context.Context, st *domain.Showtime) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO showtimes (kind, target_id, hall_id, start_time, price_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, st.Kind, st.TargetID, st.HallID, st.StartTime, st.PriceCents).Scan(&st.ID)
}

// ListShowtimes returns the showtimes of one movie or event with venue
// names, soonest first.
func (r *Repository) ListShowtimes(ctx context.Context, kind domain.EventKind, targetID int64) ([]ShowtimeListing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT st.id, st.kind, st.target_id, st.hall_id, st.start_time, st.price_cents,
		       h.name, c.name
		FROM showtimes st
		JOIN halls h ON h.id = st.hall_id
		JOIN cinemas c ON c.id = h.cinema_id
		WHERE st.kind = $1 AND st.target_id = $2
		ORDER BY st.start_time ASC
	`, kind, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []ShowtimeListing
	for rows.Next() {
		var l ShowtimeListing
		if err := rows.Scan(&l.ID, &l.Kind, &l.TargetID, &l.HallID, &l.StartTime, &l.PriceCents, &l.HallName, &l.CinemaName); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
