package postgres

import "context"

// Schema is executed at startup; every statement is idempotent. Seat
// uniqueness of live holds is enforced by the partial index on
// hold_seats; sold/reserved seats by the unique constraint on
// order_seats (cancel deletes its rows).
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	hashed_password TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS movies (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	duration_min INT NOT NULL DEFAULT 120,
	rating TEXT NOT NULL DEFAULT 'PG-13',
	poster_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'ON'
);

CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	poster_url TEXT NOT NULL DEFAULT '',
	venue TEXT NOT NULL DEFAULT '',
	price_info TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'ON'
);

CREATE TABLE IF NOT EXISTS event_categories (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'ON',
	UNIQUE (kind, name)
);

CREATE TABLE IF NOT EXISTS cinemas (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS halls (
	id BIGSERIAL PRIMARY KEY,
	cinema_id BIGINT NOT NULL REFERENCES cinemas(id),
	name TEXT NOT NULL DEFAULT '',
	seat_rows INT NOT NULL DEFAULT 8,
	seat_cols INT NOT NULL DEFAULT 12
);

CREATE TABLE IF NOT EXISTS seats (
	id BIGSERIAL PRIMARY KEY,
	hall_id BIGINT NOT NULL REFERENCES halls(id),
	seat_row INT NOT NULL,
	seat_col INT NOT NULL,
	label TEXT NOT NULL,
	UNIQUE (hall_id, seat_row, seat_col)
);

CREATE TABLE IF NOT EXISTS showtimes (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	target_id BIGINT NOT NULL,
	hall_id BIGINT NOT NULL REFERENCES halls(id),
	start_time TIMESTAMPTZ NOT NULL,
	price_cents INT NOT NULL DEFAULT 4500
);

CREATE TABLE IF NOT EXISTS holds (
	token TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	showtime_id BIGINT NOT NULL REFERENCES showtimes(id),
	status TEXT NOT NULL DEFAULT 'ACTIVE'
		CHECK (status IN ('ACTIVE', 'CONSUMED', 'RELEASED', 'EXPIRED')),
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hold_seats (
	id BIGSERIAL PRIMARY KEY,
	hold_token TEXT NOT NULL REFERENCES holds(token),
	showtime_id BIGINT NOT NULL,
	seat_id BIGINT NOT NULL REFERENCES seats(id),
	status TEXT NOT NULL DEFAULT 'ACTIVE',
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_hold_seat_live
	ON hold_seats (showtime_id, seat_id) WHERE status = 'ACTIVE';

CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	showtime_id BIGINT NOT NULL REFERENCES showtimes(id),
	status TEXT NOT NULL DEFAULT 'CREATED'
		CHECK (status IN ('CREATED', 'PAID', 'CANCELED')),
	total_cents INT NOT NULL DEFAULT 0,
	ticket_code TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_seats (
	id BIGSERIAL PRIMARY KEY,
	order_id TEXT NOT NULL REFERENCES orders(id),
	showtime_id BIGINT NOT NULL,
	seat_id BIGINT NOT NULL REFERENCES seats(id),
	UNIQUE (showtime_id, seat_id)
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload_json JSONB NOT NULL,
	status TEXT NOT NULL DEFAULT 'NEW',
	dedupe_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_holds_expiry ON holds (expires_at) WHERE status = 'ACTIVE';
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_outbox_new ON outbox (created_at) WHERE status = 'NEW';
`

// Bootstrap creates all tables and indexes if missing.
func (r *Repository) Bootstrap(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}
