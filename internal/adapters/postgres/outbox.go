package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/showseat/boxoffice/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED
	DedupeKey     string
}

// GetUnpublishedOutbox returns up to limit NEW records, oldest first.
// The SKIP LOCKED locks last only for this statement, so a second
// publisher polling between our read and MarkPublished can re-send a
// record. Delivery is at-least-once; consumers drop duplicates on the
// MessageId carried from dedupe_key.
func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// OldestUnpublishedAge reports the outbox lag for the gauge; zero when
// the outbox is drained.
func (r *Repository) OldestUnpublishedAge(ctx context.Context, now time.Time) (time.Duration, error) {
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT created_at FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT 1
	`).Scan(&createdAt)
	if err != nil {
		return 0, nil
	}
	return now.Sub(createdAt), nil
}
