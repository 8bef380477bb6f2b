package service

import (
	"context"
	"time"

	"github.com/showseat/boxoffice/internal/domain"
)

// seatMapTTL bounds how stale an anonymous seat grid may get when an
// invalidation is lost.
const seatMapTTL = 5 * time.Second

// SeatService is the read path the seat grid polls. Anonymous reads
// are served through the seat-map cache; authenticated reads bypass it
// because HELD_BY_ME depends on the viewer.
type SeatService struct {
	seats SeatStore
	cache SeatMapCache
}

// NewSeatService wires the read path; cache may be nil.
func NewSeatService(seats SeatStore, cache SeatMapCache) *SeatService {
	return &SeatService{seats: seats, cache: cache}
}

// ListSeats returns every seat of the showtime with its current state.
// viewerID (0 for anonymous) marks the caller's own held seats as
// HELD_BY_ME. Cache failures never fail the read.
func (s *SeatService) ListSeats(ctx context.Context, showtimeID, viewerID int64) ([]domain.SeatView, error) {
	st, err := s.seats.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	cacheable := viewerID == 0 && s.cache != nil
	if cacheable {
		if views, err := s.cache.GetSeatMap(ctx, showtimeID); err == nil && views != nil {
			return views, nil
		}
	}

	views, err := s.seats.ListSeatViews(ctx, showtimeID, st.HallID, viewerID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if cacheable {
		_ = s.cache.SetSeatMap(ctx, showtimeID, views, seatMapTTL)
	}
	return views, nil
}
