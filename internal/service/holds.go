package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/observability"
)

// HoldService issues and releases time-boxed exclusive seat holds.
type HoldService struct {
	seats   SeatStore
	holds   HoldStore
	locker  SeatLocker
	auditor Auditor
	logger  observability.Logger
	ttl     time.Duration
}

func NewHoldService(seats SeatStore, holds HoldStore, locker SeatLocker, auditor Auditor, logger observability.Logger, ttl time.Duration) *HoldService {
	return &HoldService{seats: seats, holds: holds, locker: locker, auditor: auditor, logger: logger, ttl: ttl}
}

// CreateHold reserves the seats for the caller until the TTL lapses.
// Exactly one of two racing requests for a seat wins: the redis SetNX
// locks reject most losers up front, and the database's partial unique
// index settles whatever slips past.
func (s *HoldService) CreateHold(ctx context.Context, userID, showtimeID int64, seatIDs []int64) (*domain.Hold, error) {
	if len(seatIDs) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "no seats selected")
	}

	st, err := s.seats.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	valid, err := s.seats.SeatIDsForHall(ctx, st.HallID)
	if err != nil {
		return nil, err
	}
	for _, id := range seatIDs {
		if _, ok := valid[id]; !ok {
			return nil, errors.Wrapf(domain.ErrInvalidInput, "seat %d is not in this hall", id)
		}
	}

	hold := domain.NewHold(userID, showtimeID, seatIDs, s.ttl)

	var locked []int64
	for _, seatID := range seatIDs {
		ok, err := s.locker.AcquireSeat(ctx, showtimeID, seatID, hold.Token, s.ttl)
		if err != nil {
			s.unlock(ctx, showtimeID, locked, hold.Token)
			return nil, err
		}
		if !ok {
			s.unlock(ctx, showtimeID, locked, hold.Token)
			observability.HoldConflicts.Inc()
			return nil, domain.ErrConflict
		}
		locked = append(locked, seatID)
	}

	if err := s.holds.CreateHold(ctx, hold); err != nil {
		s.unlock(ctx, showtimeID, locked, hold.Token)
		if errors.Is(err, domain.ErrConflict) {
			observability.HoldConflicts.Inc()
		}
		return nil, err
	}

	observability.HoldsCreated.Inc()
	if err := s.locker.InvalidateSeatMap(ctx, showtimeID); err != nil {
		s.logger.WithError(err).Warn("seat map invalidation failed")
	}
	s.auditor.Record(ctx, domain.AuditEntry{
		Kind:       "hold.created",
		UserID:     userID,
		ShowtimeID: showtimeID,
		HoldToken:  hold.Token,
		SeatIDs:    seatIDs,
	})
	return &hold, nil
}

// ReleaseHold frees a live hold early at the owner's request.
func (s *HoldService) ReleaseHold(ctx context.Context, userID int64, token string) error {
	hold, err := s.holds.ReleaseHold(ctx, token, userID)
	if err != nil {
		return err
	}

	s.unlock(ctx, hold.ShowtimeID, hold.SeatIDs, token)
	if err := s.locker.InvalidateSeatMap(ctx, hold.ShowtimeID); err != nil {
		s.logger.WithError(err).Warn("seat map invalidation failed")
	}
	s.auditor.Record(ctx, domain.AuditEntry{
		Kind:       "hold.released",
		UserID:     userID,
		ShowtimeID: hold.ShowtimeID,
		HoldToken:  token,
		SeatIDs:    hold.SeatIDs,
	})
	return nil
}

func (s *HoldService) unlock(ctx context.Context, showtimeID int64, seatIDs []int64, token string) {
	for _, seatID := range seatIDs {
		if err := s.locker.ReleaseSeat(ctx, showtimeID, seatID, token); err != nil {
			s.logger.WithError(err).WithField("seat_id", seatID).Warn("seat unlock failed")
		}
	}
}
