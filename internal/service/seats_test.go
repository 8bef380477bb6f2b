package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/service"
	"github.com/stretchr/testify/assert"
)

func cachedSeatState(t *testing.T, svc *service.SeatService, showtimeID, seatID, viewerID int64) domain.SeatState {
	t.Helper()
	views, err := svc.ListSeats(context.Background(), showtimeID, viewerID)
	assert.NoError(t, err)
	for _, v := range views {
		if v.SeatID == seatID {
			return v.State
		}
	}
	t.Fatalf("seat %d not in view", seatID)
	return ""
}

func TestListSeats_AnonymousServedFromCache(t *testing.T) {
	store := newMemStore()
	store.addShowtime(5, 2, 2, 4500)
	cache := newMemSeatCache()
	seatSvc := service.NewSeatService(store, cache)

	seat := store.seatID(5, 0)
	views, err := seatSvc.ListSeats(context.Background(), 5, 0)
	assert.NoError(t, err)
	assert.Len(t, views, 4)
	assert.Equal(t, 1, cache.sets)

	// A hold lands while the cached grid is live; anonymous reads keep
	// serving the cached state until the invalidation arrives.
	hold := domain.NewHold(7, 5, []int64{seat}, time.Minute)
	assert.NoError(t, store.CreateHold(context.Background(), hold))
	assert.Equal(t, domain.SeatAvailable, cachedSeatState(t, seatSvc, 5, seat, 0))
	assert.Equal(t, 1, cache.sets)

	cache.invalidate(5)
	assert.Equal(t, domain.SeatHeld, cachedSeatState(t, seatSvc, 5, seat, 0))
	assert.Equal(t, 2, cache.sets)
}

func TestListSeats_ViewerBypassesCache(t *testing.T) {
	store := newMemStore()
	store.addShowtime(5, 2, 2, 4500)
	cache := newMemSeatCache()
	seatSvc := service.NewSeatService(store, cache)

	seat := store.seatID(5, 0)
	hold := domain.NewHold(7, 5, []int64{seat}, time.Minute)
	assert.NoError(t, store.CreateHold(context.Background(), hold))

	assert.Equal(t, domain.SeatHeld, cachedSeatState(t, seatSvc, 5, seat, 0))
	assert.Equal(t, 1, cache.sets)

	// The holder sees HELD_BY_ME: viewer-specific grids never touch the
	// cache in either direction.
	assert.Equal(t, domain.SeatHeldByMe, cachedSeatState(t, seatSvc, 5, seat, 7))
	assert.Equal(t, 1, cache.sets)
}

func TestListSeats_UnknownShowtime(t *testing.T) {
	seatSvc := service.NewSeatService(newMemStore(), newMemSeatCache())
	_, err := seatSvc.ListSeats(context.Background(), 99, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
