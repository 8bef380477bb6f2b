package domain_test

import (
	"testing"
	"time"

	"github.com/showseat/boxoffice/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewHold(t *testing.T) {
	h := domain.NewHold(7, 5, []int64{1, 2}, 15*time.Minute)

	assert.Len(t, h.Token, 32)
	assert.Equal(t, domain.HoldActive, h.Status)
	assert.True(t, h.Live(time.Now().UTC()))
	assert.False(t, h.Live(h.ExpiresAt))
	assert.False(t, h.Live(h.ExpiresAt.Add(time.Second)))
}

func TestHoldLive_NonActiveStatus(t *testing.T) {
	h := domain.NewHold(7, 5, []int64{1}, time.Hour)
	h.Status = domain.HoldConsumed
	assert.False(t, h.Live(time.Now().UTC()))
}

func TestNewOrderFromHold(t *testing.T) {
	h := domain.NewHold(7, 5, []int64{10, 11, 12}, time.Minute)
	o := domain.NewOrderFromHold(h, 4500)

	assert.Equal(t, domain.OrderCreated, o.Status)
	assert.Equal(t, 13500, o.TotalCents)
	assert.Equal(t, h.SeatIDs, o.SeatIDs)
	assert.Equal(t, int64(5), o.ShowtimeID)
	assert.Empty(t, o.TicketCode)
}

func TestNewTicketCode(t *testing.T) {
	code := domain.NewTicketCode()
	assert.Regexp(t, `^TKT-[0-9A-F]{10}$`, code)
	assert.NotEqual(t, code, domain.NewTicketCode())
}

func TestSeatLabel(t *testing.T) {
	assert.Equal(t, "A1", domain.SeatLabel(0, 0))
	assert.Equal(t, "B3", domain.SeatLabel(1, 2))
	assert.Equal(t, "H12", domain.SeatLabel(7, 11))
}
