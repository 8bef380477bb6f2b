package domain

import (
	"strconv"
	"strings"
	"time"
)

// NewOrderFromHold prices a consumed hold into a CREATED order. Seats
// stay reserved through CREATED via the order's seat rows; they only
// read as SOLD once the order is PAID.
func NewOrderFromHold(h Hold, priceCents int) Order {
	return Order{
		ID:         NewToken(),
		UserID:     h.UserID,
		ShowtimeID: h.ShowtimeID,
		Status:     OrderCreated,
		TotalCents: priceCents * len(h.SeatIDs),
		SeatIDs:    h.SeatIDs,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewTicketCode issues the proof-of-purchase code assigned on payment.
func NewTicketCode() string {
	return "TKT-" + strings.ToUpper(NewToken()[:10])
}

// SeatLabel renders the grid position the way halls are labeled:
// row letter followed by 1-based column, so (0,0) is "A1".
func SeatLabel(row, col int) string {
	return string(rune('A'+row)) + strconv.Itoa(col+1)
}
