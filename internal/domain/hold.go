package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewHold reserves the given seats until now+ttl. The token is the
// hold's identity on the wire and in storage.
func NewHold(userID, showtimeID int64, seatIDs []int64, ttl time.Duration) Hold {
	now := time.Now().UTC()
	return Hold{
		Token:      NewToken(),
		UserID:     userID,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		Status:     HoldActive,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
}

// NewToken returns an opaque 32-char lowercase hex token.
func NewToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
