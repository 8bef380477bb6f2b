package domain

import (
	"time"
)

// SeatState is the derived state of a seat for one showtime.
type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatHeld      SeatState = "HELD"
	SeatHeldByMe  SeatState = "HELD_BY_ME"
	SeatSold      SeatState = "SOLD"
)

type HoldStatus string

const (
	HoldActive   HoldStatus = "ACTIVE"
	HoldConsumed HoldStatus = "CONSUMED"
	HoldReleased HoldStatus = "RELEASED"
	HoldExpired  HoldStatus = "EXPIRED"
)

type OrderStatus string

const (
	OrderCreated  OrderStatus = "CREATED"
	OrderPaid     OrderStatus = "PAID"
	OrderCanceled OrderStatus = "CANCELED"
)

type EventKind string

const (
	KindMovie      EventKind = "movie"
	KindConcert    EventKind = "concert"
	KindExhibition EventKind = "exhibition"
)

type User struct {
	ID             int64
	Email          string
	Name           string
	HashedPassword string
	IsAdmin        bool
}

type Movie struct {
	ID          int64
	Title       string
	Description string
	Category    string
	DurationMin int
	Rating      string
	PosterURL   string
	Status      string // ON / OFF
}

// Event covers concerts and exhibitions; movies keep their own table
// because of the duration/rating fields.
type Event struct {
	ID          int64
	Kind        EventKind
	Title       string
	Description string
	Category    string
	PosterURL   string
	Venue       string
	PriceInfo   string
	Status      string
}

type EventCategory struct {
	ID          int64
	Kind        EventKind
	Name        string
	Description string
	Status      string
}

type Cinema struct {
	ID      int64
	Name    string
	Address string
	City    string
}

type Hall struct {
	ID       int64
	CinemaID int64
	Name     string
	Rows     int
	Cols     int
}

type Seat struct {
	ID     int64
	HallID int64
	Row    int
	Col    int
	Label  string
}

// SeatView is a seat plus its derived state for one showtime.
type SeatView struct {
	SeatID int64     `json:"seat_id"`
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	Label  string    `json:"label"`
	State  SeatState `json:"state"`
}

type Showtime struct {
	ID         int64
	Kind       EventKind
	TargetID   int64 // movie or event id depending on Kind
	HallID     int64
	StartTime  time.Time
	PriceCents int
}

type Hold struct {
	Token      string
	UserID     int64
	ShowtimeID int64
	SeatIDs    []int64
	Status     HoldStatus
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Live reports whether the hold still reserves its seats at the given
// instant. A hold past its expiry is dead even if the sweeper has not
// flipped its status yet.
func (h *Hold) Live(now time.Time) bool {
	return h.Status == HoldActive && now.Before(h.ExpiresAt)
}

type Order struct {
	ID         string
	UserID     int64
	ShowtimeID int64
	Status     OrderStatus
	TotalCents int
	TicketCode string
	SeatIDs    []int64
	CreatedAt  time.Time
}

// OrderDetail is an order hydrated with the display fields the order
// history needs: event title, venue naming and seat labels.
type OrderDetail struct {
	Order
	EventTitle string
	StartTime  time.Time
	HallName   string
	CinemaName string
	SeatLabels []string
}

// AuditEntry is one lifecycle transition recorded to the audit trail.
type AuditEntry struct {
	Kind       string    `bson:"kind"` // hold.created, order.paid, ...
	UserID     int64     `bson:"user_id,omitempty"`
	ShowtimeID int64     `bson:"showtime_id,omitempty"`
	HoldToken  string    `bson:"hold_token,omitempty"`
	OrderID    string    `bson:"order_id,omitempty"`
	SeatIDs    []int64   `bson:"seat_ids,omitempty"`
	At         time.Time `bson:"at"`
}
