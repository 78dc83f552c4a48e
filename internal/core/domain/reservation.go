package domain

import (
	"sort"
	"time"
)

type ReservationState string

const (
	ReservationPending   ReservationState = "PENDING"
	ReservationConfirmed ReservationState = "CONFIRMED"
	ReservationCancelled ReservationState = "CANCELLED"
)

// Terminal reports whether no further transition is permitted.
func (s ReservationState) Terminal() bool {
	return s == ReservationConfirmed || s == ReservationCancelled
}

// Line is a single (book, quantity) entry from a checkout cart.
type Line struct {
	BookID   int64
	Quantity int
}

// Reservation is a temporary exclusive hold on stock, created when checkout
// begins and resolved by exactly one confirm (sale) or cancel (release).
type Reservation struct {
	ID        string
	UserID    int64
	Lines     []Line
	State     ReservationState
	CreatedAt time.Time
}

// NormalizeLines merges duplicate book ids and sorts the result by ascending
// BookID so ledger updates are always applied in one global order.
// Returns ErrEmptyReservation for an empty cart and an InvariantError for a
// non-positive quantity.
func NormalizeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyReservation
	}

	merged := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, &InvariantError{BookID: l.BookID, Op: "reserve", Qty: l.Quantity}
		}
		merged[l.BookID] += l.Quantity
	}

	out := make([]Line, 0, len(merged))
	for id, qty := range merged {
		out = append(out, Line{BookID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })

	return out, nil
}
