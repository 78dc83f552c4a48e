package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBookNotFound        = errors.New("book not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyTerminal     = errors.New("reservation already confirmed or cancelled")
	ErrEmptyReservation    = errors.New("reservation has no line items")
)

// InsufficientStockError reports the first book a reservation attempt could
// not be satisfied for. Expected and recoverable; surfaced to the caller for
// user-facing messaging.
type InsufficientStockError struct {
	BookID    int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d: requested %d, available %d",
		e.BookID, e.Requested, e.Available)
}

// InvariantError marks a ledger mutation that would drive a counter negative,
// such as releasing or committing more than was reserved. A programming error:
// the operation aborts, nothing is clamped.
type InvariantError struct {
	BookID int64
	Op     string
	Qty    int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s of %d copies for book %d", e.Op, e.Qty, e.BookID)
}
