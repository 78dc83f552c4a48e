package domain

// BookStock holds the per-book counters.
// PhysicalCopies is the total owned including reserved units,
// ReservedCopies the subset held by pending reservations,
// SoldCopies the cumulative units sold.
// Invariant: 0 <= ReservedCopies <= PhysicalCopies.
type BookStock struct {
	BookID         int64
	Title          string
	Author         string
	Price          float64
	PhysicalCopies int
	ReservedCopies int
	SoldCopies     int
}

// Available returns the copies not held by any pending reservation.
func (b BookStock) Available() int {
	return b.PhysicalCopies - b.ReservedCopies
}
