package port

import (
	"context"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
)

// StockLedger is the sole gateway to the shared per-book counters. Every
// mutation is a single atomic check-and-update inside the implementation;
// callers never read-then-write.
type StockLedger interface {
	// AvailableCopies returns physical minus reserved. Display use only,
	// never a gate for a subsequent reservation decision.
	AvailableCopies(ctx context.Context, bookID int64) (int, error)

	// GetStock retrieves the full stock record for a book.
	GetStock(ctx context.Context, bookID int64) (*domain.BookStock, error)

	// TryReserve atomically checks available >= qty and, if so, moves qty
	// copies into the reserved count. Returns false without change otherwise.
	TryReserve(ctx context.Context, bookID int64, qty int) (bool, error)

	// ReleaseReservation returns qty reserved copies to the available pool.
	// Releasing more than is reserved is an InvariantError.
	ReleaseReservation(ctx context.Context, bookID int64, qty int) error

	// CommitSale converts qty reserved copies into sold copies: physical and
	// reserved drop by qty, sold grows by qty, in one atomic step. The qty
	// must have been reserved beforehand.
	CommitSale(ctx context.Context, bookID int64, qty int) error

	// Restock adds qty physical copies. Admin path, independent of the
	// reservation machinery.
	Restock(ctx context.Context, bookID int64, qty int) error

	// SetPhysicalCopies replaces the physical count from a stock-edit screen.
	// Rejected when total would fall below the currently reserved count.
	SetPhysicalCopies(ctx context.Context, bookID int64, total int) error

	// AddBook registers a new catalog entry with its initial stock.
	AddBook(ctx context.Context, stock domain.BookStock) error
}
