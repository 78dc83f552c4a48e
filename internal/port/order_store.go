package port

import (
	"context"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
)

// OrderStore persists confirmed orders. A failure here after a sale has been
// committed must be surfaced for recovery, never compensated by re-reserving.
type OrderStore interface {
	SaveOrder(ctx context.Context, order domain.Order) error
}

// BestSellerLister serves the admin dashboard's top-sellers view.
type BestSellerLister interface {
	BestSellers(ctx context.Context, limit int) ([]domain.BookStock, error)
}
