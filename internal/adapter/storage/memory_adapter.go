package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
)

// MemoryLedger keeps the stock counters in process memory with one mutex per
// book, so the check-and-update of each operation is a single critical section
// and unrelated books never contend.
type MemoryLedger struct {
	mu    sync.RWMutex // guards the map itself, not the counters
	books map[int64]*memoryRecord
}

type memoryRecord struct {
	mu    sync.Mutex
	stock domain.BookStock
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{books: make(map[int64]*memoryRecord)}
}

func (m *MemoryLedger) record(bookID int64) (*memoryRecord, error) {
	m.mu.RLock()
	rec, ok := m.books[bookID]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return rec, nil
}

func (m *MemoryLedger) AddBook(ctx context.Context, stock domain.BookStock) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[stock.BookID]; exists {
		return &domain.InvariantError{BookID: stock.BookID, Op: "add", Qty: stock.PhysicalCopies}
	}
	m.books[stock.BookID] = &memoryRecord{stock: stock}
	return nil
}

func (m *MemoryLedger) AvailableCopies(ctx context.Context, bookID int64) (int, error) {
	rec, err := m.record(bookID)
	if err != nil {
		return 0, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.stock.Available(), nil
}

func (m *MemoryLedger) GetStock(ctx context.Context, bookID int64) (*domain.BookStock, error) {
	rec, err := m.record(bookID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	stock := rec.stock
	return &stock, nil
}

func (m *MemoryLedger) TryReserve(ctx context.Context, bookID int64, qty int) (bool, error) {
	rec, err := m.record(bookID)
	if err != nil {
		return false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.stock.Available() < qty {
		return false, nil
	}
	rec.stock.ReservedCopies += qty
	return true, nil
}

func (m *MemoryLedger) ReleaseReservation(ctx context.Context, bookID int64, qty int) error {
	rec, err := m.record(bookID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.stock.ReservedCopies < qty {
		return &domain.InvariantError{BookID: bookID, Op: "release", Qty: qty}
	}
	rec.stock.ReservedCopies -= qty
	return nil
}

func (m *MemoryLedger) CommitSale(ctx context.Context, bookID int64, qty int) error {
	rec, err := m.record(bookID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.stock.ReservedCopies < qty {
		return &domain.InvariantError{BookID: bookID, Op: "commit", Qty: qty}
	}
	rec.stock.PhysicalCopies -= qty
	rec.stock.ReservedCopies -= qty
	rec.stock.SoldCopies += qty
	return nil
}

func (m *MemoryLedger) Restock(ctx context.Context, bookID int64, qty int) error {
	if qty <= 0 {
		return &domain.InvariantError{BookID: bookID, Op: "restock", Qty: qty}
	}

	rec, err := m.record(bookID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.stock.PhysicalCopies += qty
	return nil
}

func (m *MemoryLedger) SetPhysicalCopies(ctx context.Context, bookID int64, total int) error {
	rec, err := m.record(bookID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if total < rec.stock.ReservedCopies {
		return &domain.InvariantError{BookID: bookID, Op: "set-physical", Qty: total}
	}
	rec.stock.PhysicalCopies = total
	return nil
}

func (m *MemoryLedger) BestSellers(ctx context.Context, limit int) ([]domain.BookStock, error) {
	m.mu.RLock()
	out := make([]domain.BookStock, 0, len(m.books))
	for _, rec := range m.books {
		rec.mu.Lock()
		out = append(out, rec.stock)
		rec.mu.Unlock()
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SoldCopies > out[j].SoldCopies })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryOrderStore collects confirmed orders in memory. Library-mode stand-in
// for the SQL order store.
type MemoryOrderStore struct {
	mu     sync.Mutex
	orders []domain.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{}
}

func (s *MemoryOrderStore) SaveOrder(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order)
	return nil
}

func (s *MemoryOrderStore) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}
