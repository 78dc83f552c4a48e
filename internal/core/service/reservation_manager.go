package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
	"github.com/giatinhuynh/thereadingroom/internal/port"
)

// ReservationManager turns cart line items into all-or-nothing reservations
// and drives each reservation through its state machine. It is the only
// component allowed to move stock between the reserved and sold counters.
type ReservationManager struct {
	ledger port.StockLedger
	logger zerolog.Logger

	mu           sync.RWMutex // guards the map; each entry has its own lock
	reservations map[string]*reservationEntry
}

type reservationEntry struct {
	mu  sync.Mutex
	res domain.Reservation
}

func NewReservationManager(ledger port.StockLedger, logger zerolog.Logger) *ReservationManager {
	return &ReservationManager{
		ledger:       ledger,
		logger:       logger,
		reservations: make(map[string]*reservationEntry),
	}
}

// Reserve attempts to hold every line item, in ascending book id order. If
// any line cannot be satisfied, the lines already held are released again and
// the failing book is reported; the ledger is left exactly as it was found.
func (m *ReservationManager) Reserve(ctx context.Context, userID int64, lines []domain.Line) (*domain.Reservation, error) {
	normalized, err := domain.NormalizeLines(lines)
	if err != nil {
		return nil, err
	}

	for i, line := range normalized {
		ok, err := m.ledger.TryReserve(ctx, line.BookID, line.Quantity)
		if err != nil {
			m.rollback(ctx, normalized[:i])
			return nil, fmt.Errorf("reserve book %d: %w", line.BookID, err)
		}
		if !ok {
			m.rollback(ctx, normalized[:i])
			available, _ := m.ledger.AvailableCopies(ctx, line.BookID)
			return nil, &domain.InsufficientStockError{
				BookID:    line.BookID,
				Requested: line.Quantity,
				Available: available,
			}
		}
	}

	res := domain.Reservation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Lines:     normalized,
		State:     domain.ReservationPending,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.reservations[res.ID] = &reservationEntry{res: res}
	m.mu.Unlock()

	m.logger.Info().
		Str("reservation_id", res.ID).
		Int64("user_id", userID).
		Int("lines", len(normalized)).
		Msg("reservation created")

	return &res, nil
}

// rollback releases partially held lines in reverse acquisition order.
func (m *ReservationManager) rollback(ctx context.Context, held []domain.Line) {
	for i := len(held) - 1; i >= 0; i-- {
		line := held[i]
		if err := m.ledger.ReleaseReservation(ctx, line.BookID, line.Quantity); err != nil {
			m.logger.Error().Err(err).
				Int64("book_id", line.BookID).
				Int("quantity", line.Quantity).
				Msg("rollback of partial reservation failed")
		}
	}
}

// Confirm transitions PENDING to CONFIRMED and commits the sale of every
// line. A second call returns ErrAlreadyTerminal and touches nothing.
func (m *ReservationManager) Confirm(ctx context.Context, id string) error {
	entry, err := m.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.res.State.Terminal() {
		return domain.ErrAlreadyTerminal
	}
	entry.res.State = domain.ReservationConfirmed

	for _, line := range entry.res.Lines {
		if err := m.ledger.CommitSale(ctx, line.BookID, line.Quantity); err != nil {
			// Stock is partially committed. Fatal for this transaction:
			// surfaced for recovery, never silently unwound.
			m.logger.Error().Err(err).
				Str("reservation_id", id).
				Int64("book_id", line.BookID).
				Msg("commit sale failed mid-confirm")
			return fmt.Errorf("commit sale for book %d: %w", line.BookID, err)
		}
	}

	m.logger.Info().Str("reservation_id", id).Msg("reservation confirmed")
	return nil
}

// Cancel transitions PENDING to CANCELLED and returns every held line to the
// available pool. Idempotent the same way Confirm is.
func (m *ReservationManager) Cancel(ctx context.Context, id string) error {
	entry, err := m.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return m.cancelLocked(ctx, entry)
}

func (m *ReservationManager) cancelLocked(ctx context.Context, entry *reservationEntry) error {
	if entry.res.State.Terminal() {
		return domain.ErrAlreadyTerminal
	}
	entry.res.State = domain.ReservationCancelled

	for _, line := range entry.res.Lines {
		if err := m.ledger.ReleaseReservation(ctx, line.BookID, line.Quantity); err != nil {
			m.logger.Error().Err(err).
				Str("reservation_id", entry.res.ID).
				Int64("book_id", line.BookID).
				Msg("release failed mid-cancel")
			return fmt.Errorf("release book %d: %w", line.BookID, err)
		}
	}

	m.logger.Info().Str("reservation_id", entry.res.ID).Msg("reservation cancelled")
	return nil
}

// Get returns a copy of the reservation for callers that need its line items,
// such as the orchestrator building an order record.
func (m *ReservationManager) Get(id string) (*domain.Reservation, error) {
	entry, err := m.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	res := entry.res
	res.Lines = append([]domain.Line(nil), entry.res.Lines...)
	return &res, nil
}

// SweepExpired cancels every PENDING reservation created before now-maxAge.
// Run periodically so a crashed client cannot lock stock forever.
func (m *ReservationManager) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	m.mu.RLock()
	entries := make([]*reservationEntry, 0, len(m.reservations))
	for _, entry := range m.reservations {
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	swept := 0
	for _, entry := range entries {
		entry.mu.Lock()
		expired := entry.res.State == domain.ReservationPending && entry.res.CreatedAt.Before(cutoff)
		if expired {
			if err := m.cancelLocked(ctx, entry); err != nil {
				entry.mu.Unlock()
				return swept, err
			}
			swept++
		}
		entry.mu.Unlock()
	}

	return swept, nil
}

// PurgeTerminal drops confirmed and cancelled reservations older than the
// retention window. They are kept only to answer idempotent retries.
func (m *ReservationManager) PurgeTerminal(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, entry := range m.reservations {
		entry.mu.Lock()
		stale := entry.res.State.Terminal() && entry.res.CreatedAt.Before(cutoff)
		entry.mu.Unlock()
		if stale {
			delete(m.reservations, id)
			purged++
		}
	}
	return purged
}

func (m *ReservationManager) entry(id string) (*reservationEntry, error) {
	m.mu.RLock()
	entry, ok := m.reservations[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	return entry, nil
}
