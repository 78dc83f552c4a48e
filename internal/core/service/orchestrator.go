package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
	"github.com/giatinhuynh/thereadingroom/internal/port"
)

type PaymentStatus string

const (
	PaymentSuccess   PaymentStatus = "success"
	PaymentFailure   PaymentStatus = "failure"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentTimeout   PaymentStatus = "timeout"
)

// PaymentOutcome is what the payment collaborator reports back. The gateway
// itself is a black box; only the verdict and its order reference matter here.
type PaymentOutcome struct {
	Status   PaymentStatus
	OrderRef string
}

// OrderRecordError reports that an order could not be persisted after its
// sale was already committed. The stock is sold; the order record must be
// recovered, not the reservation re-reserved.
type OrderRecordError struct {
	ReservationID string
	OrderRef      string
	Err           error
}

func (e *OrderRecordError) Error() string {
	return fmt.Sprintf("order recording failed for reservation %s (ref %s): %v; stock already sold, record must be recovered",
		e.ReservationID, e.OrderRef, e.Err)
}

func (e *OrderRecordError) Unwrap() error { return e.Err }

// CheckoutOrchestrator sequences reserve, payment outcome, and the matching
// confirm or cancel. Failure and timeout policy lives here so the manager
// stays a pure state machine.
type CheckoutOrchestrator struct {
	manager *ReservationManager
	ledger  port.StockLedger
	orders  port.OrderStore
	logger  zerolog.Logger
}

func NewCheckoutOrchestrator(manager *ReservationManager, ledger port.StockLedger, orders port.OrderStore, logger zerolog.Logger) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		manager: manager,
		ledger:  ledger,
		orders:  orders,
		logger:  logger,
	}
}

// BeginCheckout reserves the cart. InsufficientStockError passes through
// untouched so the caller can name the offending title.
func (o *CheckoutOrchestrator) BeginCheckout(ctx context.Context, userID int64, lines []domain.Line) (*domain.Reservation, error) {
	return o.manager.Reserve(ctx, userID, lines)
}

// CompleteCheckout resolves a reservation from the payment verdict. On
// success the sale is committed first and the order recorded second; a
// recording failure after commit is returned as an OrderRecordError and is
// never compensated by cancelling the reservation.
func (o *CheckoutOrchestrator) CompleteCheckout(ctx context.Context, reservationID string, outcome PaymentOutcome) error {
	if outcome.Status != PaymentSuccess {
		return o.cancel(ctx, reservationID, string(outcome.Status))
	}

	res, err := o.manager.Get(reservationID)
	if err != nil {
		return err
	}

	order := domain.Order{
		Ref:       outcome.OrderRef,
		UserID:    res.UserID,
		Lines:     res.Lines,
		CreatedAt: time.Now(),
	}
	if order.Ref == "" {
		order.Ref = uuid.New().String()
	}
	for _, line := range res.Lines {
		stock, err := o.ledger.GetStock(ctx, line.BookID)
		if err != nil {
			return fmt.Errorf("price lookup for book %d: %w", line.BookID, err)
		}
		order.Total += stock.Price * float64(line.Quantity)
	}

	if err := o.manager.Confirm(ctx, reservationID); err != nil {
		return err
	}

	if err := o.orders.SaveOrder(ctx, order); err != nil {
		o.logger.Error().Err(err).
			Str("reservation_id", reservationID).
			Str("order_ref", order.Ref).
			Msg("order recording failed after sale commit")
		return &OrderRecordError{ReservationID: reservationID, OrderRef: order.Ref, Err: err}
	}

	o.logger.Info().
		Str("reservation_id", reservationID).
		Str("order_ref", order.Ref).
		Float64("total", order.Total).
		Msg("checkout completed")
	return nil
}

// Abandon is the explicit cancellation path, taken when the user closes the
// checkout window. Same ledger effect as a payment failure.
func (o *CheckoutOrchestrator) Abandon(ctx context.Context, reservationID string) error {
	return o.cancel(ctx, reservationID, "abandoned")
}

func (o *CheckoutOrchestrator) cancel(ctx context.Context, reservationID, reason string) error {
	err := o.manager.Cancel(ctx, reservationID)
	if errors.Is(err, domain.ErrAlreadyTerminal) {
		// The reservation was already resolved; nothing left to release.
		o.logger.Warn().
			Str("reservation_id", reservationID).
			Str("reason", reason).
			Msg("cancel on terminal reservation ignored")
		return nil
	}
	return err
}
