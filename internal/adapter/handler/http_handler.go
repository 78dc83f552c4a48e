package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
	"github.com/giatinhuynh/thereadingroom/internal/core/service"
	"github.com/giatinhuynh/thereadingroom/internal/port"
)

// HTTPHandler exposes the checkout, payment, and admin stock paths as JSON
// endpoints over the orchestrator and ledger.
type HTTPHandler struct {
	orchestrator *service.CheckoutOrchestrator
	ledger       port.StockLedger
	bestSellers  port.BestSellerLister
}

func NewHTTPHandler(orchestrator *service.CheckoutOrchestrator, ledger port.StockLedger, bestSellers port.BestSellerLister) *HTTPHandler {
	return &HTTPHandler{
		orchestrator: orchestrator,
		ledger:       ledger,
		bestSellers:  bestSellers,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/checkout", h.BeginCheckout)
	mux.HandleFunc("/api/checkout/abandon", h.Abandon)
	mux.HandleFunc("/api/payment", h.CompletePayment)
	mux.HandleFunc("/api/stock", h.GetStock)
	mux.HandleFunc("/api/bestsellers", h.BestSellers)
	mux.HandleFunc("/api/admin/restock", h.Restock)
	mux.HandleFunc("/api/admin/stock", h.SetPhysicalCopies)
}

type lineRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type checkoutRequest struct {
	UserID int64         `json:"user_id"`
	Lines  []lineRequest `json:"lines"`
}

type checkoutResponse struct {
	ReservationID string `json:"reservation_id,omitempty"`
	Message       string `json:"message"`
}

func (h *HTTPHandler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkoutResponse{Message: "invalid request body"})
		return
	}
	if req.UserID == 0 || len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, checkoutResponse{Message: "missing required fields"})
		return
	}

	lines := make([]domain.Line, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = domain.Line{BookID: l.BookID, Quantity: l.Quantity}
	}

	res, err := h.orchestrator.BeginCheckout(r.Context(), req.UserID, lines)
	if err != nil {
		var insufficient *domain.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			writeJSON(w, http.StatusConflict, checkoutResponse{Message: insufficient.Error()})
		case errors.Is(err, domain.ErrBookNotFound):
			writeJSON(w, http.StatusNotFound, checkoutResponse{Message: "book not found"})
		case errors.Is(err, domain.ErrEmptyReservation):
			writeJSON(w, http.StatusBadRequest, checkoutResponse{Message: "empty cart"})
		default:
			writeJSON(w, http.StatusInternalServerError, checkoutResponse{Message: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		ReservationID: res.ID,
		Message:       "stock reserved",
	})
}

type paymentRequest struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	OrderRef      string `json:"order_ref"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *HTTPHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}
	if req.ReservationID == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "missing required fields"})
		return
	}

	outcome := service.PaymentOutcome{
		Status:   service.PaymentStatus(req.Status),
		OrderRef: req.OrderRef,
	}
	err := h.orchestrator.CompleteCheckout(r.Context(), req.ReservationID, outcome)
	if err != nil {
		var recordErr *service.OrderRecordError
		switch {
		case errors.As(err, &recordErr):
			// Stock is sold; only the order record is missing.
			writeJSON(w, http.StatusInternalServerError, statusResponse{
				Message: "order recording failed, contact support",
			})
		case errors.Is(err, domain.ErrReservationNotFound):
			writeJSON(w, http.StatusNotFound, statusResponse{Message: "reservation not found"})
		case errors.Is(err, domain.ErrAlreadyTerminal):
			writeJSON(w, http.StatusGone, statusResponse{Message: "reservation already resolved"})
		default:
			writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "checkout resolved"})
}

type abandonRequest struct {
	ReservationID string `json:"reservation_id"`
}

func (h *HTTPHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req abandonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReservationID == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}

	if err := h.orchestrator.Abandon(r.Context(), req.ReservationID); err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) {
			writeJSON(w, http.StatusNotFound, statusResponse{Message: "reservation not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "reservation released"})
}

type stockResponse struct {
	BookID          int64   `json:"book_id"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Price           float64 `json:"price"`
	AvailableCopies int     `json:"available_copies"`
	SoldCopies      int     `json:"sold_copies"`
}

func (h *HTTPHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(r.URL.Query().Get("book_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid book_id"})
		return
	}

	stock, err := h.ledger.GetStock(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			writeJSON(w, http.StatusNotFound, statusResponse{Message: "book not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{
		BookID:          stock.BookID,
		Title:           stock.Title,
		Author:          stock.Author,
		Price:           stock.Price,
		AvailableCopies: stock.Available(),
		SoldCopies:      stock.SoldCopies,
	})
}

func (h *HTTPHandler) BestSellers(w http.ResponseWriter, r *http.Request) {
	books, err := h.bestSellers.BestSellers(r.Context(), 5)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
		return
	}

	out := make([]stockResponse, len(books))
	for i, b := range books {
		out[i] = stockResponse{
			BookID:          b.BookID,
			Title:           b.Title,
			Author:          b.Author,
			Price:           b.Price,
			AvailableCopies: b.Available(),
			SoldCopies:      b.SoldCopies,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type restockRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}

	if err := h.ledger.Restock(r.Context(), req.BookID, req.Quantity); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "stock increased"})
}

type setStockRequest struct {
	BookID         int64 `json:"book_id"`
	PhysicalCopies int   `json:"physical_copies"`
}

func (h *HTTPHandler) SetPhysicalCopies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhysicalCopies < 0 {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}

	if err := h.ledger.SetPhysicalCopies(r.Context(), req.BookID, req.PhysicalCopies); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "stock updated"})
}

func (h *HTTPHandler) writeLedgerError(w http.ResponseWriter, err error) {
	var invariant *domain.InvariantError
	switch {
	case errors.Is(err, domain.ErrBookNotFound):
		writeJSON(w, http.StatusNotFound, statusResponse{Message: "book not found"})
	case errors.As(err, &invariant):
		writeJSON(w, http.StatusConflict, statusResponse{Message: invariant.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
