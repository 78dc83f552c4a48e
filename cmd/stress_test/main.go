package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/giatinhuynh/thereadingroom/internal/adapter/storage"
	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
	"github.com/giatinhuynh/thereadingroom/internal/core/service"
)

const (
	bookID        = int64(42)
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	ledger := storage.NewMemoryLedger()
	if err := ledger.AddBook(ctx, domain.BookStock{
		BookID:         bookID,
		Title:          "Stress Test Title",
		Price:          9.99,
		PhysicalCopies: initialStock,
	}); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	orders := storage.NewMemoryOrderStore()
	manager := service.NewReservationManager(ledger, zerolog.Nop())
	orchestrator := service.NewCheckoutOrchestrator(manager, ledger, orders, zerolog.Nop())

	var successCount atomic.Int32
	var failCount atomic.Int32
	var mu sync.Mutex
	var reserved []string

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			res, err := orchestrator.BeginCheckout(ctx, userID, []domain.Line{{BookID: bookID, Quantity: 1}})
			if err == nil {
				successCount.Add(1)
				mu.Lock()
				reserved = append(reserved, res.ID)
				mu.Unlock()
			} else {
				failCount.Add(1)
			}
		}(int64(i + 1))
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Pay for every successful reservation.
	for _, id := range reserved {
		if err := orchestrator.CompleteCheckout(ctx, id, service.PaymentOutcome{Status: service.PaymentSuccess}); err != nil {
			log.Fatalf("failed to complete checkout %s: %v", id, err)
		}
	}

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d checkouts succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	stock, err := ledger.GetStock(ctx, bookID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: physical=%d reserved=%d sold=%d\n",
		stock.PhysicalCopies, stock.ReservedCopies, stock.SoldCopies)

	if stock.PhysicalCopies == 0 && stock.ReservedCopies == 0 && stock.SoldCopies == initialStock {
		fmt.Println("PASS: Stock fully sold through")
	} else {
		fmt.Println("FAIL: Ledger counters off after sell-through")
	}

	if len(orders.Orders()) != initialStock {
		fmt.Printf("FAIL: Expected %d recorded orders, got %d\n", initialStock, len(orders.Orders()))
	} else {
		fmt.Printf("PASS: %d orders recorded\n", initialStock)
	}
}
