package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func getRedisLedger(t *testing.T, stock domain.BookStock) (*RedisAdapter, *redis.Client) {
	t.Helper()

	client := getRedisClient(t)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	client.Del(ctx, bookKey(stock.BookID))
	adapter := NewRedisAdapter(client)
	if err := adapter.AddBook(ctx, stock); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return adapter, client
}

func TestRedisTryReserve_Success(t *testing.T) {
	adapter, _ := getRedisLedger(t, domain.BookStock{BookID: 9001, PhysicalCopies: 10})
	ctx := context.Background()

	ok, err := adapter.TryReserve(ctx, 9001, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}

	stock, err := adapter.GetStock(ctx, 9001)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.ReservedCopies != 3 || stock.Available() != 7 {
		t.Errorf("unexpected counters: %+v", stock)
	}
}

func TestRedisTryReserve_InsufficientStock(t *testing.T) {
	adapter, _ := getRedisLedger(t, domain.BookStock{BookID: 9002, PhysicalCopies: 5})
	ctx := context.Background()

	ok, err := adapter.TryReserve(ctx, 9002, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected failure due to insufficient stock")
	}

	available, _ := adapter.AvailableCopies(ctx, 9002)
	if available != 5 {
		t.Errorf("expected stock unchanged at 5, got %d", available)
	}
}

func TestRedisTryReserve_UnknownBook(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	client.Del(ctx, bookKey(9099))

	adapter := NewRedisAdapter(client)
	_, err := adapter.TryReserve(ctx, 9099, 1)
	if !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound, got: %v", err)
	}
}

func TestRedisTryReserve_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	adapter, _ := getRedisLedger(t, domain.BookStock{BookID: 9003, PhysicalCopies: initialStock})
	ctx := context.Background()

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.TryReserve(ctx, 9003, 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	available, _ := adapter.AvailableCopies(ctx, 9003)
	if available != 0 {
		t.Errorf("expected 0 available, got %d", available)
	}
}

func TestRedisCommitSale(t *testing.T) {
	adapter, _ := getRedisLedger(t, domain.BookStock{BookID: 9004, PhysicalCopies: 10})
	ctx := context.Background()

	if _, err := adapter.TryReserve(ctx, 9004, 4); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := adapter.CommitSale(ctx, 9004, 4); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	stock, _ := adapter.GetStock(ctx, 9004)
	if stock.PhysicalCopies != 6 || stock.ReservedCopies != 0 || stock.SoldCopies != 4 {
		t.Errorf("unexpected counters after commit: %+v", stock)
	}

	// Committing more than reserved is an invariant violation.
	err := adapter.CommitSale(ctx, 9004, 1)
	var invariant *domain.InvariantError
	if !errors.As(err, &invariant) {
		t.Errorf("expected InvariantError, got: %v", err)
	}
}

func TestRedisReleaseReservation(t *testing.T) {
	adapter, _ := getRedisLedger(t, domain.BookStock{BookID: 9005, PhysicalCopies: 10})
	ctx := context.Background()

	if _, err := adapter.TryReserve(ctx, 9005, 4); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := adapter.ReleaseReservation(ctx, 9005, 4); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	err := adapter.ReleaseReservation(ctx, 9005, 1)
	var invariant *domain.InvariantError
	if !errors.As(err, &invariant) {
		t.Errorf("expected InvariantError, got: %v", err)
	}
}

func TestRedisSetPhysicalCopies(t *testing.T) {
	adapter, _ := getRedisLedger(t, domain.BookStock{BookID: 9006, PhysicalCopies: 10})
	ctx := context.Background()

	if _, err := adapter.TryReserve(ctx, 9006, 6); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	err := adapter.SetPhysicalCopies(ctx, 9006, 5)
	var invariant *domain.InvariantError
	if !errors.As(err, &invariant) {
		t.Fatalf("expected InvariantError for total below reserved, got: %v", err)
	}

	if err := adapter.SetPhysicalCopies(ctx, 9006, 6); err != nil {
		t.Errorf("setting total equal to reserved must succeed: %v", err)
	}
}
