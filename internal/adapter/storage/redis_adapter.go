package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
)

const bookKeyPrefix = "book:"

// Lua keeps the check-and-update of each counter move atomic on the server,
// so two concurrent reservations can never both win the last copy.
// Scripts return 1 on success, 0 on a failed precondition, -1 for a missing book.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local qty = tonumber(ARGV[1])

if redis.call('EXISTS', key) == 0 then
	return -1
end

local physical = tonumber(redis.call('HGET', key, 'physical'))
local reserved = tonumber(redis.call('HGET', key, 'reserved'))
if physical - reserved >= qty then
	redis.call('HINCRBY', key, 'reserved', qty)
	return 1
end

return 0
`)

var releaseScript = redis.NewScript(`
local key = KEYS[1]
local qty = tonumber(ARGV[1])

if redis.call('EXISTS', key) == 0 then
	return -1
end

local reserved = tonumber(redis.call('HGET', key, 'reserved'))
if reserved >= qty then
	redis.call('HINCRBY', key, 'reserved', -qty)
	return 1
end

return 0
`)

var commitScript = redis.NewScript(`
local key = KEYS[1]
local qty = tonumber(ARGV[1])

if redis.call('EXISTS', key) == 0 then
	return -1
end

local reserved = tonumber(redis.call('HGET', key, 'reserved'))
if reserved >= qty then
	redis.call('HINCRBY', key, 'physical', -qty)
	redis.call('HINCRBY', key, 'reserved', -qty)
	redis.call('HINCRBY', key, 'sold', qty)
	return 1
end

return 0
`)

var setPhysicalScript = redis.NewScript(`
local key = KEYS[1]
local total = tonumber(ARGV[1])

if redis.call('EXISTS', key) == 0 then
	return -1
end

local reserved = tonumber(redis.call('HGET', key, 'reserved'))
if total >= reserved then
	redis.call('HSET', key, 'physical', total)
	return 1
end

return 0
`)

// RedisAdapter is the flash-load ledger: one hash per book, every mutation a
// single Lua round trip.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func bookKey(bookID int64) string {
	return bookKeyPrefix + strconv.FormatInt(bookID, 10)
}

func (r *RedisAdapter) AddBook(ctx context.Context, stock domain.BookStock) error {
	return r.client.HSet(ctx, bookKey(stock.BookID), map[string]interface{}{
		"title":    stock.Title,
		"author":   stock.Author,
		"price":    stock.Price,
		"physical": stock.PhysicalCopies,
		"reserved": stock.ReservedCopies,
		"sold":     stock.SoldCopies,
	}).Err()
}

func (r *RedisAdapter) GetStock(ctx context.Context, bookID int64) (*domain.BookStock, error) {
	fields, err := r.client.HGetAll(ctx, bookKey(bookID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrBookNotFound
	}

	stock := domain.BookStock{
		BookID: bookID,
		Title:  fields["title"],
		Author: fields["author"],
	}
	stock.Price, _ = strconv.ParseFloat(fields["price"], 64)
	stock.PhysicalCopies, _ = strconv.Atoi(fields["physical"])
	stock.ReservedCopies, _ = strconv.Atoi(fields["reserved"])
	stock.SoldCopies, _ = strconv.Atoi(fields["sold"])
	return &stock, nil
}

func (r *RedisAdapter) AvailableCopies(ctx context.Context, bookID int64) (int, error) {
	stock, err := r.GetStock(ctx, bookID)
	if err != nil {
		return 0, err
	}
	return stock.Available(), nil
}

func (r *RedisAdapter) TryReserve(ctx context.Context, bookID int64, qty int) (bool, error) {
	result, err := reserveScript.Run(ctx, r.client, []string{bookKey(bookID)}, qty).Int()
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}
	if result == -1 {
		return false, domain.ErrBookNotFound
	}
	return result == 1, nil
}

func (r *RedisAdapter) ReleaseReservation(ctx context.Context, bookID int64, qty int) error {
	result, err := releaseScript.Run(ctx, r.client, []string{bookKey(bookID)}, qty).Int()
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	if result == -1 {
		return domain.ErrBookNotFound
	}
	if result == 0 {
		return &domain.InvariantError{BookID: bookID, Op: "release", Qty: qty}
	}
	return nil
}

func (r *RedisAdapter) CommitSale(ctx context.Context, bookID int64, qty int) error {
	result, err := commitScript.Run(ctx, r.client, []string{bookKey(bookID)}, qty).Int()
	if err != nil {
		return fmt.Errorf("commit sale: %w", err)
	}
	if result == -1 {
		return domain.ErrBookNotFound
	}
	if result == 0 {
		return &domain.InvariantError{BookID: bookID, Op: "commit", Qty: qty}
	}
	return nil
}

func (r *RedisAdapter) Restock(ctx context.Context, bookID int64, qty int) error {
	if qty <= 0 {
		return &domain.InvariantError{BookID: bookID, Op: "restock", Qty: qty}
	}

	exists, err := r.client.Exists(ctx, bookKey(bookID)).Result()
	if err != nil {
		return fmt.Errorf("restock: %w", err)
	}
	if exists == 0 {
		return domain.ErrBookNotFound
	}
	return r.client.HIncrBy(ctx, bookKey(bookID), "physical", int64(qty)).Err()
}

func (r *RedisAdapter) SetPhysicalCopies(ctx context.Context, bookID int64, total int) error {
	result, err := setPhysicalScript.Run(ctx, r.client, []string{bookKey(bookID)}, total).Int()
	if err != nil {
		return fmt.Errorf("set physical copies: %w", err)
	}
	if result == -1 {
		return domain.ErrBookNotFound
	}
	if result == 0 {
		return &domain.InvariantError{BookID: bookID, Op: "set-physical", Qty: total}
	}
	return nil
}
