package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
)

// SQLAdapter implements the stock ledger and order store on database/sql.
// Every counter mutation is a single conditional UPDATE checked through
// RowsAffected, so the no-oversell gate runs inside the database and works
// identically on MySQL and SQLite.
type SQLAdapter struct {
	db *sql.DB
}

func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Migrate creates the schema. Used by the SQLite path and hermetic tests; a
// MySQL deployment manages its schema externally.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS books (
  id              INTEGER PRIMARY KEY,
  title           TEXT NOT NULL DEFAULT '',
  author          TEXT NOT NULL DEFAULT '',
  price           REAL NOT NULL DEFAULT 0,
  physical_copies INTEGER NOT NULL DEFAULT 0,
  reserved_copies INTEGER NOT NULL DEFAULT 0,
  sold_copies     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS orders (
  ref        TEXT PRIMARY KEY,
  user_id    INTEGER NOT NULL,
  total      REAL NOT NULL,
  created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
  order_ref TEXT NOT NULL,
  book_id   INTEGER NOT NULL,
  quantity  INTEGER NOT NULL,
  PRIMARY KEY (order_ref, book_id)
);
`
	_, err := a.db.ExecContext(ctx, schema)
	return err
}

func (a *SQLAdapter) AddBook(ctx context.Context, stock domain.BookStock) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, price, physical_copies, reserved_copies, sold_copies)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stock.BookID, stock.Title, stock.Author, stock.Price,
		stock.PhysicalCopies, stock.ReservedCopies, stock.SoldCopies,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (a *SQLAdapter) GetStock(ctx context.Context, bookID int64) (*domain.BookStock, error) {
	var s domain.BookStock
	err := a.db.QueryRowContext(ctx, `
		SELECT id, title, author, price, physical_copies, reserved_copies, sold_copies
		FROM books WHERE id = ?`, bookID,
	).Scan(&s.BookID, &s.Title, &s.Author, &s.Price,
		&s.PhysicalCopies, &s.ReservedCopies, &s.SoldCopies)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query book: %w", err)
	}
	return &s, nil
}

func (a *SQLAdapter) AvailableCopies(ctx context.Context, bookID int64) (int, error) {
	var available int
	err := a.db.QueryRowContext(ctx, `
		SELECT physical_copies - reserved_copies FROM books WHERE id = ?`, bookID,
	).Scan(&available)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrBookNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query available copies: %w", err)
	}
	return available, nil
}

func (a *SQLAdapter) TryReserve(ctx context.Context, bookID int64, qty int) (bool, error) {
	result, err := a.db.ExecContext(ctx, `
		UPDATE books
		SET reserved_copies = reserved_copies + ?
		WHERE id = ? AND physical_copies - reserved_copies >= ?`,
		qty, bookID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// Distinguish a missing book from a plain shortfall.
	if _, err := a.GetStock(ctx, bookID); err != nil {
		return false, err
	}
	return false, nil
}

func (a *SQLAdapter) ReleaseReservation(ctx context.Context, bookID int64, qty int) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE books
		SET reserved_copies = reserved_copies - ?
		WHERE id = ? AND reserved_copies >= ?`,
		qty, bookID, qty,
	)
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := a.GetStock(ctx, bookID); err != nil {
			return err
		}
		return &domain.InvariantError{BookID: bookID, Op: "release", Qty: qty}
	}
	return nil
}

func (a *SQLAdapter) CommitSale(ctx context.Context, bookID int64, qty int) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE books
		SET physical_copies = physical_copies - ?,
		    reserved_copies = reserved_copies - ?,
		    sold_copies = sold_copies + ?
		WHERE id = ? AND reserved_copies >= ?`,
		qty, qty, qty, bookID, qty,
	)
	if err != nil {
		return fmt.Errorf("commit sale: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := a.GetStock(ctx, bookID); err != nil {
			return err
		}
		return &domain.InvariantError{BookID: bookID, Op: "commit", Qty: qty}
	}
	return nil
}

func (a *SQLAdapter) Restock(ctx context.Context, bookID int64, qty int) error {
	if qty <= 0 {
		return &domain.InvariantError{BookID: bookID, Op: "restock", Qty: qty}
	}

	result, err := a.db.ExecContext(ctx, `
		UPDATE books SET physical_copies = physical_copies + ? WHERE id = ?`,
		qty, bookID,
	)
	if err != nil {
		return fmt.Errorf("restock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (a *SQLAdapter) SetPhysicalCopies(ctx context.Context, bookID int64, total int) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE books SET physical_copies = ? WHERE id = ? AND reserved_copies <= ?`,
		total, bookID, total,
	)
	if err != nil {
		return fmt.Errorf("set physical copies: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := a.GetStock(ctx, bookID); err != nil {
			return err
		}
		return &domain.InvariantError{BookID: bookID, Op: "set-physical", Qty: total}
	}
	return nil
}

func (a *SQLAdapter) BestSellers(ctx context.Context, limit int) ([]domain.BookStock, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, title, author, price, physical_copies, reserved_copies, sold_copies
		FROM books ORDER BY sold_copies DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query best sellers: %w", err)
	}
	defer rows.Close()

	var out []domain.BookStock
	for rows.Next() {
		var s domain.BookStock
		if err := rows.Scan(&s.BookID, &s.Title, &s.Author, &s.Price,
			&s.PhysicalCopies, &s.ReservedCopies, &s.SoldCopies); err != nil {
			return nil, fmt.Errorf("scan best seller: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (a *SQLAdapter) SaveOrder(ctx context.Context, order domain.Order) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (ref, user_id, total, created_at) VALUES (?, ?, ?, ?)`,
		order.Ref, order.UserID, order.Total, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_ref, book_id, quantity) VALUES (?, ?, ?)`,
			order.Ref, line.BookID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}
