package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store is the Postgres-backed order store.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UserIDByUsername resolves the buyer named in the callback.
func (s *Store) UserIDByUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query user by username: %w", err)
	}
	return id, nil
}

// CreateOrderWithItems inserts the order, its items and the matching stock
// decrements in one transaction. A decrement that would drive stock
// negative aborts the whole order with ErrInsufficientStock.
func (s *Store) CreateOrderWithItems(ctx context.Context, order *Order, items []PricedItem) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (invoice_id, first_name, last_name, sub_total, tax, tax_ico, total,
		                     is_paid, payment_method, payment_reference, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()) RETURNING id`,
		order.InvoiceID, order.FirstName, order.LastName, order.SubTotal, order.Tax,
		order.TaxICO, order.Total, order.IsPaid, order.PaymentMethod, order.PaymentReference,
		order.UserID).Scan(&order.ID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO orderitem (product_id, quantity, price, order_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, NOW(), NOW())`,
			item.ProductID, item.Quantity, item.Price, order.ID)
		if err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE product SET stock_quantity = stock_quantity - $1, updated_at = NOW()
			 WHERE id = $2 AND stock_quantity >= $1`,
			item.Quantity, item.ProductID)
		if err != nil {
			return 0, fmt.Errorf("decrement stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, fmt.Errorf("product %d: %w", item.ProductID, ErrInsufficientStock)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return order.ID, nil
}
