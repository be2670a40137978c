// Package orders reads storefront orders from the primary PostgreSQL database.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is the subset of an order row the worker needs.
type Order struct {
	ID            string    `db:"id"`
	OrderNumber   string    `db:"orderNumber"`
	Status        string    `db:"status"`
	PaymentStatus string    `db:"paymentStatus"`
	CreatedAt     time.Time `db:"createdAt"`
}

// Store reads orders.
type Store struct {
	DB *sqlx.DB
}

// Get loads an order by ID.
func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	order := new(Order)
	err := s.DB.GetContext(ctx, order, `
		SELECT "id", "orderNumber", "status", "paymentStatus", "createdAt"
		FROM "Order" WHERE "id" = $1;`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return order, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
