package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("order_not_found")
	ErrInvalidOrder = errors.New("invalid_order")
)

type Repository interface {
	// Create persists an order and its items in one transaction.
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	// FindByNumber loads an order with its items in creation order.
	// Returns (nil, nil) when no order matches.
	FindByNumber(ctx context.Context, db *gorm.DB, orderNumber string) (*Order, error)
	// MarkCompleted transitions PENDING -> COMPLETED. The guard lives in
	// the WHERE clause; zero rows means another caller won the transition
	// or the order was already completed.
	MarkCompleted(ctx context.Context, db *gorm.DB, orderNumber string, completedAt time.Time) (int64, error)
}
