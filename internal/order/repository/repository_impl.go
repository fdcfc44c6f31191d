package repository

import (
	"context"
	"time"

	"github.com/kindbridge/kindbridge/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("order_items.id asc")
		}).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, orderNumber string, completedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("order_number = ? AND status = ?", orderNumber, domain.OrderStatusPending).
		Updates(map[string]any{
			"status":       domain.OrderStatusCompleted,
			"completed_at": completedAt,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
