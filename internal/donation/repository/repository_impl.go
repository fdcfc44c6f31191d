package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kindbridge/kindbridge/internal/donation/domain"
	"github.com/kindbridge/kindbridge/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateDonation(ctx context.Context, gdb *gorm.DB, donation *domain.Donation) (bool, error) {
	err := gdb.WithContext(ctx).Create(donation).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) CreateWaterDonation(ctx context.Context, gdb *gorm.DB, donation *domain.WaterProjectDonation) (bool, error) {
	err := gdb.WithContext(ctx).Create(donation).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) CreateSponsorshipDonation(ctx context.Context, gdb *gorm.DB, donation *domain.SponsorshipDonation) (bool, error) {
	err := gdb.WithContext(ctx).Create(donation).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) FindPendingLegacyByOrderNumber(ctx context.Context, gdb *gorm.DB, orderNumber string) ([]domain.Donation, error) {
	var rows []domain.Donation
	err := gdb.WithContext(ctx).
		Where("order_number = ? AND order_item_id IS NULL AND status = ?", orderNumber, domain.StatusPending).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CompleteLegacy(ctx context.Context, gdb *gorm.DB, orderNumber, transactionID string) error {
	updates := map[string]any{
		"status":     domain.StatusCompleted,
		"updated_at": time.Now().UTC(),
	}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	return gdb.WithContext(ctx).
		Model(&domain.Donation{}).
		Where("order_number = ? AND order_item_id IS NULL AND status = ?", orderNumber, domain.StatusPending).
		Updates(updates).Error
}

func (r *repo) HasLegacyForOrderNumber(ctx context.Context, gdb *gorm.DB, orderNumber string) (bool, error) {
	var count int64
	err := gdb.WithContext(ctx).
		Model(&domain.Donation{}).
		Where("order_number = ? AND order_item_id IS NULL", orderNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindDonationsByOrderNumber(ctx context.Context, gdb *gorm.DB, orderNumber string) ([]domain.Donation, error) {
	var rows []domain.Donation
	err := gdb.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindWaterByOrderNumber(ctx context.Context, gdb *gorm.DB, orderNumber string) ([]domain.WaterProjectDonation, error) {
	var rows []domain.WaterProjectDonation
	err := gdb.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindSponsorshipByOrderNumber(ctx context.Context, gdb *gorm.DB, orderNumber string) ([]domain.SponsorshipDonation, error) {
	var rows []domain.SponsorshipDonation
	err := gdb.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) AdvanceWaterToReview(ctx context.Context, gdb *gorm.DB, id snowflake.ID, transactionID string) error {
	updates := map[string]any{
		"status":     domain.StatusWaitingToReview,
		"updated_at": time.Now().UTC(),
	}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	return gdb.WithContext(ctx).
		Model(&domain.WaterProjectDonation{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(updates).Error
}

func (r *repo) AdvanceSponsorshipToReview(ctx context.Context, gdb *gorm.DB, id snowflake.ID, transactionID string) error {
	updates := map[string]any{
		"status":     domain.StatusWaitingToReview,
		"updated_at": time.Now().UTC(),
	}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	return gdb.WithContext(ctx).
		Model(&domain.SponsorshipDonation{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(updates).Error
}

func (r *repo) MarkWaterEmailSent(ctx context.Context, gdb *gorm.DB, id snowflake.ID) error {
	return gdb.WithContext(ctx).
		Model(&domain.WaterProjectDonation{}).
		Where("id = ?", id).
		Updates(map[string]any{"email_sent": true, "updated_at": time.Now().UTC()}).Error
}

func (r *repo) MarkSponsorshipEmailSent(ctx context.Context, gdb *gorm.DB, id snowflake.ID) error {
	return gdb.WithContext(ctx).
		Model(&domain.SponsorshipDonation{}).
		Where("id = ?", id).
		Updates(map[string]any{"email_sent": true, "updated_at": time.Now().UTC()}).Error
}

func (r *repo) MarkRefundedByTransactionID(ctx context.Context, gdb *gorm.DB, transactionID string) (int64, error) {
	updates := map[string]any{"status": domain.StatusRefunded, "updated_at": time.Now().UTC()}
	var total int64
	for _, model := range []any{&domain.Donation{}, &domain.WaterProjectDonation{}, &domain.SponsorshipDonation{}} {
		result := gdb.WithContext(ctx).
			Model(model).
			Where("transaction_id = ? AND status <> ?", transactionID, domain.StatusRefunded).
			Updates(updates)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

func (r *repo) FindRecurringBySubscriptionID(ctx context.Context, gdb *gorm.DB, subscriptionID string) ([]domain.RecurringDonation, error) {
	var rows []domain.RecurringDonation
	err := gdb.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CreateRecurring(ctx context.Context, gdb *gorm.DB, recurring *domain.RecurringDonation) (bool, error) {
	err := gdb.WithContext(ctx).Create(recurring).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) TouchRecurringBySubscriptionID(ctx context.Context, gdb *gorm.DB, subscriptionID, status string, lastPayment time.Time, nextPayment *time.Time) error {
	updates := map[string]any{
		"status":            status,
		"last_payment_date": lastPayment,
		"updated_at":        time.Now().UTC(),
	}
	if nextPayment != nil {
		updates["next_payment_date"] = *nextPayment
	}
	return gdb.WithContext(ctx).
		Model(&domain.RecurringDonation{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(updates).Error
}

func (r *repo) MarkRecurringStatus(ctx context.Context, gdb *gorm.DB, subscriptionID, status string) (int64, error) {
	result := gdb.WithContext(ctx).
		Model(&domain.RecurringDonation{}).
		Where("subscription_id = ? AND status <> ?", subscriptionID, status).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
