package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kindbridge/kindbridge/internal/reportpool/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ClaimNext(ctx context.Context, db *gorm.DB, projectID snowflake.ID, subscriptionID string, periodEnd time.Time) (*domain.SponsorshipReport, error) {
	var existing domain.SponsorshipReport
	err := db.WithContext(ctx).
		Where("sponsorship_project_id = ? AND assigned_subscription_id = ?", projectID, subscriptionID).
		First(&existing).Error
	if err == nil {
		// Retried first invoice: the subscription already holds a report.
		return nil, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// The guarded UPDATE loses to a concurrent claim of the same row, in
	// which case we pick the next oldest.
	for attempt := 0; attempt < 3; attempt++ {
		var report domain.SponsorshipReport
		err := db.WithContext(ctx).
			Where("sponsorship_project_id = ? AND (assigned_subscription_id IS NULL OR assigned_subscription_id = '')", projectID).
			Order("created_at asc, id asc").
			First(&report).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		result := db.WithContext(ctx).
			Model(&domain.SponsorshipReport{}).
			Where("id = ? AND (assigned_subscription_id IS NULL OR assigned_subscription_id = '')", report.ID).
			Updates(map[string]any{
				"assigned_subscription_id": subscriptionID,
				"assigned_period_end":      periodEnd,
				"assigned_at":              now,
				"updated_at":               now,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			report.AssignedSubscriptionID = subscriptionID
			report.AssignedPeriodEnd = &periodEnd
			report.AssignedAt = &now
			return &report, nil
		}
	}
	return nil, nil
}

func (r *repo) Add(ctx context.Context, db *gorm.DB, report *domain.SponsorshipReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.UpdatedAt = report.CreatedAt
	return db.WithContext(ctx).Create(report).Error
}
