package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// CreateDonation inserts an appeal donation. Returns (false, nil) when
	// a row for the same order item already exists.
	CreateDonation(ctx context.Context, db *gorm.DB, donation *Donation) (bool, error)
	CreateWaterDonation(ctx context.Context, db *gorm.DB, donation *WaterProjectDonation) (bool, error)
	CreateSponsorshipDonation(ctx context.Context, db *gorm.DB, donation *SponsorshipDonation) (bool, error)

	// FindPendingLegacyByOrderNumber returns donations tagged with the
	// order number that predate the per-category tables (no order item ref).
	FindPendingLegacyByOrderNumber(ctx context.Context, db *gorm.DB, orderNumber string) ([]Donation, error)
	// CompleteLegacy marks legacy rows COMPLETED and stamps the payment ref.
	CompleteLegacy(ctx context.Context, db *gorm.DB, orderNumber, transactionID string) error
	// HasLegacyForOrderNumber reports whether legacy rows exist in any
	// status. New-path creation is suppressed even when a prior run already
	// completed them.
	HasLegacyForOrderNumber(ctx context.Context, db *gorm.DB, orderNumber string) (bool, error)
	FindDonationsByOrderNumber(ctx context.Context, db *gorm.DB, orderNumber string) ([]Donation, error)
	FindWaterByOrderNumber(ctx context.Context, db *gorm.DB, orderNumber string) ([]WaterProjectDonation, error)
	FindSponsorshipByOrderNumber(ctx context.Context, db *gorm.DB, orderNumber string) ([]SponsorshipDonation, error)

	// AdvanceWaterToReview moves a PENDING row to WAITING_TO_REVIEW and
	// backfills the payment ref when it is missing.
	AdvanceWaterToReview(ctx context.Context, db *gorm.DB, id snowflake.ID, transactionID string) error
	AdvanceSponsorshipToReview(ctx context.Context, db *gorm.DB, id snowflake.ID, transactionID string) error
	MarkWaterEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	MarkSponsorshipEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// MarkRefundedByTransactionID flags rows matching the payment reference
	// across all three donation tables; returns the number of rows updated
	// (zero is a no-op).
	MarkRefundedByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (int64, error)

	FindRecurringBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) ([]RecurringDonation, error)
	CreateRecurring(ctx context.Context, db *gorm.DB, recurring *RecurringDonation) (bool, error)
	// TouchRecurringBySubscriptionID updates status and payment dates on
	// every row sharing the subscription id.
	TouchRecurringBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID, status string, lastPayment time.Time, nextPayment *time.Time) error
	MarkRecurringStatus(ctx context.Context, db *gorm.DB, subscriptionID, status string) (int64, error)
}
