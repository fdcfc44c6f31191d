package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending         = "PENDING"
	StatusCompleted       = "COMPLETED"
	StatusWaitingToReview = "WAITING_TO_REVIEW"
	StatusRefunded        = "REFUNDED"
)

const (
	RecurringStatusActive    = "ACTIVE"
	RecurringStatusFailed    = "FAILED"
	RecurringStatusCancelled = "CANCELLED"
)

// BillingSnapshot is the donor/billing address copy frozen onto every
// donation row at finalization time.
type BillingSnapshot struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `gorm:"index" json:"email"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

// Donation is an appeal-linked donation. Legacy rows created by the old
// single-table flow carry the order number but no order item reference.
type Donation struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrderID     *snowflake.ID `gorm:"index" json:"order_id,omitempty"`
	OrderItemID *snowflake.ID `gorm:"uniqueIndex" json:"order_item_id,omitempty"`
	OrderNumber string        `gorm:"not null;index" json:"order_number"`

	AppealID     *snowflake.ID `gorm:"index" json:"appeal_id,omitempty"`
	FundraiserID *snowflake.ID `gorm:"index" json:"fundraiser_id,omitempty"`
	DonorID      *snowflake.ID `gorm:"index" json:"donor_id,omitempty"`

	AmountPence  int64  `gorm:"not null" json:"amount_pence"`
	Frequency    string `gorm:"not null;default:'ONE_OFF'" json:"frequency"`
	DonationType string `gorm:"not null;default:'GENERAL'" json:"donation_type"`
	GiftAid      bool   `gorm:"not null;default:false" json:"gift_aid"`

	BillingSnapshot `gorm:"embedded"`

	TransactionID string `gorm:"index" json:"transaction_id"`
	EmailSent     bool   `gorm:"not null;default:false" json:"email_sent"`
	Status        string `gorm:"not null;default:'PENDING';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// WaterProjectDonation funds a specific water project build. Rows sit in
// WAITING_TO_REVIEW until an admin approves disbursement.
type WaterProjectDonation struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrderID     *snowflake.ID `gorm:"index" json:"order_id,omitempty"`
	OrderItemID *snowflake.ID `gorm:"uniqueIndex" json:"order_item_id,omitempty"`
	OrderNumber string        `gorm:"not null;index" json:"order_number"`

	WaterProjectID snowflake.ID  `gorm:"not null;index" json:"water_project_id"`
	DonorID        *snowflake.ID `gorm:"index" json:"donor_id,omitempty"`

	AmountPence  int64  `gorm:"not null" json:"amount_pence"`
	Frequency    string `gorm:"not null;default:'ONE_OFF'" json:"frequency"`
	DonationType string `gorm:"not null;default:'GENERAL'" json:"donation_type"`
	GiftAid      bool   `gorm:"not null;default:false" json:"gift_aid"`
	CountryCode  string `json:"country_code"`

	BillingSnapshot `gorm:"embedded"`

	TransactionID string `gorm:"index" json:"transaction_id"`
	EmailSent     bool   `gorm:"not null;default:false" json:"email_sent"`
	Status        string `gorm:"not null;default:'PENDING';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SponsorshipDonation funds a sponsorship project.
type SponsorshipDonation struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrderID     *snowflake.ID `gorm:"index" json:"order_id,omitempty"`
	OrderItemID *snowflake.ID `gorm:"uniqueIndex" json:"order_item_id,omitempty"`
	OrderNumber string        `gorm:"not null;index" json:"order_number"`

	SponsorshipProjectID snowflake.ID  `gorm:"not null;index" json:"sponsorship_project_id"`
	DonorID              *snowflake.ID `gorm:"index" json:"donor_id,omitempty"`

	AmountPence  int64  `gorm:"not null" json:"amount_pence"`
	Frequency    string `gorm:"not null;default:'ONE_OFF'" json:"frequency"`
	DonationType string `gorm:"not null;default:'GENERAL'" json:"donation_type"`
	GiftAid      bool   `gorm:"not null;default:false" json:"gift_aid"`

	BillingSnapshot `gorm:"embedded"`

	TransactionID string `gorm:"index" json:"transaction_id"`
	EmailSent     bool   `gorm:"not null;default:false" json:"email_sent"`
	Status        string `gorm:"not null;default:'PENDING';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// RecurringDonation tracks a subscription created from a MONTHLY or YEARLY
// order item. At most one row exists per (subscription, order item); renewal
// invoices update the dates rather than creating duplicates.
type RecurringDonation struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	SubscriptionID string        `gorm:"not null;index:idx_recurring_sub_item,unique" json:"subscription_id"`
	OrderID        *snowflake.ID `gorm:"index" json:"order_id,omitempty"`
	OrderItemID    *snowflake.ID `gorm:"index:idx_recurring_sub_item,unique" json:"order_item_id,omitempty"`
	OrderNumber    string        `gorm:"not null;index" json:"order_number"`
	DonorID        *snowflake.ID `gorm:"index" json:"donor_id,omitempty"`

	AmountPence int64  `gorm:"not null" json:"amount_pence"`
	Frequency   string `gorm:"not null" json:"frequency"`

	Status          string     `gorm:"not null;default:'ACTIVE';index" json:"status"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	NextPaymentDate *time.Time `json:"next_payment_date,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
