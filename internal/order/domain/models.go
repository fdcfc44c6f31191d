package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
)

const (
	FrequencyOneOff  = "ONE_OFF"
	FrequencyMonthly = "MONTHLY"
	FrequencyYearly  = "YEARLY"
)

const (
	DonationTypeGeneral = "GENERAL"
	DonationTypeSadaqah = "SADAQAH"
	DonationTypeZakat   = "ZAKAT"
	DonationTypeLillah  = "LILLAH"
)

// Order is a checkout attempt grouping one or more donation line items. It is
// created PENDING before payment and transitions to COMPLETED exactly once.
type Order struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderNumber string       `gorm:"not null;uniqueIndex" json:"order_number"`

	SubtotalPence int64  `gorm:"not null" json:"subtotal_pence"`
	FeesPence     int64  `gorm:"not null;default:0" json:"fees_pence"`
	TotalPence    int64  `gorm:"not null" json:"total_pence"`
	Currency      string `gorm:"not null;default:'GBP'" json:"currency"`

	// Donor contact snapshot taken at checkout time.
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `gorm:"not null;index" json:"email"`
	Phone     string `json:"phone"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`

	GiftAid bool `gorm:"not null;default:false" json:"gift_aid"`

	Status      string     `gorm:"not null;default:'PENDING';index" json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// OrderItem is a single donation line. Exactly one of AppealID,
// WaterProjectID, SponsorshipProjectID is set. Immutable after creation.
type OrderItem struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID snowflake.ID `gorm:"not null;index" json:"order_id"`

	AppealID             *snowflake.ID `gorm:"index" json:"appeal_id,omitempty"`
	WaterProjectID       *snowflake.ID `gorm:"index" json:"water_project_id,omitempty"`
	SponsorshipProjectID *snowflake.ID `gorm:"index" json:"sponsorship_project_id,omitempty"`
	FundraiserID         *snowflake.ID `gorm:"index" json:"fundraiser_id,omitempty"`

	AmountPence  int64  `gorm:"not null" json:"amount_pence"`
	Frequency    string `gorm:"not null;default:'ONE_OFF'" json:"frequency"`
	DonationType string `gorm:"not null;default:'GENERAL'" json:"donation_type"`

	// CountryCode is set on water project items priced per country.
	CountryCode string `json:"country_code,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// IsRecurring reports whether the item renews on a subscription.
func (i OrderItem) IsRecurring() bool {
	return i.Frequency == FrequencyMonthly || i.Frequency == FrequencyYearly
}

// ValidFrequency reports whether raw is one of the known frequencies.
func ValidFrequency(raw string) bool {
	switch raw {
	case FrequencyOneOff, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// ValidDonationType reports whether raw is one of the known donation types.
func ValidDonationType(raw string) bool {
	switch raw {
	case DonationTypeGeneral, DonationTypeSadaqah, DonationTypeZakat, DonationTypeLillah:
		return true
	}
	return false
}
